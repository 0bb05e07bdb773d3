// Package application 资产目录应用服务
package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/primecredit/internal/registry/domain"
)

// CreateAssetCommand 创建资产参数
type CreateAssetCommand struct {
	Creator          string
	Name             string
	AssetType        domain.AssetType
	Location         string
	Description      string
	TotalValue       decimal.Decimal
	TotalShares      int64
	PricePerShare    decimal.Decimal
	ExpectedYieldBps int64
}

// Service 资产目录服务
type Service struct {
	repo   domain.AssetRepository
	logger *slog.Logger
}

func NewService(repo domain.AssetRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("module", "registry"),
	}
}

// CreateAsset 创建资产
func (s *Service) CreateAsset(ctx context.Context, cmd CreateAssetCommand) (*domain.Asset, error) {
	asset, err := domain.NewAsset(cmd.Creator, cmd.Name, cmd.AssetType, cmd.Location, cmd.Description,
		cmd.TotalValue, cmd.TotalShares, cmd.PricePerShare, cmd.ExpectedYieldBps)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "asset created",
		"asset_id", asset.ID, "creator", cmd.Creator, "name", cmd.Name,
		"total_shares", cmd.TotalShares, "price_per_share", cmd.PricePerShare)
	return asset, nil
}

// GetAsset 按编号查询资产
func (s *Service) GetAsset(ctx context.Context, assetID uint) (*domain.Asset, error) {
	return s.repo.GetByID(ctx, assetID)
}

// ListAssets 按过滤条件分页列出资产
func (s *Service) ListAssets(ctx context.Context, filter domain.ListFilter, limit, offset int) ([]*domain.Asset, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// Deactivate 停用资产，幂等
func (s *Service) Deactivate(ctx context.Context, assetID uint) (*domain.Asset, error) {
	asset, err := s.repo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.IsActive {
		return asset, nil
	}

	asset.Deactivate()
	if err := s.repo.Save(ctx, asset); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "asset deactivated", "asset_id", assetID)
	return asset, nil
}

// ReserveShares 为购买扣减可售份额
func (s *Service) ReserveShares(ctx context.Context, assetID uint, shares int64) (*domain.Asset, error) {
	asset, err := s.repo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := asset.ReserveShares(shares); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// CountActive 活跃资产数，用于指标上报
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx)
}
