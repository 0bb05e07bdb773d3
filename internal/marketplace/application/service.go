// Package application 份额持仓应用服务
package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/primecredit/internal/marketplace/domain"
	"github.com/wyfcoding/primecredit/pkg/clock"
)

// Service 份额持仓服务
// 资产收益率由调用方按资产登记信息传入，持仓本身不依赖资产目录
type Service struct {
	repo   domain.HoldingRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewService(repo domain.HoldingRepository, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		clock:  clk,
		logger: logger.With("module", "marketplace"),
	}
}

// RecordPurchase 记录一次份额买入，已有持仓先结转旧收益率下的收益
func (s *Service) RecordPurchase(ctx context.Context, accountID string, assetID uint, shares int64, cost, yieldRate decimal.Decimal) (*domain.Holding, error) {
	holding, err := s.loadOrCreate(ctx, accountID, assetID)
	if err != nil {
		return nil, err
	}

	holding.Accrue(s.clock.Now(), yieldRate)
	if err := holding.AddShares(shares, cost); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, holding); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shares purchased",
		"account_id", accountID, "asset_id", assetID, "shares", shares, "cost", cost)
	return holding, nil
}

// ClaimYield 领取指定资产持仓的待领收益
func (s *Service) ClaimYield(ctx context.Context, accountID string, assetID uint, yieldRate decimal.Decimal) (decimal.Decimal, *domain.Holding, error) {
	holding, err := s.repo.GetByAccountAndAsset(ctx, accountID, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldingNotFound) {
			return decimal.Zero, nil, domain.ErrNothingToClaim
		}
		return decimal.Zero, nil, err
	}

	holding.Accrue(s.clock.Now(), yieldRate)
	claimed, err := holding.ClaimYield()
	if err != nil {
		return decimal.Zero, nil, err
	}
	if err := s.repo.Save(ctx, holding); err != nil {
		return decimal.Zero, nil, err
	}

	s.logger.InfoContext(ctx, "asset yield claimed",
		"account_id", accountID, "asset_id", assetID, "amount", claimed)
	return claimed, holding, nil
}

// HoldingsOf 读取账户全部持仓，收益不在此处结转，由调用方按各自资产收益率投影
func (s *Service) HoldingsOf(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *Service) loadOrCreate(ctx context.Context, accountID string, assetID uint) (*domain.Holding, error) {
	holding, err := s.repo.GetByAccountAndAsset(ctx, accountID, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldingNotFound) {
			return domain.NewHolding(accountID, assetID, s.clock.Now()), nil
		}
		return nil, err
	}
	return holding, nil
}
