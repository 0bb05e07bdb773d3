// Package mysql 资产目录 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/primecredit/internal/registry/domain"
	"github.com/wyfcoding/primecredit/pkg/contextx"
	"github.com/wyfcoding/primecredit/pkg/db"
)

type AssetRepositoryImpl struct {
	db *db.DB
}

func NewAssetRepository(database *db.DB) domain.AssetRepository {
	return &AssetRepositoryImpl{db: database}
}

func (r *AssetRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.DB.WithContext(ctx)
}

func (r *AssetRepositoryImpl) Create(ctx context.Context, asset *domain.Asset) error {
	return db.WrapError(r.getDB(ctx).Create(asset).Error)
}

func (r *AssetRepositoryImpl) Save(ctx context.Context, asset *domain.Asset) error {
	return db.WrapError(r.getDB(ctx).Save(asset).Error)
}

func (r *AssetRepositoryImpl) GetByID(ctx context.Context, assetID uint) (*domain.Asset, error) {
	var asset domain.Asset
	err := r.getDB(ctx).First(&asset, assetID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, db.WrapError(err)
	}
	return &asset, nil
}

func (r *AssetRepositoryImpl) List(ctx context.Context, filter domain.ListFilter, limit, offset int) ([]*domain.Asset, int64, error) {
	var assets []*domain.Asset
	var total int64

	q := r.getDB(ctx).Model(&domain.Asset{})
	if filter.AssetType != "" {
		q = q.Where("asset_type = ?", filter.AssetType)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, db.WrapError(err)
	}
	if err := q.Limit(limit).Offset(offset).Order("id").Find(&assets).Error; err != nil {
		return nil, 0, db.WrapError(err)
	}
	return assets, total, nil
}

func (r *AssetRepositoryImpl) CountActive(ctx context.Context) (int64, error) {
	var total int64
	err := r.getDB(ctx).Model(&domain.Asset{}).Where("is_active = ?", true).Count(&total).Error
	return total, db.WrapError(err)
}
