// Package mysql 份额持仓 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/primecredit/internal/marketplace/domain"
	"github.com/wyfcoding/primecredit/pkg/contextx"
	"github.com/wyfcoding/primecredit/pkg/db"
)

type HoldingRepositoryImpl struct {
	db *db.DB
}

func NewHoldingRepository(database *db.DB) domain.HoldingRepository {
	return &HoldingRepositoryImpl{db: database}
}

func (r *HoldingRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.DB.WithContext(ctx)
}

func (r *HoldingRepositoryImpl) Save(ctx context.Context, holding *domain.Holding) error {
	return db.WrapError(r.getDB(ctx).Save(holding).Error)
}

func (r *HoldingRepositoryImpl) GetByAccountAndAsset(ctx context.Context, accountID string, assetID uint) (*domain.Holding, error) {
	var holding domain.Holding
	err := r.getDB(ctx).Where("account_id = ? AND asset_id = ?", accountID, assetID).First(&holding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrHoldingNotFound
		}
		return nil, db.WrapError(err)
	}
	return &holding, nil
}

func (r *HoldingRepositoryImpl) ListByAccount(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	var holdings []*domain.Holding
	err := r.getDB(ctx).Where("account_id = ?", accountID).Order("asset_id").Find(&holdings).Error
	if err != nil {
		return nil, db.WrapError(err)
	}
	return holdings, nil
}
