// Package mysql 质押账本 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/primecredit/internal/collateral/domain"
	"github.com/wyfcoding/primecredit/pkg/contextx"
	"github.com/wyfcoding/primecredit/pkg/db"
)

type PositionRepositoryImpl struct {
	db *db.DB
}

func NewPositionRepository(database *db.DB) domain.PositionRepository {
	return &PositionRepositoryImpl{db: database}
}

func (r *PositionRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.DB.WithContext(ctx)
}

func (r *PositionRepositoryImpl) Save(ctx context.Context, position *domain.Position) error {
	return db.WrapError(r.getDB(ctx).Save(position).Error)
}

func (r *PositionRepositoryImpl) GetByAccount(ctx context.Context, accountID string) (*domain.Position, error) {
	var position domain.Position
	err := r.getDB(ctx).Where("account_id = ?", accountID).First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, db.WrapError(err)
	}
	return &position, nil
}

func (r *PositionRepositoryImpl) ListAll(ctx context.Context, limit, offset int) ([]*domain.Position, int64, error) {
	var positions []*domain.Position
	var total int64

	q := r.getDB(ctx).Model(&domain.Position{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, db.WrapError(err)
	}
	if err := q.Limit(limit).Offset(offset).Order("id").Find(&positions).Error; err != nil {
		return nil, 0, db.WrapError(err)
	}
	return positions, total, nil
}
