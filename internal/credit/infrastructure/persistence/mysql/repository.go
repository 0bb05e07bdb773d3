// Package mysql 信用账本 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/primecredit/internal/credit/domain"
	"github.com/wyfcoding/primecredit/pkg/contextx"
	"github.com/wyfcoding/primecredit/pkg/db"
)

type CreditRepositoryImpl struct {
	db *db.DB
}

func NewCreditRepository(database *db.DB) domain.CreditRepository {
	return &CreditRepositoryImpl{db: database}
}

func (r *CreditRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.DB.WithContext(ctx)
}

func (r *CreditRepositoryImpl) Save(ctx context.Context, credit *domain.Credit) error {
	return db.WrapError(r.getDB(ctx).Save(credit).Error)
}

func (r *CreditRepositoryImpl) GetByAccount(ctx context.Context, accountID string) (*domain.Credit, error) {
	var credit domain.Credit
	err := r.getDB(ctx).Where("account_id = ?", accountID).First(&credit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCreditPositionNotFound
		}
		return nil, db.WrapError(err)
	}
	return &credit, nil
}

func (r *CreditRepositoryImpl) ListAll(ctx context.Context, limit, offset int) ([]*domain.Credit, int64, error) {
	var credits []*domain.Credit
	var total int64

	q := r.getDB(ctx).Model(&domain.Credit{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, db.WrapError(err)
	}
	if err := q.Limit(limit).Offset(offset).Order("id").Find(&credits).Error; err != nil {
		return nil, 0, db.WrapError(err)
	}
	return credits, total, nil
}
