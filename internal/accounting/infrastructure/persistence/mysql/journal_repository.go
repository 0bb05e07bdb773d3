// Package mysql 账本流水 MySQL 仓储实现
package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/wyfcoding/primecredit/internal/accounting/domain"
	"github.com/wyfcoding/primecredit/pkg/contextx"
	"github.com/wyfcoding/primecredit/pkg/db"
)

type JournalRepositoryImpl struct {
	db *db.DB
}

func NewJournalRepository(database *db.DB) domain.JournalRepository {
	return &JournalRepositoryImpl{db: database}
}

func (r *JournalRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.DB.WithContext(ctx)
}

func (r *JournalRepositoryImpl) Create(ctx context.Context, entry *domain.JournalEntry) error {
	return db.WrapError(r.getDB(ctx).Create(entry).Error)
}

func (r *JournalRepositoryImpl) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, int64, error) {
	var entries []*domain.JournalEntry
	var total int64

	q := r.getDB(ctx).Model(&domain.JournalEntry{}).Where("account_id = ?", accountID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, db.WrapError(err)
	}
	if err := q.Limit(limit).Offset(offset).Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, db.WrapError(err)
	}
	return entries, total, nil
}
