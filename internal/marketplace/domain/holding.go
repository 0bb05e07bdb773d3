// Package domain 份额持仓领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidShares   = errors.New("invalid share count")
	ErrNothingToClaim  = errors.New("nothing to claim")
	ErrHoldingNotFound = errors.New("holding not found")
)

// SecondsPerYear 计息年化折算秒数
const SecondsPerYear = 31536000

// Holding 份额持仓聚合根，账户与资产二元组唯一
// 收益以成本基准按资产预期年化连续累计
type Holding struct {
	gorm.Model
	AccountID string `gorm:"column:account_id;type:varchar(64);uniqueIndex:idx_account_asset;not null" json:"account_id"`
	AssetID   uint   `gorm:"column:asset_id;uniqueIndex:idx_account_asset;not null" json:"asset_id"`
	// 持有份额数
	SharesOwned int64 `gorm:"column:shares_owned;not null" json:"shares_owned"`
	// 累计买入成本
	CostBasis decimal.Decimal `gorm:"column:cost_basis;type:decimal(32,18);default:0;not null" json:"cost_basis"`
	// 历史累计已领取收益
	YieldEarnedTotal decimal.Decimal `gorm:"column:yield_earned_total;type:decimal(32,18);default:0;not null" json:"yield_earned_total"`
	// 待领取收益
	PendingYield decimal.Decimal `gorm:"column:pending_yield;type:decimal(32,18);default:0;not null" json:"pending_yield"`
	// 上次结转时间
	LastAccrualAt time.Time `gorm:"column:last_accrual_at;not null" json:"last_accrual_at"`
}

func (Holding) TableName() string { return "marketplace_holdings" }

// NewHolding 创建空持仓
func NewHolding(accountID string, assetID uint, now time.Time) *Holding {
	return &Holding{
		AccountID:        accountID,
		AssetID:          assetID,
		SharesOwned:      0,
		CostBasis:        decimal.Zero,
		YieldEarnedTotal: decimal.Zero,
		PendingYield:     decimal.Zero,
		LastAccrualAt:    now,
	}
}

// Accrue 结转 LastAccrualAt 至 now 的份额收益，yieldRate 为年化小数
func (h *Holding) Accrue(now time.Time, yieldRate decimal.Decimal) {
	elapsed := now.Sub(h.LastAccrualAt)
	if elapsed <= 0 {
		return
	}
	fraction := decimal.NewFromFloat(elapsed.Seconds()).Div(decimal.NewFromInt(SecondsPerYear))
	h.PendingYield = h.PendingYield.Add(h.CostBasis.Mul(yieldRate).Mul(fraction))
	h.LastAccrualAt = now
}

// AddShares 追加买入，成本基准累加
func (h *Holding) AddShares(shares int64, cost decimal.Decimal) error {
	if shares <= 0 || !cost.IsPositive() {
		return ErrInvalidShares
	}
	h.SharesOwned += shares
	h.CostBasis = h.CostBasis.Add(cost)
	return nil
}

// ClaimYield 领取待领收益，返回领取数额
func (h *Holding) ClaimYield() (decimal.Decimal, error) {
	if !h.PendingYield.IsPositive() {
		return decimal.Zero, ErrNothingToClaim
	}
	claimed := h.PendingYield
	h.PendingYield = decimal.Zero
	h.YieldEarnedTotal = h.YieldEarnedTotal.Add(claimed)
	return claimed, nil
}

// HoldingRepository 份额持仓仓储接口
type HoldingRepository interface {
	Save(ctx context.Context, holding *Holding) error
	GetByAccountAndAsset(ctx context.Context, accountID string, assetID uint) (*Holding, error)
	ListByAccount(ctx context.Context, accountID string) ([]*Holding, error)
}
