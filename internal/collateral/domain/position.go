// Package domain 质押账本领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrNothingToClaim         = errors.New("nothing to claim")
	ErrPositionNotFound       = errors.New("collateral position not found")
)

// SecondsPerYear 计息年化折算秒数
const SecondsPerYear = 31536000

// Position 质押头寸聚合根，每个账户一条
// 质押收益按持仓连续线性累计，读取或变更前先结转到 AccruedYield
type Position struct {
	gorm.Model
	AccountID string `gorm:"column:account_id;type:varchar(64);uniqueIndex;not null" json:"account_id"`
	// 质押数量
	StakedAmount decimal.Decimal `gorm:"column:staked_amount;type:decimal(32,18);default:0;not null" json:"staked_amount"`
	// 已结转未领取收益
	AccruedYield decimal.Decimal `gorm:"column:accrued_yield;type:decimal(32,18);default:0;not null" json:"accrued_yield"`
	// 上次结转时间
	LastAccrualAt time.Time `gorm:"column:last_accrual_at;not null" json:"last_accrual_at"`
}

func (Position) TableName() string { return "collateral_positions" }

// NewPosition 创建空头寸
func NewPosition(accountID string, now time.Time) *Position {
	return &Position{
		AccountID:     accountID,
		StakedAmount:  decimal.Zero,
		AccruedYield:  decimal.Zero,
		LastAccrualAt: now,
	}
}

// Accrue 将 LastAccrualAt 至 now 的质押收益结转到 AccruedYield
// accrued += staked * apy * elapsed / secondsPerYear
func (p *Position) Accrue(now time.Time, apy decimal.Decimal) {
	elapsed := now.Sub(p.LastAccrualAt)
	if elapsed <= 0 {
		return
	}
	earned := p.StakedAmount.
		Mul(apy).
		Mul(decimal.NewFromFloat(elapsed.Seconds())).
		Div(decimal.NewFromInt(SecondsPerYear))
	p.AccruedYield = p.AccruedYield.Add(earned)
	p.LastAccrualAt = now
}

// Deposit 增加质押
func (p *Position) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	p.StakedAmount = p.StakedAmount.Add(amount)
	return nil
}

// Withdraw 减少质押，仅校验本地余额；LTV 约束由记账门面在跨账本层面校验
func (p *Position) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.StakedAmount.LessThan(amount) {
		return ErrInsufficientCollateral
	}
	p.StakedAmount = p.StakedAmount.Sub(amount)
	return nil
}

// ClaimYield 领取全部已结转收益，返回领取数额并清零
func (p *Position) ClaimYield() (decimal.Decimal, error) {
	if !p.AccruedYield.IsPositive() {
		return decimal.Zero, ErrNothingToClaim
	}
	claimed := p.AccruedYield
	p.AccruedYield = decimal.Zero
	return claimed, nil
}

// PositionRepository 质押头寸仓储接口
type PositionRepository interface {
	Save(ctx context.Context, position *Position) error
	GetByAccount(ctx context.Context, accountID string) (*Position, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Position, int64, error)
}
