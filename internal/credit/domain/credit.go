// Package domain 信用账本领域模型
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
	ErrExceedsBorrowCapacity  = errors.New("exceeds borrow capacity")
	ErrInsufficientBalance    = errors.New("insufficient credit balance")
	ErrMaxBalanceExceeded     = errors.New("max token balance exceeded")
	ErrNothingToClaim         = errors.New("nothing to claim")
	ErrFaucetDisabled         = errors.New("faucet disabled")
	ErrCreditPositionNotFound = errors.New("credit position not found")
)

// SecondsPerYear 计息年化折算秒数
const SecondsPerYear = 31536000

// noDebtHealthFactor 无债务时健康因子的上限哨兵值
var noDebtHealthFactor = decimal.NewFromInt(999)

// Credit 信用头寸聚合根，每个账户一条
// 债务利息按本金连续累计，代币持有收益按余额连续累计，
// 两者共用 LastAccrualAt 在读取或变更前惰性结转
type Credit struct {
	gorm.Model
	AccountID string `gorm:"column:account_id;type:varchar(64);uniqueIndex;not null" json:"account_id"`
	// 已发放未偿还本金
	PrincipalIssued decimal.Decimal `gorm:"column:principal_issued;type:decimal(32,18);default:0;not null" json:"principal_issued"`
	// 已结转未偿还利息
	InterestAccrued decimal.Decimal `gorm:"column:interest_accrued;type:decimal(32,18);default:0;not null" json:"interest_accrued"`
	// 实际持有的信用代币余额
	TokenBalance decimal.Decimal `gorm:"column:token_balance;type:decimal(32,18);default:0;not null" json:"token_balance"`
	// 持币收益，待领取
	PendingTokenYield decimal.Decimal `gorm:"column:pending_token_yield;type:decimal(32,18);default:0;not null" json:"pending_token_yield"`
	// 上次结转时间
	LastAccrualAt time.Time `gorm:"column:last_accrual_at;not null" json:"last_accrual_at"`
}

func (Credit) TableName() string { return "credit_positions" }

// NewCredit 创建空信用头寸
func NewCredit(accountID string, now time.Time) *Credit {
	return &Credit{
		AccountID:         accountID,
		PrincipalIssued:   decimal.Zero,
		InterestAccrued:   decimal.Zero,
		TokenBalance:      decimal.Zero,
		PendingTokenYield: decimal.Zero,
		LastAccrualAt:     now,
	}
}

// Accrue 结转 LastAccrualAt 至 now 的债务利息与持币收益
func (c *Credit) Accrue(now time.Time, debtAPR, tokenAPY decimal.Decimal) {
	elapsed := now.Sub(c.LastAccrualAt)
	if elapsed <= 0 {
		return
	}
	fraction := decimal.NewFromFloat(elapsed.Seconds()).Div(decimal.NewFromInt(SecondsPerYear))
	c.InterestAccrued = c.InterestAccrued.Add(c.PrincipalIssued.Mul(debtAPR).Mul(fraction))
	c.PendingTokenYield = c.PendingTokenYield.Add(c.TokenBalance.Mul(tokenAPY).Mul(fraction))
	c.LastAccrualAt = now
}

// TotalDebt 当前有效债务 = 本金 + 利息
func (c *Credit) TotalDebt() decimal.Decimal {
	return c.PrincipalIssued.Add(c.InterestAccrued)
}

// HealthFactor 健康因子 = 抵押价值 / 有效债务，无债务时返回哨兵上限
func (c *Credit) HealthFactor(collateralValue decimal.Decimal) decimal.Decimal {
	debt := c.TotalDebt()
	if !debt.IsPositive() {
		return noDebtHealthFactor
	}
	return collateralValue.Div(debt)
}

// Issue 发放信用：本金全额计入债务，余额计入净额（扣除发放手续费）
// maxCapacity 为调用方按抵押价值与 LTV 计算的额度上限
// maxTokenBalance > 0 时启用余额硬顶（演示模式）
func (c *Credit) Issue(amount, feeRate, maxCapacity, maxTokenBalance decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if c.PrincipalIssued.Add(amount).GreaterThan(maxCapacity) {
		return decimal.Zero, ErrExceedsBorrowCapacity
	}

	fee := amount.Mul(feeRate)
	net := amount.Sub(fee)

	if maxTokenBalance.IsPositive() && c.TokenBalance.Add(net).GreaterThan(maxTokenBalance) {
		return decimal.Zero, ErrMaxBalanceExceeded
	}

	c.PrincipalIssued = c.PrincipalIssued.Add(amount)
	c.TokenBalance = c.TokenBalance.Add(net)
	return net, nil
}

// Repay 偿还债务：先扣利息，剩余扣本金，余额同步扣减
func (c *Credit) Repay(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if c.TokenBalance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	if amount.GreaterThan(c.TotalDebt()) {
		return ErrInvalidAmount
	}

	c.TokenBalance = c.TokenBalance.Sub(amount)
	if amount.GreaterThanOrEqual(c.InterestAccrued) {
		remaining := amount.Sub(c.InterestAccrued)
		c.InterestAccrued = decimal.Zero
		c.PrincipalIssued = c.PrincipalIssued.Sub(remaining)
	} else {
		c.InterestAccrued = c.InterestAccrued.Sub(amount)
	}
	return nil
}

// ClaimTokenYield 领取持币收益并入余额，返回领取数额
func (c *Credit) ClaimTokenYield() (decimal.Decimal, error) {
	if !c.PendingTokenYield.IsPositive() {
		return decimal.Zero, ErrNothingToClaim
	}
	claimed := c.PendingTokenYield
	c.PendingTokenYield = decimal.Zero
	c.TokenBalance = c.TokenBalance.Add(claimed)
	return claimed, nil
}

// Debit 购买资产等消费场景下扣减余额
func (c *Credit) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if c.TokenBalance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	c.TokenBalance = c.TokenBalance.Sub(amount)
	return nil
}

// CreditTokens 收益派发等场景下增加余额，不产生债务
func (c *Credit) CreditTokens(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	c.TokenBalance = c.TokenBalance.Add(amount)
	return nil
}

// Faucet 演示模式代币领取：只加余额不计债务，受余额硬顶约束
// maxTokenBalance == 0 视为未启用演示模式
func (c *Credit) Faucet(amount, maxTokenBalance decimal.Decimal) error {
	if !maxTokenBalance.IsPositive() {
		return ErrFaucetDisabled
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if c.TokenBalance.Add(amount).GreaterThan(maxTokenBalance) {
		return ErrMaxBalanceExceeded
	}
	c.TokenBalance = c.TokenBalance.Add(amount)
	return nil
}

// CreditRepository 信用头寸仓储接口
type CreditRepository interface {
	Save(ctx context.Context, credit *Credit) error
	GetByAccount(ctx context.Context, accountID string) (*Credit, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Credit, int64, error)
}
