package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	feeRate  = decimal.NewFromFloat(0.003)
	debtAPR  = decimal.NewFromFloat(0.035)
	tokenAPY = decimal.NewFromFloat(0.045)
	noCap    = decimal.Zero
)

func TestCreditIssueFeeAndDebt(t *testing.T) {
	c := NewCredit("acct-1", time.Now())

	net, err := c.Issue(decimal.NewFromInt(1000), feeRate, decimal.NewFromInt(2000), noCap)
	require.NoError(t, err)

	// 净到账 = 1000 - 0.3% 手续费，债务按全额 1000 计
	assert.True(t, net.Equal(decimal.NewFromInt(997)), "got %s", net)
	assert.True(t, c.PrincipalIssued.Equal(decimal.NewFromInt(1000)))
	assert.True(t, c.TokenBalance.Equal(decimal.NewFromInt(997)))
}

func TestCreditIssueCapacity(t *testing.T) {
	c := NewCredit("acct-1", time.Now())

	_, err := c.Issue(decimal.NewFromInt(1000), feeRate, decimal.NewFromInt(800), noCap)
	assert.ErrorIs(t, err, ErrExceedsBorrowCapacity)

	// 累计本金不得超过额度
	_, err = c.Issue(decimal.NewFromInt(500), feeRate, decimal.NewFromInt(800), noCap)
	require.NoError(t, err)
	_, err = c.Issue(decimal.NewFromInt(301), feeRate, decimal.NewFromInt(800), noCap)
	assert.ErrorIs(t, err, ErrExceedsBorrowCapacity)

	// 恰好用满额度放行，再多一分拒绝
	_, err = c.Issue(decimal.NewFromInt(300), feeRate, decimal.NewFromInt(800), noCap)
	require.NoError(t, err)
	assert.True(t, c.PrincipalIssued.Equal(decimal.NewFromInt(800)))
	_, err = c.Issue(decimal.NewFromInt(1), feeRate, decimal.NewFromInt(800), noCap)
	assert.ErrorIs(t, err, ErrExceedsBorrowCapacity)
}

func TestCreditIssueBalanceCeiling(t *testing.T) {
	c := NewCredit("acct-1", time.Now())
	ceiling := decimal.NewFromInt(500)

	_, err := c.Issue(decimal.NewFromInt(600), feeRate, decimal.NewFromInt(10000), ceiling)
	assert.ErrorIs(t, err, ErrMaxBalanceExceeded)
	assert.True(t, c.PrincipalIssued.IsZero(), "rejected issue must not change state")
}

func TestCreditAccrueBothSides(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCredit("acct-1", start)
	_, err := c.Issue(decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromInt(2000), noCap)
	require.NoError(t, err)

	c.Accrue(start.Add(365*24*time.Hour), debtAPR, tokenAPY)

	// 债务利息 1000*3.5%，持币收益 1000*4.5%
	assert.True(t, c.InterestAccrued.Equal(decimal.NewFromInt(35)), "got %s", c.InterestAccrued)
	assert.True(t, c.PendingTokenYield.Equal(decimal.NewFromInt(45)), "got %s", c.PendingTokenYield)
	assert.True(t, c.TotalDebt().Equal(decimal.NewFromInt(1035)))
}

func TestCreditRepayInterestFirst(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCredit("acct-1", start)
	_, err := c.Issue(decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromInt(2000), noCap)
	require.NoError(t, err)
	c.Accrue(start.Add(365*24*time.Hour), debtAPR, tokenAPY)

	// 偿还 100：先扣 35 利息，再扣 65 本金
	require.NoError(t, c.Repay(decimal.NewFromInt(100)))
	assert.True(t, c.InterestAccrued.IsZero())
	assert.True(t, c.PrincipalIssued.Equal(decimal.NewFromInt(935)), "got %s", c.PrincipalIssued)
	assert.True(t, c.TokenBalance.Equal(decimal.NewFromInt(900)))
}

func TestCreditRepayPartialInterest(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCredit("acct-1", start)
	_, err := c.Issue(decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromInt(2000), noCap)
	require.NoError(t, err)
	c.Accrue(start.Add(365*24*time.Hour), debtAPR, tokenAPY)

	// 偿还 20 < 利息 35，本金不动
	require.NoError(t, c.Repay(decimal.NewFromInt(20)))
	assert.True(t, c.InterestAccrued.Equal(decimal.NewFromInt(15)))
	assert.True(t, c.PrincipalIssued.Equal(decimal.NewFromInt(1000)))
}

func TestCreditRepayValidation(t *testing.T) {
	c := NewCredit("acct-1", time.Now())
	_, err := c.Issue(decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(2000), noCap)
	require.NoError(t, err)

	// 超出余额
	assert.ErrorIs(t, c.Repay(decimal.NewFromInt(200)), ErrInsufficientBalance)
	// 超出债务
	require.NoError(t, c.CreditTokens(decimal.NewFromInt(500)))
	assert.ErrorIs(t, c.Repay(decimal.NewFromInt(101)), ErrInvalidAmount)
	assert.ErrorIs(t, c.Repay(decimal.Zero), ErrInvalidAmount)
}

func TestCreditHealthFactor(t *testing.T) {
	c := NewCredit("acct-1", time.Now())

	// 无债务返回哨兵值
	assert.True(t, c.HealthFactor(decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(999)))

	_, err := c.Issue(decimal.NewFromInt(500), decimal.Zero, decimal.NewFromInt(2000), noCap)
	require.NoError(t, err)
	assert.True(t, c.HealthFactor(decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(2)))
}

func TestCreditClaimTokenYield(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCredit("acct-1", start)
	_, err := c.Issue(decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromInt(2000), noCap)
	require.NoError(t, err)

	_, err = c.ClaimTokenYield()
	assert.ErrorIs(t, err, ErrNothingToClaim)

	c.Accrue(start.Add(365*24*time.Hour), debtAPR, tokenAPY)
	claimed, err := c.ClaimTokenYield()
	require.NoError(t, err)
	assert.True(t, claimed.Equal(decimal.NewFromInt(45)))
	assert.True(t, c.TokenBalance.Equal(decimal.NewFromInt(1045)))
	assert.True(t, c.PendingTokenYield.IsZero())
}

func TestCreditDebitAndCredit(t *testing.T) {
	c := NewCredit("acct-1", time.Now())
	require.NoError(t, c.CreditTokens(decimal.NewFromInt(100)))

	assert.ErrorIs(t, c.Debit(decimal.NewFromInt(101)), ErrInsufficientBalance)
	require.NoError(t, c.Debit(decimal.NewFromInt(40)))
	assert.True(t, c.TokenBalance.Equal(decimal.NewFromInt(60)))
	// 派发入账不产生债务
	assert.True(t, c.TotalDebt().IsZero())
}

func TestCreditFaucet(t *testing.T) {
	c := NewCredit("acct-1", time.Now())
	ceiling := decimal.NewFromInt(10000)

	require.NoError(t, c.Faucet(decimal.NewFromInt(9000), ceiling))
	assert.ErrorIs(t, c.Faucet(decimal.NewFromInt(1001), ceiling), ErrMaxBalanceExceeded)
	require.NoError(t, c.Faucet(decimal.NewFromInt(1000), ceiling))

	// 上限为零视为未启用演示模式
	assert.ErrorIs(t, c.Faucet(decimal.NewFromInt(1), decimal.Zero), ErrFaucetDisabled)
	// 水龙头不计债务
	assert.True(t, c.TotalDebt().IsZero())
}
