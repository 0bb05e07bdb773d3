package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionAccrueLinear(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	apy := decimal.NewFromFloat(0.042)

	p := NewPosition("acct-1", start)
	require.NoError(t, p.Deposit(decimal.NewFromInt(1000)))

	// 一整年，1000 * 4.2% = 42
	p.Accrue(start.Add(365*24*time.Hour), apy)
	assert.True(t, p.AccruedYield.Equal(decimal.NewFromInt(42)),
		"expected 42, got %s", p.AccruedYield)
	assert.Equal(t, start.Add(365*24*time.Hour), p.LastAccrualAt)
}

func TestPositionAccrueHalfYearAdditive(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	apy := decimal.NewFromFloat(0.042)
	halfYear := time.Duration(SecondsPerYear/2) * time.Second

	p := NewPosition("acct-1", start)
	require.NoError(t, p.Deposit(decimal.NewFromInt(1000)))

	// 分两次各结转半年，应与一次性结转一年一致
	p.Accrue(start.Add(halfYear), apy)
	p.Accrue(start.Add(2*halfYear), apy)
	assert.True(t, p.AccruedYield.Equal(decimal.NewFromInt(42)),
		"expected 42, got %s", p.AccruedYield)
}

func TestPositionAccrueNoElapsed(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := NewPosition("acct-1", start)
	require.NoError(t, p.Deposit(decimal.NewFromInt(500)))

	p.Accrue(start, decimal.NewFromFloat(0.042))
	assert.True(t, p.AccruedYield.IsZero())

	// 时间回拨不产生负收益
	p.Accrue(start.Add(-time.Hour), decimal.NewFromFloat(0.042))
	assert.True(t, p.AccruedYield.IsZero())
}

func TestPositionDepositValidation(t *testing.T) {
	p := NewPosition("acct-1", time.Now())

	assert.ErrorIs(t, p.Deposit(decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, p.Deposit(decimal.NewFromInt(-5)), ErrInvalidAmount)
	assert.NoError(t, p.Deposit(decimal.NewFromInt(10)))
}

func TestPositionWithdraw(t *testing.T) {
	p := NewPosition("acct-1", time.Now())
	require.NoError(t, p.Deposit(decimal.NewFromInt(100)))

	assert.ErrorIs(t, p.Withdraw(decimal.NewFromInt(101)), ErrInsufficientCollateral)
	assert.ErrorIs(t, p.Withdraw(decimal.Zero), ErrInvalidAmount)

	require.NoError(t, p.Withdraw(decimal.NewFromInt(100)))
	assert.True(t, p.StakedAmount.IsZero())
}

func TestPositionClaimYield(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPosition("acct-1", start)
	require.NoError(t, p.Deposit(decimal.NewFromInt(1000)))

	_, err := p.ClaimYield()
	assert.ErrorIs(t, err, ErrNothingToClaim)

	p.Accrue(start.Add(365*24*time.Hour), decimal.NewFromFloat(0.042))
	claimed, err := p.ClaimYield()
	require.NoError(t, err)
	assert.True(t, claimed.Equal(decimal.NewFromInt(42)))
	assert.True(t, p.AccruedYield.IsZero())

	// 二次领取无可领
	_, err = p.ClaimYield()
	assert.ErrorIs(t, err, ErrNothingToClaim)
}
