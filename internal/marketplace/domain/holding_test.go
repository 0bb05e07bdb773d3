package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldingAccrueOnCostBasis(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHolding("acct-1", 1, start)
	require.NoError(t, h.AddShares(10, decimal.NewFromInt(1000)))

	// 一整年 6.5% 收益率，按成本 1000 计
	h.Accrue(start.Add(365*24*time.Hour), decimal.NewFromFloat(0.065))
	assert.True(t, h.PendingYield.Equal(decimal.NewFromInt(65)), "got %s", h.PendingYield)
}

func TestHoldingAddSharesValidation(t *testing.T) {
	h := NewHolding("acct-1", 1, time.Now())

	assert.ErrorIs(t, h.AddShares(0, decimal.NewFromInt(100)), ErrInvalidShares)
	assert.ErrorIs(t, h.AddShares(10, decimal.Zero), ErrInvalidShares)

	require.NoError(t, h.AddShares(10, decimal.NewFromInt(100)))
	require.NoError(t, h.AddShares(5, decimal.NewFromInt(50)))
	assert.Equal(t, int64(15), h.SharesOwned)
	assert.True(t, h.CostBasis.Equal(decimal.NewFromInt(150)))
}

func TestHoldingClaimYield(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHolding("acct-1", 1, start)
	require.NoError(t, h.AddShares(10, decimal.NewFromInt(1000)))

	_, err := h.ClaimYield()
	assert.ErrorIs(t, err, ErrNothingToClaim)

	h.Accrue(start.Add(365*24*time.Hour), decimal.NewFromFloat(0.065))
	claimed, err := h.ClaimYield()
	require.NoError(t, err)
	assert.True(t, claimed.Equal(decimal.NewFromInt(65)))
	assert.True(t, h.PendingYield.IsZero())
	assert.True(t, h.YieldEarnedTotal.Equal(decimal.NewFromInt(65)))
}
