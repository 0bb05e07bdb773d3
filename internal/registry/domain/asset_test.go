package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAsset(t *testing.T) *Asset {
	t.Helper()
	asset, err := NewAsset("inst-1", "Harbor Tower", AssetTypeRealEstate, "Singapore", "",
		decimal.NewFromInt(100000), 1000, decimal.NewFromInt(100), 650)
	require.NoError(t, err)
	return asset
}

func TestNewAssetEconomics(t *testing.T) {
	// 总价值必须等于 份额数 * 单价
	_, err := NewAsset("inst-1", "Bad", AssetTypeRealEstate, "", "",
		decimal.NewFromInt(99999), 1000, decimal.NewFromInt(100), 650)
	assert.ErrorIs(t, err, ErrInvalidAssetEconomics)

	_, err = NewAsset("inst-1", "Bad", AssetTypeRealEstate, "", "",
		decimal.Zero, 0, decimal.NewFromInt(100), 650)
	assert.ErrorIs(t, err, ErrInvalidAssetEconomics)

	_, err = NewAsset("inst-1", "Bad", AssetType("EQUITY"), "", "",
		decimal.NewFromInt(100000), 1000, decimal.NewFromInt(100), 650)
	assert.ErrorIs(t, err, ErrInvalidAssetEconomics)

	asset := newTestAsset(t)
	assert.True(t, asset.IsActive)
	assert.Equal(t, int64(1000), asset.AvailableShares)
}

func TestAssetReserveShares(t *testing.T) {
	asset := newTestAsset(t)

	require.NoError(t, asset.ReserveShares(400))
	assert.Equal(t, int64(600), asset.AvailableShares)

	assert.ErrorIs(t, asset.ReserveShares(601), ErrInsufficientSupply)
	assert.ErrorIs(t, asset.ReserveShares(0), ErrInvalidAssetEconomics)
	assert.ErrorIs(t, asset.ReserveShares(-1), ErrInvalidAssetEconomics)

	require.NoError(t, asset.ReserveShares(600))
	assert.Equal(t, int64(0), asset.AvailableShares)
	assert.ErrorIs(t, asset.ReserveShares(1), ErrInsufficientSupply)
}

func TestAssetDeactivateBlocksReserve(t *testing.T) {
	asset := newTestAsset(t)
	asset.Deactivate()

	assert.False(t, asset.IsActive)
	assert.ErrorIs(t, asset.ReserveShares(1), ErrAssetInactive)
}

func TestAssetYieldRate(t *testing.T) {
	asset := newTestAsset(t)
	// 650 bps = 6.5%
	assert.True(t, asset.YieldRate().Equal(decimal.NewFromFloat(0.065)), "got %s", asset.YieldRate())
}
