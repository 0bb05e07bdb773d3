// Package domain 资产目录领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAssetNotFound         = errors.New("asset not found")
	ErrAssetInactive         = errors.New("asset inactive")
	ErrInvalidAssetEconomics = errors.New("invalid asset economics")
	ErrInsufficientSupply    = errors.New("insufficient share supply")
)

// AssetType 资产类别
type AssetType string

const (
	AssetTypeRealEstate     AssetType = "REAL_ESTATE"
	AssetTypePrivateDebt    AssetType = "PRIVATE_DEBT"
	AssetTypeInfrastructure AssetType = "INFRASTRUCTURE"
	AssetTypeAlternative    AssetType = "ALTERNATIVE"
)

// ValidAssetType 校验资产类别取值
func ValidAssetType(t AssetType) bool {
	switch t {
	case AssetTypeRealEstate, AssetTypePrivateDebt, AssetTypeInfrastructure, AssetTypeAlternative:
		return true
	}
	return false
}

// Asset 可碎片化资产聚合根，主键即资产编号（单调递增）
// 创建后除 AvailableShares 与 IsActive 外均不可变
type Asset struct {
	gorm.Model
	Name        string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	AssetType   AssetType `gorm:"column:asset_type;type:varchar(32);not null;index" json:"asset_type"`
	Location    string    `gorm:"column:location;type:varchar(128)" json:"location"`
	Description string    `gorm:"column:description;type:varchar(1024)" json:"description"`
	// 资产总价值，必须等于 TotalShares * PricePerShare
	TotalValue decimal.Decimal `gorm:"column:total_value;type:decimal(32,18);not null" json:"total_value"`
	// 份额总数
	TotalShares int64 `gorm:"column:total_shares;not null" json:"total_shares"`
	// 剩余可购份额，只减不增
	AvailableShares int64 `gorm:"column:available_shares;not null" json:"available_shares"`
	// 单份价格
	PricePerShare decimal.Decimal `gorm:"column:price_per_share;type:decimal(32,18);not null" json:"price_per_share"`
	// 预期年化收益，基点
	ExpectedYieldBps int64 `gorm:"column:expected_yield_bps;not null" json:"expected_yield_bps"`
	// 创建该资产的机构账户
	Creator string `gorm:"column:creator;type:varchar(64);not null;index" json:"creator"`
	// 停用后拒绝新购买，存量持仓照常计收益
	IsActive bool `gorm:"column:is_active;default:true;not null" json:"is_active"`
}

func (Asset) TableName() string { return "marketplace_assets" }

// NewAsset 创建资产，校验份额经济参数一致性
func NewAsset(creator, name string, assetType AssetType, location, description string,
	totalValue decimal.Decimal, totalShares int64, pricePerShare decimal.Decimal, expectedYieldBps int64) (*Asset, error) {

	if !ValidAssetType(assetType) {
		return nil, ErrInvalidAssetEconomics
	}
	if totalShares <= 0 || !pricePerShare.IsPositive() || expectedYieldBps < 0 {
		return nil, ErrInvalidAssetEconomics
	}
	if !totalValue.Equal(pricePerShare.Mul(decimal.NewFromInt(totalShares))) {
		return nil, ErrInvalidAssetEconomics
	}

	return &Asset{
		Name:             name,
		AssetType:        assetType,
		Location:         location,
		Description:      description,
		TotalValue:       totalValue,
		TotalShares:      totalShares,
		AvailableShares:  totalShares,
		PricePerShare:    pricePerShare,
		ExpectedYieldBps: expectedYieldBps,
		Creator:          creator,
		IsActive:         true,
	}, nil
}

// ReserveShares 扣减可购份额
func (a *Asset) ReserveShares(shares int64) error {
	if !a.IsActive {
		return ErrAssetInactive
	}
	if shares <= 0 {
		return ErrInvalidAssetEconomics
	}
	if shares > a.AvailableShares {
		return ErrInsufficientSupply
	}
	a.AvailableShares -= shares
	return nil
}

// Deactivate 停用资产
func (a *Asset) Deactivate() {
	a.IsActive = false
}

// YieldRate 将基点换算为年化小数
func (a *Asset) YieldRate() decimal.Decimal {
	return decimal.NewFromInt(a.ExpectedYieldBps).Div(decimal.NewFromInt(10000))
}

// ListFilter 资产列表过滤条件
type ListFilter struct {
	AssetType  AssetType
	ActiveOnly bool
}

// AssetRepository 资产目录仓储接口
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	Save(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, assetID uint) (*Asset, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Asset, int64, error)
	CountActive(ctx context.Context) (int64, error)
}
