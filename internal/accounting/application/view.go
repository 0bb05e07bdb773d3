package application

import (
	"context"

	"github.com/shopspring/decimal"

	registrydomain "github.com/wyfcoding/primecredit/internal/registry/domain"
)

// ViewCache 账户视图缓存，实现可为 Redis 或空实现
type ViewCache interface {
	Get(ctx context.Context, accountID string) (*AccountView, bool)
	Put(ctx context.Context, accountID string, view *AccountView)
	Invalidate(ctx context.Context, accountID string)
}

// 健康因子状态
const (
	HealthStatusHealthy = "HEALTHY"
	HealthStatusCaution = "CAUTION"
	HealthStatusAtRisk  = "AT_RISK"
)

// CollateralView 抵押侧视图
type CollateralView struct {
	StakedAmount decimal.Decimal `json:"staked_amount"`
	AccruedYield decimal.Decimal `json:"accrued_yield"`
	// 抵押价值 = 质押量 * 参考价
	Value decimal.Decimal `json:"value"`
}

// CreditView 信用侧视图
type CreditView struct {
	PrincipalIssued   decimal.Decimal `json:"principal_issued"`
	InterestAccrued   decimal.Decimal `json:"interest_accrued"`
	TotalDebt         decimal.Decimal `json:"total_debt"`
	TokenBalance      decimal.Decimal `json:"token_balance"`
	PendingTokenYield decimal.Decimal `json:"pending_token_yield"`
	// 额度上限 = 抵押价值 * LTV
	BorrowCapacity decimal.Decimal `json:"borrow_capacity"`
	// 剩余可借 = max(0, 额度上限 - 有效债务)
	AvailableCredit decimal.Decimal `json:"available_credit"`
	// 额度使用率 = 有效债务 / 额度上限
	Utilization  decimal.Decimal `json:"utilization"`
	HealthFactor decimal.Decimal `json:"health_factor"`
	HealthStatus string          `json:"health_status"`
}

// HoldingView 份额持仓视图
type HoldingView struct {
	AssetID          uint                     `json:"asset_id"`
	AssetName        string                   `json:"asset_name"`
	AssetType        registrydomain.AssetType `json:"asset_type"`
	IsActive         bool                     `json:"is_active"`
	SharesOwned      int64                    `json:"shares_owned"`
	CostBasis        decimal.Decimal          `json:"cost_basis"`
	MarketValue      decimal.Decimal          `json:"market_value"`
	PendingYield     decimal.Decimal          `json:"pending_yield"`
	YieldEarnedTotal decimal.Decimal          `json:"yield_earned_total"`
}

// AccountView 账户全景视图，只读投影，不产生任何落库
type AccountView struct {
	AccountID  string         `json:"account_id"`
	Collateral CollateralView `json:"collateral"`
	Credit     CreditView     `json:"credit"`
	Holdings   []HoldingView  `json:"holdings"`
}

// GetAccountView 组装账户全景视图
// 各账本的收益与利息在内存中结转到同一时刻，紧邻两次读取结果一致
func (f *Facade) GetAccountView(ctx context.Context, accountID string) (*AccountView, error) {
	if f.viewCache != nil {
		if view, ok := f.viewCache.Get(ctx, accountID); ok {
			return view, nil
		}
	}

	position, err := f.collateral.CurrentPosition(ctx, accountID)
	if err != nil {
		return nil, err
	}
	credit, err := f.credit.CurrentPosition(ctx, accountID)
	if err != nil {
		return nil, err
	}

	value, err := f.collateralValue(position.StakedAmount)
	if err != nil {
		return nil, err
	}
	capacity := value.Mul(f.cfg.LoanToValue)
	totalDebt := credit.TotalDebt()

	available := capacity.Sub(totalDebt)
	if available.IsNegative() {
		available = decimal.Zero
	}
	utilization := decimal.Zero
	if capacity.IsPositive() {
		utilization = totalDebt.Div(capacity)
	}

	healthFactor := credit.HealthFactor(value)
	status := HealthStatusHealthy
	switch {
	case healthFactor.LessThan(f.cfg.LiquidationThreshold):
		status = HealthStatusAtRisk
	case healthFactor.LessThan(f.cfg.CautionThreshold):
		status = HealthStatusCaution
	}

	holdings, err := f.marketplace.HoldingsOf(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := f.clock.Now()
	holdingViews := make([]HoldingView, 0, len(holdings))
	for _, h := range holdings {
		asset, err := f.registry.GetAsset(ctx, h.AssetID)
		if err != nil {
			return nil, err
		}
		h.Accrue(now, asset.YieldRate())
		holdingViews = append(holdingViews, HoldingView{
			AssetID:          h.AssetID,
			AssetName:        asset.Name,
			AssetType:        asset.AssetType,
			IsActive:         asset.IsActive,
			SharesOwned:      h.SharesOwned,
			CostBasis:        h.CostBasis,
			MarketValue:      asset.PricePerShare.Mul(decimal.NewFromInt(h.SharesOwned)),
			PendingYield:     h.PendingYield,
			YieldEarnedTotal: h.YieldEarnedTotal,
		})
	}

	view := &AccountView{
		AccountID: accountID,
		Collateral: CollateralView{
			StakedAmount: position.StakedAmount,
			AccruedYield: position.AccruedYield,
			Value:        value,
		},
		Credit: CreditView{
			PrincipalIssued:   credit.PrincipalIssued,
			InterestAccrued:   credit.InterestAccrued,
			TotalDebt:         totalDebt,
			TokenBalance:      credit.TokenBalance,
			PendingTokenYield: credit.PendingTokenYield,
			BorrowCapacity:    capacity,
			AvailableCredit:   available,
			Utilization:       utilization,
			HealthFactor:      healthFactor,
			HealthStatus:      status,
		},
		Holdings: holdingViews,
	}

	if f.viewCache != nil {
		f.viewCache.Put(ctx, accountID, view)
	}
	return view, nil
}
