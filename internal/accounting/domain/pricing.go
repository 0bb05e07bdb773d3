// Package domain 记账门面领域模型：定价、授权、流水与事件
package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnknownSymbol = errors.New("unknown price symbol")

// CollateralSymbol 抵押品计价符号
const CollateralSymbol = "MNT"

// PriceOracle 参考价来源
type PriceOracle interface {
	PriceOf(symbol string) (decimal.Decimal, error)
}

// StaticOracle 配置驱动的静态参考价表
type StaticOracle struct {
	prices map[string]decimal.Decimal
}

// NewStaticOracle 从 symbol -> 价格映射构建静态价源
func NewStaticOracle(prices map[string]float64) *StaticOracle {
	table := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		table[symbol] = decimal.NewFromFloat(price)
	}
	return &StaticOracle{prices: table}
}

func (o *StaticOracle) PriceOf(symbol string) (decimal.Decimal, error) {
	price, ok := o.prices[symbol]
	if !ok {
		return decimal.Zero, ErrUnknownSymbol
	}
	return price, nil
}
