package service

import (
	"fmt"

	"github.com/railbook-next/internal/models"

	"github.com/shopspring/decimal"
)

// PricingEngine 票价计算
type PricingEngine struct{}

// NewPricingEngine 创建票价计算器
func NewPricingEngine() *PricingEngine {
	return &PricingEngine{}
}

// Price 计算订单总价：单价 × 乘车人数 + 保险费
func (e *PricingEngine) Price(unitPrice decimal.Decimal, passengerCount int, insuranceFee decimal.Decimal) (models.Money, error) {
	if unitPrice.IsNegative() {
		return models.Money{}, fmt.Errorf("%w: unit price must not be negative", ErrInvalidPricingInput)
	}
	if passengerCount <= 0 {
		return models.Money{}, fmt.Errorf("%w: passenger count must be positive", ErrInvalidPricingInput)
	}
	if insuranceFee.IsNegative() {
		return models.Money{}, fmt.Errorf("%w: insurance fee must not be negative", ErrInvalidPricingInput)
	}
	total := unitPrice.Round(2).Mul(decimal.NewFromInt(int64(passengerCount))).Add(insuranceFee.Round(2))
	return models.NewMoneyFromDecimal(total), nil
}
