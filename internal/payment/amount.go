package payment

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToPaise converts a rupee amount to the smallest currency unit, rounding half away from zero.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromPaise converts paise back to rupees.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}
