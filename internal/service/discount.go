package service

import "github.com/shopspring/decimal"

// discountRates is the fixed promo table. Codes match exactly; unknown codes earn nothing.
var discountRates = map[string]decimal.Decimal{
	"SUMMER10": decimal.NewFromFloat(0.10),
}

// Discount returns floor(total * rate) in whole currency units.
func Discount(code string, total decimal.Decimal) decimal.Decimal {
	rate, ok := discountRates[code]
	if !ok || total.IsNegative() {
		return decimal.Zero
	}
	return total.Mul(rate).Floor()
}
