// Package pricing computes seat prices from a showtime's base price and the
// seat category premium.
package pricing

import (
	"fmt"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places of the currency.
const MinorUnits = 2

var hundred = decimal.NewFromInt(100)

// Price returns basePrice * (1 + premiumPercentage/100) rounded half-up to the
// currency's minor unit.
func Price(basePrice, premiumPercentage decimal.Decimal) (decimal.Decimal, error) {
	if basePrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: base price %s is negative", domain.ErrInvalidArgument, basePrice)
	}
	if premiumPercentage.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: premium %s is negative", domain.ErrInvalidArgument, premiumPercentage)
	}

	factor := decimal.NewFromInt(1).Add(premiumPercentage.Div(hundred))
	// Round is half away from zero, which is half-up for non-negative amounts.
	return basePrice.Mul(factor).Round(MinorUnits), nil
}

func Total(prices ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, prices...)
}
