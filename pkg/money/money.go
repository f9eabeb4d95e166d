package money

import "github.com/shopspring/decimal"

// Zero is the additive identity for order totals.
var Zero = decimal.Zero

// RoundCents rounds an amount to 2 decimal places. Aggregations round at
// every step, matching the server's cents-based accumulation, so partial
// sums never carry sub-cent precision.
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Cents converts an amount to integer cents after rounding.
func Cents(amount decimal.Decimal) int64 {
	return RoundCents(amount).Shift(2).IntPart()
}

// FromCents converts integer cents to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// Line returns price*quantity rounded to cents.
func Line(price decimal.Decimal, quantity int) decimal.Decimal {
	return RoundCents(price.Mul(decimal.NewFromInt(int64(quantity))))
}
