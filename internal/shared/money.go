package shared

import "github.com/shopspring/decimal"

var (
	// AmountEpsilon absorbs rounding noise when comparing a payment against an entry.
	AmountEpsilon = decimal.New(1, -6)
	// PaidThreshold is the residual at or below which an entry counts as settled.
	PaidThreshold = decimal.New(9, -3)
)

// Round2 rounds a currency amount to two decimal places.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// IsSettled reports whether a residual amount is small enough to mark an entry paid.
func IsSettled(residual decimal.Decimal) bool {
	return residual.LessThanOrEqual(PaidThreshold)
}

// Sum adds the supplied values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
