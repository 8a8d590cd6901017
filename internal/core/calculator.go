package core

import "math"

// AmountToPeriods converts an arbitrary paid amount into the equivalent
// count of billing periods at the given per-period fee. It is a
// live-typing UI helper, not a validated transaction: non-numeric, zero
// or negative input yields 0 instead of an error.
func AmountToPeriods(amount, fee float64) int {
	if math.IsNaN(fee) || math.IsInf(fee, 0) || fee <= 0 {
		return 0
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0
	}
	return int(math.Floor(amount / fee))
}
