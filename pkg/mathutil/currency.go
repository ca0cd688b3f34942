// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/installment-calc/pkg/constants"
)

// Finite returns val, or 0 when val is NaN or infinite.
func Finite(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	return val
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// Clamp bounds val into [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, val))
}

// NonNegative coerces val to a finite value >= 0.
func NonNegative(val float64) float64 {
	return math.Max(0, Finite(val))
}

// RoundUnit rounds to the nearest whole currency unit with halves rounded up.
func RoundUnit(val float64) float64 {
	return math.Floor(val + 0.5)
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}
