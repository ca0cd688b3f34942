// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"

	"github.com/iwvelando/installment-calc/pkg/loans"
)

// CurrencyTolerance is the tolerance for currency comparisons.
const CurrencyTolerance = 1e-6

// FindRow finds a schedule row by period.
// Returns a pointer to the row if found, nil otherwise.
func FindRow(schedule []loans.ScheduleRow, period int) *loans.ScheduleRow {
	for i := range schedule {
		if schedule[i].Period == period {
			return &schedule[i]
		}
	}
	return nil
}

// SumPrincipal adds up the principal repaid across a schedule.
func SumPrincipal(schedule []loans.ScheduleRow) float64 {
	total := 0.0
	for _, row := range schedule {
		total += row.PrincipalPaid
	}
	return total
}

// IsZero checks if a value is effectively zero (within CurrencyTolerance).
func IsZero(val float64) bool {
	return math.Abs(val) <= CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance.
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}
