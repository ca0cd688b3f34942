package loans

import (
	"math"

	"github.com/iwvelando/installment-calc/pkg/constants"
)

// ScheduleRow holds the values for a given period.
type ScheduleRow struct {
	Period           int     `json:"period"`
	Payment          float64 `json:"payment"`
	PrincipalPaid    float64 `json:"principal"`
	Interest         float64 `json:"interest"`
	RemainingBalance float64 `json:"balance"`
}

// Result is a full amortization run.
type Result struct {
	PeriodicPayment float64       `json:"periodicPayment"`
	TotalInterest   float64       `json:"totalInterest"`
	TotalPayment    float64       `json:"totalPayment"`
	Schedule        []ScheduleRow `json:"schedule"`
}

// CalculateMonthlyPayment calculates the per-period payment of a reducing
// balance loan using the standard annuity formula. A zero rate degenerates to
// straight-line repayment.
func CalculateMonthlyPayment(principal, monthlyRatePercent float64, months int) float64 {
	rate := monthlyRatePercent / constants.PercentageMultiplier
	if rate == 0 {
		return principal / float64(months)
	}

	power := math.Pow(1+rate, float64(months))
	return principal * rate * power / (power - 1)
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(balance, monthlyRatePercent float64) float64 {
	return balance * (monthlyRatePercent / constants.PercentageMultiplier)
}

// Amortize builds the schedule for principal over months periods. Callers
// must not pass months < 1; the normalizer guarantees it.
func Amortize(principal float64, months int, monthlyRatePercent float64, method Method) Result {
	if method == MethodReducing {
		return AmortizeReducing(principal, months, monthlyRatePercent)
	}
	return AmortizeFlat(principal, months, monthlyRatePercent)
}

// AmortizeFlat computes an add-on interest schedule: interest is charged on
// the original principal every period and principal is repaid in equal parts.
func AmortizeFlat(principal float64, months int, monthlyRatePercent float64) Result {
	rate := monthlyRatePercent / constants.PercentageMultiplier
	monthlyInterest := principal * rate
	monthlyPrincipal := principal / float64(months)
	payment := monthlyPrincipal + monthlyInterest

	balance := principal
	schedule := make([]ScheduleRow, 0, months)
	for i := 1; i <= months; i++ {
		principalPaid := math.Min(monthlyPrincipal, balance)
		balance = math.Max(0, balance-principalPaid)

		schedule = append(schedule, ScheduleRow{
			Period:           i,
			Payment:          payment,
			PrincipalPaid:    principalPaid,
			Interest:         monthlyInterest,
			RemainingBalance: balance,
		})
	}

	return Result{
		PeriodicPayment: payment,
		TotalInterest:   monthlyInterest * float64(months),
		TotalPayment:    payment * float64(months),
		Schedule:        schedule,
	}
}

// AmortizeReducing computes a declining-balance schedule with a constant
// payment. The last payment is not adjusted; any floating point residue is
// absorbed by clamping the principal portion to the remaining balance.
func AmortizeReducing(principal float64, months int, monthlyRatePercent float64) Result {
	payment := CalculateMonthlyPayment(principal, monthlyRatePercent, months)

	balance := principal
	totalInterest := 0.0
	schedule := make([]ScheduleRow, 0, months)
	for i := 1; i <= months; i++ {
		interest := CalculateInterestPayment(balance, monthlyRatePercent)
		principalPaid := math.Min(payment-interest, balance)
		balance = math.Max(0, balance-principalPaid)

		schedule = append(schedule, ScheduleRow{
			Period:           i,
			Payment:          payment,
			PrincipalPaid:    principalPaid,
			Interest:         interest,
			RemainingBalance: balance,
		})
		totalInterest += interest
	}

	return Result{
		PeriodicPayment: payment,
		TotalInterest:   totalInterest,
		TotalPayment:    payment * float64(months),
		Schedule:        schedule,
	}
}
