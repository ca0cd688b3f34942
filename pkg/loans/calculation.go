package loans

import "github.com/iwvelando/installment-calc/pkg/mathutil"

// Calculation is the derived view of a set of inputs: the netted principal and
// the amortization result. It is recomputed from scratch on every edit and is
// never persisted.
type Calculation struct {
	Inputs      Inputs  `json:"inputs"`
	DownPayment float64 `json:"downPayment"`
	Principal   float64 `json:"principal"`
	Result      Result  `json:"result"`
	// Empty is set when there is no price or no term, or when the result
	// would overflow; no result is carried.
	Empty bool `json:"empty"`
}

// Calculate runs the amortization engine for normalized inputs.
func Calculate(in Inputs) Calculation {
	if in.Price == 0 || in.Months == 0 {
		return Calculation{Inputs: in, Empty: true}
	}

	principal := in.Principal()
	result := Amortize(principal, in.Months, in.MonthlyRate, in.Method)
	if !mathutil.IsFinite(result.TotalPayment) || !mathutil.IsFinite(result.PeriodicPayment) {
		return Calculation{Inputs: in, Empty: true}
	}
	return Calculation{
		Inputs:      in,
		DownPayment: in.DownPayment(),
		Principal:   principal,
		Result:      result,
	}
}

// Preview returns at most the first n schedule rows.
func (c Calculation) Preview(n int) []ScheduleRow {
	if c.Empty || n <= 0 {
		return nil
	}
	if n > len(c.Result.Schedule) {
		n = len(c.Result.Schedule)
	}
	return c.Result.Schedule[:n]
}
