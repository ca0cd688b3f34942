// Package loans provides the loan input normalization and amortization
// calculations for installment purchases.
package loans

import (
	"math"

	"github.com/iwvelando/installment-calc/pkg/constants"
	"github.com/iwvelando/installment-calc/pkg/mathutil"
)

// DownPaymentMode selects which down payment representation is authoritative.
type DownPaymentMode string

// Supported down payment modes.
const (
	ModeAmount  DownPaymentMode = "amount"
	ModePercent DownPaymentMode = "percent"
)

// Valid reports whether the mode is a known one.
func (m DownPaymentMode) Valid() bool {
	return m == ModeAmount || m == ModePercent
}

// Method is the interest accrual convention.
type Method string

// Supported interest methods.
const (
	MethodFlat     Method = "flat"
	MethodReducing Method = "reducing"
)

// Valid reports whether the method is a known one.
func (m Method) Valid() bool {
	return m == MethodFlat || m == MethodReducing
}

// Label returns the human-readable method name.
func (m Method) Label() string {
	if m == MethodReducing {
		return "Reducing balance"
	}
	return "Flat rate"
}

// Inputs is the canonical loan state. It is also the persisted record.
type Inputs struct {
	Price              float64         `json:"price" yaml:"price" mapstructure:"price"`
	DownPaymentMode    DownPaymentMode `json:"downPaymentMode" yaml:"downPaymentMode" mapstructure:"downPaymentMode"`
	DownPaymentAmount  float64         `json:"downPaymentAmount" yaml:"downPaymentAmount" mapstructure:"downPaymentAmount"`
	DownPaymentPercent float64         `json:"downPaymentPercent" yaml:"downPaymentPercent" mapstructure:"downPaymentPercent"`
	MonthlyRate        float64         `json:"monthlyRate" yaml:"monthlyRate" mapstructure:"monthlyRate"`
	Months             int             `json:"months" yaml:"months" mapstructure:"months"`
	ExtraFees          float64         `json:"extraFees" yaml:"extraFees" mapstructure:"extraFees"`
	Method             Method          `json:"method" yaml:"method" mapstructure:"method"`
}

// PartialInputs holds raw, possibly incomplete loan fields. A nil field is
// absent and falls back to the defaults it is merged over.
type PartialInputs struct {
	Price              *float64         `json:"price,omitempty" yaml:"price,omitempty" mapstructure:"price"`
	DownPaymentMode    *DownPaymentMode `json:"downPaymentMode,omitempty" yaml:"downPaymentMode,omitempty" mapstructure:"downPaymentMode"`
	DownPaymentAmount  *float64         `json:"downPaymentAmount,omitempty" yaml:"downPaymentAmount,omitempty" mapstructure:"downPaymentAmount"`
	DownPaymentPercent *float64         `json:"downPaymentPercent,omitempty" yaml:"downPaymentPercent,omitempty" mapstructure:"downPaymentPercent"`
	MonthlyRate        *float64         `json:"monthlyRate,omitempty" yaml:"monthlyRate,omitempty" mapstructure:"monthlyRate"`
	Months             *float64         `json:"months,omitempty" yaml:"months,omitempty" mapstructure:"months"`
	ExtraFees          *float64         `json:"extraFees,omitempty" yaml:"extraFees,omitempty" mapstructure:"extraFees"`
	Method             *Method          `json:"method,omitempty" yaml:"method,omitempty" mapstructure:"method"`
}

// IsEmpty reports whether no field is set.
func (p PartialInputs) IsEmpty() bool {
	return p.Price == nil && p.DownPaymentMode == nil && p.DownPaymentAmount == nil &&
		p.DownPaymentPercent == nil && p.MonthlyRate == nil && p.Months == nil &&
		p.ExtraFees == nil && p.Method == nil
}

// Partial converts canonical inputs into a fully populated PartialInputs.
func (in Inputs) Partial() PartialInputs {
	months := float64(in.Months)
	mode := in.DownPaymentMode
	method := in.Method
	return PartialInputs{
		Price:              Float(in.Price),
		DownPaymentMode:    &mode,
		DownPaymentAmount:  Float(in.DownPaymentAmount),
		DownPaymentPercent: Float(in.DownPaymentPercent),
		MonthlyRate:        Float(in.MonthlyRate),
		Months:             &months,
		ExtraFees:          Float(in.ExtraFees),
		Method:             &method,
	}
}

// Float returns a pointer to v, for building PartialInputs.
func Float(v float64) *float64 {
	return &v
}

// DefaultInputs returns the hardcoded defaults used when nothing is persisted.
func DefaultInputs() Inputs {
	return Inputs{
		Price:              constants.DefaultPrice,
		DownPaymentMode:    ModeAmount,
		DownPaymentAmount:  constants.DefaultDownPaymentAmount,
		DownPaymentPercent: constants.DefaultDownPaymentPercent,
		MonthlyRate:        constants.DefaultMonthlyRate,
		Months:             constants.DefaultMonths,
		ExtraFees:          constants.DefaultExtraFees,
		Method:             MethodFlat,
	}
}

// Resolve merges persisted fields over defaults. Only the term is coerced,
// rounded and clamped, because Inputs holds it as an integer; every other
// field is copied as is and left to Normalize.
func Resolve(persisted PartialInputs, defaults Inputs) Inputs {
	out := defaults
	if persisted.Price != nil {
		out.Price = *persisted.Price
	}
	if persisted.DownPaymentMode != nil {
		out.DownPaymentMode = *persisted.DownPaymentMode
	}
	if persisted.DownPaymentAmount != nil {
		out.DownPaymentAmount = *persisted.DownPaymentAmount
	}
	if persisted.DownPaymentPercent != nil {
		out.DownPaymentPercent = *persisted.DownPaymentPercent
	}
	if persisted.MonthlyRate != nil {
		out.MonthlyRate = *persisted.MonthlyRate
	}
	if persisted.Months != nil {
		out.Months = clampMonths(*persisted.Months)
	}
	if persisted.ExtraFees != nil {
		out.ExtraFees = *persisted.ExtraFees
	}
	if persisted.Method != nil {
		out.Method = *persisted.Method
	}
	return out
}

// Normalize merges raw over defaults and coerces every field into its valid
// range. Malformed values are never rejected: NaN, negative and out-of-range
// numbers are clamped, unknown enums fall back to amount mode and the flat
// method.
func Normalize(raw PartialInputs, defaults Inputs) Inputs {
	in := Resolve(raw, defaults)

	if !in.DownPaymentMode.Valid() {
		in.DownPaymentMode = ModeAmount
	}
	if !in.Method.Valid() {
		in.Method = MethodFlat
	}

	in.Price = monetary(in.Price)
	in.MonthlyRate = mathutil.NonNegative(in.MonthlyRate)
	in.ExtraFees = monetary(in.ExtraFees)
	in.Months = int(mathutil.Clamp(float64(in.Months), constants.MinMonths, constants.MaxMonths))

	// A record carrying only a percentage (older records) gets its amount
	// from that percentage.
	if raw.DownPaymentAmount == nil && raw.DownPaymentPercent != nil && mathutil.IsFinite(*raw.DownPaymentPercent) {
		in.DownPaymentAmount = percentToAmount(in.Price, mathutil.Clamp(*raw.DownPaymentPercent, 0, constants.MaxDownPaymentPercent))
	}
	in.DownPaymentAmount = mathutil.Clamp(mathutil.Finite(in.DownPaymentAmount), 0, in.Price)

	percentAbsent := raw.DownPaymentPercent == nil && raw.DownPaymentAmount != nil
	if percentAbsent || !mathutil.IsFinite(in.DownPaymentPercent) {
		in.DownPaymentPercent = amountToPercent(in.Price, in.DownPaymentAmount)
	}
	in.DownPaymentPercent = mathutil.Clamp(in.DownPaymentPercent, 0, constants.MaxDownPaymentPercent)

	in.Derive()
	return in
}

// Derive re-computes the non-authoritative down payment field from the
// authoritative one selected by the mode.
func (in *Inputs) Derive() {
	if in.DownPaymentMode == ModePercent {
		in.DownPaymentAmount = percentToAmount(in.Price, in.DownPaymentPercent)
		return
	}

	upper := in.Price
	if in.Price == 0 {
		// Nothing to bound against until a price is known.
		upper = math.Inf(1)
	}
	in.DownPaymentAmount = mathutil.Clamp(mathutil.Finite(in.DownPaymentAmount), 0, upper)
	in.DownPaymentPercent = amountToPercent(in.Price, in.DownPaymentAmount)
}

// SetPrice updates the price and re-derives the down payment.
func (in *Inputs) SetPrice(v float64) {
	in.Price = monetary(v)
	in.Derive()
}

// SetDownPaymentAmount updates the amount. It only drives the percentage in
// amount mode.
func (in *Inputs) SetDownPaymentAmount(v float64) {
	in.DownPaymentAmount = mathutil.NonNegative(v)
	if in.DownPaymentMode == ModeAmount {
		in.Derive()
	} else if in.Price > 0 {
		in.DownPaymentAmount = math.Min(in.DownPaymentAmount, in.Price)
	}
}

// SetDownPaymentPercent updates the percentage. It only drives the amount in
// percent mode.
func (in *Inputs) SetDownPaymentPercent(v float64) {
	in.DownPaymentPercent = mathutil.Clamp(mathutil.Finite(v), 0, constants.MaxDownPaymentPercent)
	if in.DownPaymentMode == ModePercent {
		in.Derive()
	}
}

// SetDownPaymentMode switches the authoritative representation and
// re-derives the other one at the moment of switching.
func (in *Inputs) SetDownPaymentMode(m DownPaymentMode) {
	if !m.Valid() {
		m = ModeAmount
	}
	in.DownPaymentMode = m
	in.Derive()
}

// SetMonthlyRate updates the periodic rate in percentage points.
func (in *Inputs) SetMonthlyRate(v float64) {
	in.MonthlyRate = mathutil.NonNegative(v)
}

// SetMonths rounds and clamps the term.
func (in *Inputs) SetMonths(v float64) {
	in.Months = clampMonths(v)
}

// SetExtraFees updates the fees added to the principal.
func (in *Inputs) SetExtraFees(v float64) {
	in.ExtraFees = monetary(v)
}

// SetMethod selects the interest method; unknown methods become flat.
func (in *Inputs) SetMethod(m Method) {
	if !m.Valid() {
		m = MethodFlat
	}
	in.Method = m
}

// Apply bulk-sets the present fields of p and re-normalizes.
func (in *Inputs) Apply(p PartialInputs) {
	*in = Normalize(p, *in)
}

// Edit applies the present fields of p one at a time through the setters, in
// the order a form would: price, mode, amount, percent, rate, term, fees,
// method.
func (in *Inputs) Edit(p PartialInputs) {
	if p.Price != nil {
		in.SetPrice(*p.Price)
	}
	if p.DownPaymentMode != nil {
		in.SetDownPaymentMode(*p.DownPaymentMode)
	}
	if p.DownPaymentAmount != nil {
		in.SetDownPaymentAmount(*p.DownPaymentAmount)
	}
	if p.DownPaymentPercent != nil {
		in.SetDownPaymentPercent(*p.DownPaymentPercent)
	}
	if p.MonthlyRate != nil {
		in.SetMonthlyRate(*p.MonthlyRate)
	}
	if p.Months != nil {
		in.SetMonths(*p.Months)
	}
	if p.ExtraFees != nil {
		in.SetExtraFees(*p.ExtraFees)
	}
	if p.Method != nil {
		in.SetMethod(*p.Method)
	}
}

// DownPayment returns the down payment actually netted against the price.
func (in Inputs) DownPayment() float64 {
	return math.Min(in.Price, in.DownPaymentAmount)
}

// Principal is the amount financed: price net of down payment plus fees.
func (in Inputs) Principal() float64 {
	return math.Max(in.Price-in.DownPayment()+in.ExtraFees, 0)
}

// monetary bounds a price or fee so the principal stays finite.
func monetary(v float64) float64 {
	return math.Min(mathutil.NonNegative(v), constants.MaxMonetaryAmount)
}

func clampMonths(v float64) int {
	rounded := mathutil.RoundUnit(mathutil.Finite(v))
	return int(mathutil.Clamp(rounded, constants.MinMonths, constants.MaxMonths))
}

func percentToAmount(price, percent float64) float64 {
	if price == 0 {
		return 0
	}
	return mathutil.RoundUnit(price * percent / constants.PercentageMultiplier)
}

func amountToPercent(price, amount float64) float64 {
	if price == 0 {
		return 0
	}
	return mathutil.Clamp(mathutil.CalculatePercentage(amount, price), 0, constants.MaxDownPaymentPercent)
}
