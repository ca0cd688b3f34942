// Package output provides utilities for formatting and exporting loan
// calculations.
package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/installment-calc/pkg/format"
	"github.com/iwvelando/installment-calc/pkg/loans"
	"github.com/iwvelando/installment-calc/pkg/mathutil"
)

// ErrNoCalculation is returned when an export is requested before any valid
// calculation exists.
var ErrNoCalculation = errors.New("no calculation available: enter a price and term first")

// ScheduleHeader is the column header of the schedule export.
var ScheduleHeader = []string{"period", "payment", "principal", "interest", "balance"}

// SummaryText renders the line-separated plain-text summary of a calculation.
func SummaryText(calc loans.Calculation, f *format.Formatter) (string, error) {
	if calc.Empty {
		return "", ErrNoCalculation
	}
	if f == nil {
		f = format.Default()
	}

	in := calc.Inputs
	lines := []string{
		"Price: " + f.Currency(in.Price),
		fmt.Sprintf("Down payment: %s (%s)", f.Currency(calc.DownPayment), f.Percent(in.DownPaymentPercent)),
		"Extra fees: " + f.Currency(in.ExtraFees),
		fmt.Sprintf("Term: %d months", in.Months),
		"Monthly rate: " + f.Percent(in.MonthlyRate),
		"Method: " + in.Method.Label(),
		"Loan amount: " + f.Currency(calc.Principal),
		"Monthly payment: " + f.Currency(calc.Result.PeriodicPayment),
		"Total interest: " + f.Currency(calc.Result.TotalInterest),
		"Total cost: " + f.Currency(calc.Result.TotalPayment),
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// WriteScheduleCSV writes one row per period with monetary values rounded to
// whole units.
func WriteScheduleCSV(w io.Writer, calc loans.Calculation) error {
	if calc.Empty {
		return ErrNoCalculation
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ScheduleHeader); err != nil {
		return fmt.Errorf("failed to write schedule header: %w", err)
	}
	for _, row := range calc.Result.Schedule {
		record := []string{
			strconv.Itoa(row.Period),
			wholeUnits(row.Payment),
			wholeUnits(row.PrincipalPaid),
			wholeUnits(row.Interest),
			wholeUnits(row.RemainingBalance),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write schedule period %d: %w", row.Period, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ScheduleCSV returns the schedule export as a string.
func ScheduleCSV(calc loans.Calculation) (string, error) {
	var buf bytes.Buffer
	if err := WriteScheduleCSV(&buf, calc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PrettyFormat writes a human-readable table of at most rows periods.
func PrettyFormat(w io.Writer, calc loans.Calculation, f *format.Formatter, rows int) error {
	if calc.Empty {
		_, err := fmt.Fprintln(w, "Enter a price and term to calculate.")
		return err
	}
	if f == nil {
		f = format.Default()
	}

	summary, err := SummaryText(calc, f)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, summary); err != nil {
		return err
	}

	preview := calc.Preview(rows)
	fmt.Fprintf(w, "\n%-6s | %15s | %15s | %15s | %15s\n", "Period", "Payment", "Principal", "Interest", "Balance")
	fmt.Fprintf(w, "%s\n", strings.Repeat("_", 6+4*18))
	for _, row := range preview {
		fmt.Fprintf(w, "%-6d | %15s | %15s | %15s | %15s\n",
			row.Period, f.Number(row.Payment), f.Number(row.PrincipalPaid),
			f.Number(row.Interest), f.Number(row.RemainingBalance))
	}
	if hidden := len(calc.Result.Schedule) - len(preview); hidden > 0 {
		fmt.Fprintf(w, "... %d more periods in the full export\n", hidden)
	}

	for _, note := range Notes(calc, f) {
		fmt.Fprintln(w, note)
	}
	return nil
}

// Notes returns the down payment note and the method hint for a calculation.
func Notes(calc loans.Calculation, f *format.Formatter) []string {
	if calc.Inputs.Price == 0 {
		return []string{"Enter the product price to start."}
	}
	if calc.Empty {
		return nil
	}
	if f == nil {
		f = format.Default()
	}

	note := fmt.Sprintf("Down payment about %s, extra fees %s. Loan amount: %s.",
		f.Currency(calc.DownPayment), f.Currency(calc.Inputs.ExtraFees), f.Currency(calc.Principal))

	hint := "Flat rate: principal split evenly, fixed monthly interest."
	if calc.Inputs.Method == loans.MethodReducing {
		hint = "Reducing balance: interest shrinks, monthly payment stays the same."
	}
	return []string{note, hint}
}

func wholeUnits(v float64) string {
	return strconv.FormatFloat(mathutil.RoundUnit(v), 'f', 0, 64)
}
