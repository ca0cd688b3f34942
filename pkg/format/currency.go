// Package format renders monetary and percentage values for display.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSymbol is the dong sign appended to formatted amounts.
const DefaultSymbol = "₫"

// Formatter formats numbers with the grouping rules of a locale.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter creates a formatter for the given locale and currency symbol.
// An empty symbol falls back to DefaultSymbol.
func NewFormatter(tag language.Tag, symbol string) *Formatter {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return &Formatter{printer: message.NewPrinter(tag), symbol: symbol}
}

// Default returns the vi-VN dong formatter.
func Default() *Formatter {
	return NewFormatter(language.Vietnamese, DefaultSymbol)
}

// ParseLocale resolves a BCP 47 locale string, falling back to Vietnamese.
func ParseLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Vietnamese
	}
	return tag
}

// Currency rounds to whole units and renders with thousands separators and
// the currency symbol (e.g., "15.000.000 ₫"). Negative values display as 0.
func (f *Formatter) Currency(amount float64) string {
	return f.Number(amount) + " " + f.symbol
}

// Number rounds to whole units and renders with thousands separators only.
// Negative values display as 0.
func (f *Formatter) Number(amount float64) string {
	rounded := int64(math.Round(math.Max(0, amount)))
	return f.printer.Sprintf("%d", rounded)
}

// Percent renders a percentage with up to two decimals (e.g., "2.5%").
func (f *Formatter) Percent(value float64) string {
	rounded := math.Round(value*100) / 100
	if rounded == math.Trunc(rounded) {
		return f.printer.Sprintf("%d%%", int64(rounded))
	}
	return f.printer.Sprintf("%v%%", rounded)
}
