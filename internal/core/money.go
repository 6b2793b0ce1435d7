// Package core provides the report model and the arithmetic that turns a
// draft into a submittable report.
//
// Amounts stay as user-entered strings in the draft and are parsed into
// decimal values only when a total or a payload is derived, so no precision
// is lost between what the user typed and what is summed.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds on accepted amounts. Fifteen integer digits keep every value
// exactly representable once converted to float64 for the payload.
const (
	maxIntegerDigits  = 15
	maxFractionDigits = 8
)

// ParseAmount parses a user-entered decimal string.
//
// Surrounding whitespace is ignored and a comma is accepted as the decimal
// separator. Only plain notation is accepted: an optional sign, up to
// maxIntegerDigits integer digits and up to maxFractionDigits decimals.
// The second return value is false for empty, malformed or out-of-range
// input; NaN, infinities and exponents are never accepted.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.5, true
//	ParseAmount("12,50") -> 12.5, true
//	ParseAmount("1e3")   -> 0, false
//	ParseAmount("")      -> 0, false
//	ParseAmount("abc")   -> 0, false
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	if !plainAmount(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// plainAmount reports whether s is [+-]digits[.digits] within the digit bounds.
func plainAmount(s string) bool {
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if len(intPart) > maxIntegerDigits || len(fracPart) > maxFractionDigits {
		return false
	}
	if intPart == "" && fracPart == "" {
		return false
	}
	if hasDot && fracPart == "" {
		return false
	}
	for _, part := range []string{intPart, fracPart} {
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
		}
	}
	return true
}

// AmountOrZero parses s and falls back to zero when it is empty or malformed.
func AmountOrZero(s string) decimal.Decimal {
	d, _ := ParseAmount(s)
	return d
}

// FormatHryvnia renders an amount with two decimals and the currency suffix used on the form.
func FormatHryvnia(d decimal.Decimal) string {
	return d.StringFixed(2) + " грн."
}
