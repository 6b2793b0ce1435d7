package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinRowAmount is the smallest amount an expense row may carry.
var DefaultMinRowAmount = decimal.NewFromInt(1)

// IssueCode classifies a validation issue.
type IssueCode string

const (
	IssueRowBelowMinimum      IssueCode = "row_below_minimum"
	IssueMissingRequiredField IssueCode = "missing_required_field"
	IssueInvalidDate          IssueCode = "invalid_date"
	IssueUnknownCategory      IssueCode = "unknown_category"
)

// Issue is one failed constraint. RowID is set for row-level issues.
type Issue struct {
	Code    IssueCode `json:"code"`
	Field   string    `json:"field"`
	RowID   string    `json:"rowId,omitempty"`
	Message string    `json:"message"`
}

// ValidationError lists every constraint a draft failed.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.Message
	}
	return "report validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether any issue carries the given code.
func (e *ValidationError) Has(code IssueCode) bool {
	for _, is := range e.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// RowIDs returns the ids of rows cited by issues with the given code.
func (e *ValidationError) RowIDs(code IssueCode) []string {
	var ids []string
	for _, is := range e.Issues {
		if is.Code == code && is.RowID != "" {
			ids = append(ids, is.RowID)
		}
	}
	return ids
}

// ReportBuilder validates drafts and derives report payloads from them.
type ReportBuilder struct {
	MinRowAmount decimal.Decimal
	Catalog      Catalog
}

// NewReportBuilder returns a builder with the given row minimum and catalog.
// A nil catalog disables the category check.
func NewReportBuilder(minRowAmount decimal.Decimal, catalog Catalog) *ReportBuilder {
	return &ReportBuilder{MinRowAmount: minRowAmount, Catalog: catalog}
}

// CalculateTotal returns startingCash + dailyIncome minus the sum of row amounts.
// Empty or malformed values count as zero.
func CalculateTotal(d ReportDraft) decimal.Decimal {
	total := AmountOrZero(d.StartingCash).Add(AmountOrZero(d.DailyIncome))
	for _, r := range d.Rows {
		total = total.Sub(AmountOrZero(r.Amount))
	}
	return total
}

// Validate returns nil when the draft can be submitted, or a *ValidationError
// listing every failed constraint.
func (b *ReportBuilder) Validate(d ReportDraft) error {
	var issues []Issue

	if _, err := time.Parse(DateLayout, strings.TrimSpace(d.Date)); err != nil {
		issues = append(issues, Issue{
			Code:    IssueInvalidDate,
			Field:   FieldDate,
			Message: fmt.Sprintf("report date %q is not a valid YYYY-MM-DD date", d.Date),
		})
	}

	for _, f := range []struct{ name, value string }{
		{FieldStartingCash, d.StartingCash},
		{FieldDailyIncome, d.DailyIncome},
	} {
		v, ok := ParseAmount(f.value)
		if !ok || v.IsZero() {
			issues = append(issues, Issue{
				Code:    IssueMissingRequiredField,
				Field:   f.name,
				Message: f.name + " is required",
			})
		}
	}

	for i, r := range d.Rows {
		v, ok := ParseAmount(r.Amount)
		if !ok || v.LessThan(b.MinRowAmount) {
			issues = append(issues, Issue{
				Code:    IssueRowBelowMinimum,
				Field:   FieldAmount,
				RowID:   r.ID,
				Message: fmt.Sprintf("row %d amount must be at least %s", i+1, b.MinRowAmount.String()),
			})
		}
		if b.Catalog != nil && !b.Catalog.Contains(r.Category) {
			issues = append(issues, Issue{
				Code:    IssueUnknownCategory,
				Field:   FieldCategory,
				RowID:   r.ID,
				Message: fmt.Sprintf("row %d category %q is not in the catalog", i+1, r.Category),
			})
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// ToPayload converts the draft into its numeric-typed payload. It does not
// validate; malformed numbers become zero.
func (b *ReportBuilder) ToPayload(d ReportDraft) ReportPayload {
	p := ReportPayload{
		Date:          strings.TrimSpace(d.Date),
		StartingCash:  AmountOrZero(d.StartingCash).InexactFloat64(),
		DailyIncome:   AmountOrZero(d.DailyIncome).InexactFloat64(),
		Expenses:      make([]ExpensePayload, 0, len(d.Rows)),
		TotalExpenses: CalculateTotal(d).InexactFloat64(),
	}
	for _, r := range d.Rows {
		p.Expenses = append(p.Expenses, ExpensePayload{
			Category:    r.Category,
			Description: r.Description,
			Amount:      AmountOrZero(r.Amount).InexactFloat64(),
		})
	}
	return p
}

// Build validates the draft and, when valid, returns its payload.
func (b *ReportBuilder) Build(d ReportDraft) (ReportPayload, error) {
	if err := b.Validate(d); err != nil {
		return ReportPayload{}, err
	}
	return b.ToPayload(d), nil
}
