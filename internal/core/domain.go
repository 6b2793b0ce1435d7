package core

import (
	"errors"
	"slices"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used by the form and the payload.
const DateLayout = "2006-01-02"

// DefaultRowID identifies the row every fresh draft starts with.
const DefaultRowID = "1"

// Header field names accepted by the draft store.
const (
	FieldDate         = "date"
	FieldStartingCash = "startingCash"
	FieldDailyIncome  = "dailyIncome"
)

// Row field names accepted by the draft store.
const (
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldAmount      = "amount"
)

type (
	// ExpenseRow is one expense line item as entered by the user.
	ExpenseRow struct {
		ID          string `json:"id"`
		Category    string `json:"category"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
	}

	// ReportDraft is the in-progress report. Numeric fields keep the raw user input.
	ReportDraft struct {
		Date         string       `json:"date"`
		StartingCash string       `json:"startingCash"`
		DailyIncome  string       `json:"dailyIncome"`
		Rows         []ExpenseRow `json:"rows"`
	}

	// ExpensePayload is a validated expense row in the submitted report.
	ExpensePayload struct {
		Category    string  `json:"category"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	}

	// ReportPayload is the numeric-typed report sent to the report endpoint.
	// TotalExpenses carries the end-of-day cash total; the name is part of the wire format.
	ReportPayload struct {
		Date          string           `json:"date"`
		StartingCash  float64          `json:"startingCash"`
		DailyIncome   float64          `json:"dailyIncome"`
		Expenses      []ExpensePayload `json:"expenses"`
		TotalExpenses float64          `json:"totalExpenses"`
	}

	// PreviousTotal is the prior period's total. Present is false when the
	// source had nothing to report or could not be reached.
	PreviousTotal struct {
		Value   float64
		Present bool
	}
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrRowNotFound  = errors.New("expense row not found")
	ErrLastRow      = errors.New("cannot remove the last expense row")
)

// NoPreviousTotal is the absent previous total.
var NoPreviousTotal = PreviousTotal{}

// NewPreviousTotal returns a present previous total.
func NewPreviousTotal(v float64) PreviousTotal {
	return PreviousTotal{Value: v, Present: true}
}

// Today returns the report date for t, using the UTC calendar day.
func Today(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NewDefaultRow returns a blank row of the default category with the given id.
func NewDefaultRow(id string) ExpenseRow {
	return ExpenseRow{ID: id, Category: DefaultCategory}
}

// NewDefaultDraft returns the draft a session starts with and returns to after a
// successful submission: the date of now, empty numeric fields and one blank row.
func NewDefaultDraft(now time.Time) ReportDraft {
	return ReportDraft{
		Date: Today(now),
		Rows: []ExpenseRow{NewDefaultRow(DefaultRowID)},
	}
}

// Clone returns a deep copy so callers can't mutate the rows of a stored draft.
func (d ReportDraft) Clone() ReportDraft {
	out := d
	out.Rows = append([]ExpenseRow(nil), d.Rows...)
	return out
}

// Equal reports whether both drafts hold the same header values and the same rows in order.
func (d ReportDraft) Equal(o ReportDraft) bool {
	return d.Date == o.Date &&
		d.StartingCash == o.StartingCash &&
		d.DailyIncome == o.DailyIncome &&
		slices.Equal(d.Rows, o.Rows)
}

// RowIndex returns the position of the row with the given id, or -1.
func (d ReportDraft) RowIndex(id string) int {
	for i, r := range d.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// SetHeader updates one of the header fields.
func (d *ReportDraft) SetHeader(field, value string) error {
	switch field {
	case FieldDate:
		d.Date = value
	case FieldStartingCash:
		d.StartingCash = value
	case FieldDailyIncome:
		d.DailyIncome = value
	default:
		return ErrUnknownField
	}
	return nil
}

// Set updates one field of the row.
func (r *ExpenseRow) Set(field, value string) error {
	switch field {
	case FieldCategory:
		r.Category = value
	case FieldDescription:
		r.Description = value
	case FieldAmount:
		r.Amount = value
	default:
		return ErrUnknownField
	}
	return nil
}
