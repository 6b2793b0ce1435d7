package http

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cafereport/internal/core"
)

// Form labels, shared by the templates and the validation messages.
var fieldLabels = map[string]string{
	core.FieldDate:         "Дата Отчета",
	core.FieldStartingCash: "Сумма на начало дня",
	core.FieldDailyIncome:  "Приход за день",
	core.FieldCategory:     "Категория",
	core.FieldDescription:  "Описание",
	core.FieldAmount:       "Сумма",
}

// formatHryvnia formats a float amount the way the totals panels show it.
func formatHryvnia(v float64) string {
	return core.FormatHryvnia(decimal.NewFromFloat(v))
}

// issueMessages renders validation issues for the form, numbering rows by
// their position in d.
func issueMessages(d core.ReportDraft, issues []core.Issue, minRowAmount decimal.Decimal) []string {
	msgs := make([]string, 0, len(issues))
	for _, is := range issues {
		row := d.RowIndex(is.RowID) + 1
		switch is.Code {
		case core.IssueMissingRequiredField:
			msgs = append(msgs, fmt.Sprintf("Заполните поле «%s»", fieldLabels[is.Field]))
		case core.IssueInvalidDate:
			msgs = append(msgs, "Укажите корректную дату отчета")
		case core.IssueRowBelowMinimum:
			msgs = append(msgs, fmt.Sprintf("Расход %d: сумма должна быть не меньше %s", row, core.FormatHryvnia(minRowAmount)))
		case core.IssueUnknownCategory:
			msgs = append(msgs, fmt.Sprintf("Расход %d: выберите категорию из списка", row))
		default:
			msgs = append(msgs, is.Message)
		}
	}
	return msgs
}

// sanitizeInput removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
