package google

import (
	"encoding/json"
	"fmt"
	"strings"

	"cafereport/internal/core"
)

// Reports sheet layout: one row per report.
//
//	A date | B starting cash | C daily income | D expenses sum | E total | F expenses JSON
const (
	lastColumn  = "F"
	totalColumn = 4
)

func reportRow(p core.ReportPayload) ([]any, error) {
	var spent float64
	for _, e := range p.Expenses {
		spent += e.Amount
	}
	expenses, err := json.Marshal(p.Expenses)
	if err != nil {
		return nil, fmt.Errorf("encode expenses: %w", err)
	}
	return []any{p.Date, p.StartingCash, p.DailyIncome, spent, p.TotalExpenses, string(expenses)}, nil
}

// parsePreviousTotal scans from the bottom for the last row whose total
// column holds a non-zero number. Header and blank rows are skipped.
func parsePreviousTotal(values [][]interface{}) core.PreviousTotal {
	for i := len(values) - 1; i >= 0; i-- {
		row := values[i]
		if len(row) <= totalColumn {
			continue
		}
		d, ok := core.ParseAmount(strings.TrimSpace(fmt.Sprint(row[totalColumn])))
		if !ok {
			continue
		}
		if d.IsZero() {
			return core.NoPreviousTotal
		}
		return core.NewPreviousTotal(d.InexactFloat64())
	}
	return core.NoPreviousTotal
}
