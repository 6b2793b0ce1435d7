package google

import (
	"context"
	"testing"

	"cafereport/internal/core"
)

func TestParsePreviousTotal(t *testing.T) {
	header := []interface{}{"Date", "Starting cash", "Daily income", "Expenses", "Total", "Items"}

	tests := []struct {
		name   string
		values [][]interface{}
		want   core.PreviousTotal
	}{
		{"empty sheet", nil, core.NoPreviousTotal},
		{"header only", [][]interface{}{header}, core.NoPreviousTotal},
		{
			name: "last row wins",
			values: [][]interface{}{
				header,
				{"2025-05-30", 100.0, 900.0, 120.0, 880.0, "[]"},
				{"2025-05-31", 880.0, 1000.0, 380.5, 1499.5, "[]"},
			},
			want: core.NewPreviousTotal(1499.5),
		},
		{
			name: "formatted string with comma",
			values: [][]interface{}{
				header,
				{"2025-05-31", "880", "1000", "380,5", "1499,50", "[]"},
			},
			want: core.NewPreviousTotal(1499.5),
		},
		{
			name: "trailing short rows are skipped",
			values: [][]interface{}{
				header,
				{"2025-05-31", 1.0, 2.0, 0.0, 3.0, "[]"},
				{"", ""},
			},
			want: core.NewPreviousTotal(3),
		},
		{
			name: "zero total is absent",
			values: [][]interface{}{
				header,
				{"2025-05-31", 10.0, 0.0, 10.0, 0.0, "[]"},
			},
			want: core.NoPreviousTotal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parsePreviousTotal(tt.values); got != tt.want {
				t.Errorf("parsePreviousTotal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReportRow(t *testing.T) {
	p := core.ReportPayload{
		Date:         "2025-06-01",
		StartingCash: 100,
		DailyIncome:  50,
		Expenses: []core.ExpensePayload{
			{Category: "Аренда", Amount: 20},
			{Category: "Такси", Description: "поставщик", Amount: 10},
		},
		TotalExpenses: 120,
	}
	row, err := reportRow(p)
	if err != nil {
		t.Fatalf("reportRow() error = %v", err)
	}
	if len(row) != 6 {
		t.Fatalf("expected 6 columns, got %d", len(row))
	}
	if row[0] != "2025-06-01" || row[3] != 30.0 || row[totalColumn] != 120.0 {
		t.Fatalf("unexpected row %v", row)
	}
	if s, _ := row[5].(string); s == "" || s[0] != '[' {
		t.Fatalf("expected JSON expenses, got %v", row[5])
	}
}

func TestSubmitWithoutService(t *testing.T) {
	c := &Client{}
	if err := c.Submit(context.Background(), core.ReportPayload{}); err == nil {
		t.Fatalf("expected error without service")
	}
	if got := c.PreviousTotal(context.Background()); got.Present {
		t.Fatalf("expected absent total without service")
	}
}
