package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cafereport/internal/core"
)

func TestPreviousTotal(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   core.PreviousTotal
	}{
		{"numeric value", http.StatusOK, `[{"previous_income": 1530.5}]`, core.NewPreviousTotal(1530.5)},
		{"string value with comma", http.StatusOK, `[{"previous_income": "1530,50"}]`, core.NewPreviousTotal(1530.5)},
		{"empty array", http.StatusOK, `[]`, core.NoPreviousTotal},
		{"missing field", http.StatusOK, `[{"other": 1}]`, core.NoPreviousTotal},
		{"zero is absent", http.StatusOK, `[{"previous_income": 0}]`, core.NoPreviousTotal},
		{"null is absent", http.StatusOK, `[{"previous_income": null}]`, core.NoPreviousTotal},
		{"not a number", http.StatusOK, `[{"previous_income": "n/a"}]`, core.NoPreviousTotal},
		{"not an array", http.StatusOK, `{"previous_income": 5}`, core.NoPreviousTotal},
		{"server error", http.StatusInternalServerError, `[{"previous_income": 5}]`, core.NoPreviousTotal},
		{"not found", http.StatusNotFound, ``, core.NoPreviousTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET, got %s", r.Method)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(srv.URL, "", time.Second, nil)
			if got := c.PreviousTotal(context.Background()); got != tt.want {
				t.Errorf("PreviousTotal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPreviousTotal_NetworkFailureIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, "", time.Second, nil)
	if got := c.PreviousTotal(context.Background()); got.Present {
		t.Fatalf("expected absent total on network failure, got %+v", got)
	}
}

func TestPreviousTotal_NoEndpoint(t *testing.T) {
	c := New("", "", time.Second, nil)
	if got := c.PreviousTotal(context.Background()); got.Present {
		t.Fatalf("expected absent total without endpoint, got %+v", got)
	}
}

func TestSubmit_SendsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := core.ReportPayload{
		Date:          "2025-06-01",
		StartingCash:  100,
		DailyIncome:   50,
		Expenses:      []core.ExpensePayload{{Category: "Аренда", Description: "июнь", Amount: 30}},
		TotalExpenses: 120,
	}
	if err := New("", srv.URL, time.Second, nil).Submit(context.Background(), p); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	for _, key := range []string{"date", "startingCash", "dailyIncome", "expenses", "totalExpenses"} {
		if _, ok := got[key]; !ok {
			t.Errorf("payload is missing %q: %v", key, got)
		}
	}
	if got["totalExpenses"] != 120.0 {
		t.Errorf("totalExpenses = %v, want 120", got["totalExpenses"])
	}
	expenses, _ := got["expenses"].([]any)
	if len(expenses) != 1 {
		t.Fatalf("expected one expense, got %v", got["expenses"])
	}
	first, _ := expenses[0].(map[string]any)
	for _, key := range []string{"category", "description", "amount"} {
		if _, ok := first[key]; !ok {
			t.Errorf("expense is missing %q: %v", key, first)
		}
	}
}

func TestSubmit_Non2xxIsFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "sheet locked", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New("", srv.URL, time.Second, nil).Submit(context.Background(), core.ReportPayload{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable || statusErr.Body != "sheet locked" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if calls != 1 {
		t.Fatalf("submit must not retry, got %d calls", calls)
	}
}

func TestSubmit_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if err := New("", url, time.Second, nil).Submit(context.Background(), core.ReportPayload{}); err == nil {
		t.Fatalf("expected network error")
	}
}

func TestSubmit_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	err := New("", srv.URL, 50*time.Millisecond, nil).Submit(context.Background(), core.ReportPayload{})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestSubmit_NoEndpoint(t *testing.T) {
	if err := New("", "", time.Second, nil).Submit(context.Background(), core.ReportPayload{}); !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}
