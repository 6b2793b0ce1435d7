package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cafereport/internal/core"
	"cafereport/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return &Client{svc: svc, spreadsheetID: "sheet-1", sheetName: "Reports", logger: log.Discard()}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing spreadsheet id") {
		t.Fatalf("expected missing spreadsheet id error, got %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-1"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing Google credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestClient_SubmitAppendsRow(t *testing.T) {
	var gotRange string
	var body gsheet.ValueRange

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":append") {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		gotRange = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"updates":{"updatedRange":"Reports!A2:F2"}}`))
	})

	p := core.ReportPayload{
		Date:          "2026-10-19",
		StartingCash:  1000,
		DailyIncome:   500,
		Expenses:      []core.ExpensePayload{{Category: "Продукты", Description: "молоко", Amount: 200}},
		TotalExpenses: 1300,
	}
	if err := c.Submit(context.Background(), p); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !strings.Contains(gotRange, "sheet-1") || !strings.Contains(gotRange, "Reports!A:F") {
		t.Errorf("unexpected request path %q", gotRange)
	}
	if len(body.Values) != 1 || len(body.Values[0]) != 6 {
		t.Fatalf("expected one row of 6 cells, got %v", body.Values)
	}
	if body.Values[0][0] != "2026-10-19" {
		t.Errorf("date cell = %v", body.Values[0][0])
	}
	if body.Values[0][4] != float64(1300) {
		t.Errorf("total cell = %v", body.Values[0][4])
	}
}

func TestClient_SubmitPropagatesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})
	if err := c.Submit(context.Background(), core.ReportPayload{Date: "2026-10-19"}); err == nil {
		t.Fatal("expected error from forbidden append")
	}
}

func TestClient_PreviousTotal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Reports!A1:F3","values":[
			["Date","Starting cash","Daily income","Expenses","Total","Items"],
			["2026-10-17","100","50","20","170","[]"],
			["2026-10-18","200","80","40","320","[]"]]}`))
	})

	pt := c.PreviousTotal(context.Background())
	if !pt.Present || pt.Value != 320 {
		t.Fatalf("PreviousTotal = %+v, want 320", pt)
	}
}

func TestClient_PreviousTotalAbsentOnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if pt := c.PreviousTotal(context.Background()); pt.Present {
		t.Fatalf("expected absent previous total, got %+v", pt)
	}
}
