package memory

import (
	"context"
	"errors"
	"testing"

	"cafereport/internal/core"
)

func TestStore_SubmitAndPreviousTotal(t *testing.T) {
	s := New()
	ctx := context.Background()

	if got := s.PreviousTotal(ctx); got.Present {
		t.Fatalf("expected no previous total on an empty store")
	}

	if err := s.Submit(ctx, core.ReportPayload{Date: "2025-05-31", TotalExpenses: 880}); err != nil {
		t.Fatal(err)
	}
	if err := s.Submit(ctx, core.ReportPayload{Date: "2025-06-01", TotalExpenses: 1200.5}); err != nil {
		t.Fatal(err)
	}

	if got := s.PreviousTotal(ctx); got != core.NewPreviousTotal(1200.5) {
		t.Fatalf("PreviousTotal() = %+v", got)
	}
	if n := len(s.Reports()); n != 2 {
		t.Fatalf("expected 2 reports, got %d", n)
	}
}

func TestStore_FailWith(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailWith(boom)

	if err := s.Submit(context.Background(), core.ReportPayload{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if len(s.Reports()) != 0 {
		t.Fatalf("failed submit must not store the report")
	}

	s.FailWith(nil)
	if err := s.Submit(context.Background(), core.ReportPayload{}); err != nil {
		t.Fatalf("expected success after clearing failure, got %v", err)
	}
}
