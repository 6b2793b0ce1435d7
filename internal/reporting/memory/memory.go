// Package memory is an in-process report sink for local development and tests.
package memory

import (
	"context"
	"sync"

	"cafereport/internal/core"
	"cafereport/internal/reporting"
)

var _ reporting.Sink = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	reports []core.ReportPayload
	failErr error
}

func New() *Store {
	return &Store{}
}

// Submit stores the report, or returns the error set by FailWith.
func (s *Store) Submit(_ context.Context, p core.ReportPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	p.Expenses = append([]core.ExpensePayload(nil), p.Expenses...)
	s.reports = append(s.reports, p)
	return nil
}

// PreviousTotal returns the total of the last stored report.
func (s *Store) PreviousTotal(_ context.Context) core.PreviousTotal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return core.NoPreviousTotal
	}
	v := s.reports[len(s.reports)-1].TotalExpenses
	if v == 0 {
		return core.NoPreviousTotal
	}
	return core.NewPreviousTotal(v)
}

// Reports returns the stored reports in submission order.
func (s *Store) Reports() []core.ReportPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ReportPayload(nil), s.reports...)
}

// FailWith makes every following Submit return err. nil restores normal behavior.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}
