// Package draft holds the in-progress report and persists every change
// through a Repository so the draft survives restarts.
package draft

import (
	"context"
	"sync"

	"cafereport/internal/core"
)

// Repository persists the single draft blob.
type Repository interface {
	// Load returns the saved draft. ok is false when nothing was saved yet.
	Load(ctx context.Context) (d core.ReportDraft, ok bool, err error)
	Save(ctx context.Context, d core.ReportDraft) error
}

// MemoryRepository keeps the draft in process memory. Used by the memory
// draft backend and in tests.
type MemoryRepository struct {
	mu    sync.Mutex
	draft core.ReportDraft
	saved bool
	saves int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Load(_ context.Context) (core.ReportDraft, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return core.ReportDraft{}, false, nil
	}
	return m.draft.Clone(), true, nil
}

func (m *MemoryRepository) Save(_ context.Context, d core.ReportDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draft = d.Clone()
	m.saved = true
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
