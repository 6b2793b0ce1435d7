package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cafereport/internal/core"
	"cafereport/internal/log"
)

// ErrDraftChanged is returned by ResetIfUnchanged when the draft was edited
// after the snapshot was taken.
var ErrDraftChanged = errors.New("draft changed since it was submitted")

// Store is the draft store. Every mutation is written to the repository
// before it becomes visible; a failed save leaves the draft unchanged.
type Store struct {
	mu     sync.Mutex
	repo   Repository
	draft  core.ReportDraft
	logger *log.Logger

	now   func() time.Time
	newID func() string
}

// NewStore loads the saved draft from repo, or starts from the default draft.
func NewStore(ctx context.Context, repo Repository, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Store{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentDraft),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	d, ok, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load draft: %w", err)
	}
	if !ok {
		s.draft = core.NewDefaultDraft(s.now())
		s.logger.DebugContext(ctx, "No saved draft, starting from defaults", log.FieldOperation, log.OpRead)
		return nil
	}
	if len(d.Rows) == 0 {
		d.Rows = []core.ExpenseRow{core.NewDefaultRow(core.DefaultRowID)}
		s.logger.WarnContext(ctx, "Saved draft had no rows, added a default row", log.FieldOperation, log.OpRead)
	}
	s.draft = d
	return nil
}

// Get returns a copy of the current draft.
func (s *Store) Get() core.ReportDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// SetHeaderField updates date, startingCash or dailyIncome.
func (s *Store) SetHeaderField(ctx context.Context, field, value string) (core.ReportDraft, error) {
	fields := log.NewFields().WithOperation(log.OpUpdate)
	fields[log.FieldField] = field
	return s.mutate(ctx, fields, func(d *core.ReportDraft) error {
		if err := d.SetHeader(field, value); err != nil {
			return fmt.Errorf("set header %q: %w", field, err)
		}
		return nil
	})
}

// AddRow appends a blank default-category row with a fresh id and returns it.
func (s *Store) AddRow(ctx context.Context) (core.ExpenseRow, core.ReportDraft, error) {
	var row core.ExpenseRow
	fields := log.NewFields().WithOperation(log.OpAddRow)
	d, err := s.mutate(ctx, fields, func(d *core.ReportDraft) error {
		row = core.NewDefaultRow(s.uniqueID(*d))
		fields.WithRow(row.ID, "")
		d.Rows = append(d.Rows, row)
		return nil
	})
	return row, d, err
}

// RemoveRow deletes the row with the given id. The last remaining row can't
// be removed: ErrLastRow is returned and the draft is left as it was.
func (s *Store) RemoveRow(ctx context.Context, id string) (core.ReportDraft, error) {
	return s.mutate(ctx, log.NewFields().WithOperation(log.OpRemoveRow).WithRow(id, ""), func(d *core.ReportDraft) error {
		i := d.RowIndex(id)
		if i < 0 {
			return fmt.Errorf("remove row %q: %w", id, core.ErrRowNotFound)
		}
		if len(d.Rows) == 1 {
			return core.ErrLastRow
		}
		d.Rows = append(d.Rows[:i], d.Rows[i+1:]...)
		return nil
	})
}

// UpdateRow sets category, description or amount on the row with the given id.
func (s *Store) UpdateRow(ctx context.Context, id, field, value string) (core.ReportDraft, error) {
	return s.mutate(ctx, log.NewFields().WithOperation(log.OpUpdateRow).WithRow(id, field), func(d *core.ReportDraft) error {
		i := d.RowIndex(id)
		if i < 0 {
			return fmt.Errorf("update row %q: %w", id, core.ErrRowNotFound)
		}
		if err := d.Rows[i].Set(field, value); err != nil {
			return fmt.Errorf("update row %q field %q: %w", id, field, err)
		}
		return nil
	})
}

// Reset returns the draft to its defaults: today's date, empty numeric
// fields and one blank row.
func (s *Store) Reset(ctx context.Context) (core.ReportDraft, error) {
	return s.mutate(ctx, log.NewFields().WithOperation(log.OpReset), func(d *core.ReportDraft) error {
		*d = core.NewDefaultDraft(s.now())
		return nil
	})
}

// ResetIfUnchanged resets the draft only when it still equals snapshot.
// Otherwise the draft is kept and ErrDraftChanged is returned along with it.
func (s *Store) ResetIfUnchanged(ctx context.Context, snapshot core.ReportDraft) (core.ReportDraft, error) {
	return s.mutate(ctx, log.NewFields().WithOperation(log.OpReset), func(d *core.ReportDraft) error {
		if !d.Equal(snapshot) {
			return ErrDraftChanged
		}
		*d = core.NewDefaultDraft(s.now())
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, fields log.LogFields, fn func(*core.ReportDraft) error) (core.ReportDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.draft.Clone()
	if err := fn(&next); err != nil {
		return s.draft.Clone(), err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		fields.WithErrorType(log.ErrorTypeDatabase).WithError(err)
		s.logger.ErrorContext(ctx, "Failed to persist draft", fields.ToSlice()...)
		return s.draft.Clone(), fmt.Errorf("save draft: %w", err)
	}
	s.draft = next

	fields[log.FieldRowCount] = len(next.Rows)
	s.logger.DebugContext(ctx, "Draft updated", fields.ToSlice()...)
	return next.Clone(), nil
}

func (s *Store) uniqueID(d core.ReportDraft) string {
	for {
		id := s.newID()
		if d.RowIndex(id) < 0 {
			return id
		}
	}
}
