package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"cafereport/internal/core"
	"cafereport/internal/log"
)

func newTestRepository(t *testing.T, path, key string) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(path, key, nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_LoadEmpty(t *testing.T) {
	repo := newTestRepository(t, filepath.Join(t.TempDir(), "cafereport.db"), "form")

	_, ok, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Fatalf("expected no draft in a fresh database")
	}
}

func TestSQLiteRepository_SaveAndLoad(t *testing.T) {
	repo := newTestRepository(t, filepath.Join(t.TempDir(), "cafereport.db"), "form")
	ctx := context.Background()

	want := core.ReportDraft{
		Date:         "2025-06-01",
		StartingCash: "100",
		DailyIncome:  "50,5",
		Rows: []core.ExpenseRow{
			{ID: "1", Category: "Закупка Продуктов", Description: "хлеб", Amount: "30"},
			{ID: "2", Category: "Аренда", Amount: ""},
		},
	}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want.StartingCash = "120"
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, ok, err := repo.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestSQLiteRepository_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cafereport.db")
	ctx := context.Background()

	first, err := NewSQLiteRepository(path, "form", nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	if err := first.Save(ctx, core.NewDefaultDraft(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	first.Close()

	second := newTestRepository(t, path, "form")
	got, ok, err := second.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() after reopen = %v, %v", ok, err)
	}
	if got.Date != "2025-06-01" || len(got.Rows) != 1 {
		t.Fatalf("unexpected draft after reopen: %+v", got)
	}
}

func TestSQLiteRepository_KeysAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cafereport.db")
	a := newTestRepository(t, path, "a")
	b := newTestRepository(t, path, "b")
	ctx := context.Background()

	if err := a.Save(ctx, core.ReportDraft{Date: "2025-06-01"}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.Load(ctx); ok {
		t.Fatalf("draft saved under key a must not be visible under key b")
	}
}

func TestSQLiteRepository_UnreadableBodyIsTreatedAsMissing(t *testing.T) {
	repo := newTestRepository(t, filepath.Join(t.TempDir(), "cafereport.db"), "form")
	ctx := context.Background()

	if _, err := repo.db.ExecContext(ctx, `INSERT INTO drafts (key, body) VALUES (?, ?)`, "form", "{not json"); err != nil {
		t.Fatal(err)
	}
	_, ok, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Fatalf("expected unreadable draft to be reported as missing")
	}
}

func TestSQLiteRepository_Ping(t *testing.T) {
	repo := newTestRepository(t, filepath.Join(t.TempDir(), "cafereport.db"), "form")
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cafereport.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path, log.Discard())
		if err != nil {
			t.Fatalf("run %d: RunMigrations() error = %v", i+1, err)
		}
		if version != 1 {
			t.Fatalf("run %d: schema version = %d, want 1", i+1, version)
		}
	}
}
