package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cafereport/internal/core"
	"cafereport/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the draft as a JSON blob under a fixed key.
type SQLiteRepository struct {
	db     *sql.DB
	key    string
	logger *log.Logger
}

func NewSQLiteRepository(dbPath, key string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	if _, err := RunMigrations(dbPath, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:     db,
		key:    key,
		logger: logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements draft.Repository
func (r *SQLiteRepository) Load(ctx context.Context) (core.ReportDraft, bool, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM drafts WHERE key = ?`, r.key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ReportDraft{}, false, nil
	}
	if err != nil {
		return core.ReportDraft{}, false, fmt.Errorf("query draft: %w", err)
	}

	var d core.ReportDraft
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		// An unreadable blob is treated like a missing one so the form still opens.
		r.logger.WarnContext(ctx, "Discarding unreadable draft",
			log.FieldDraftKey, r.key,
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		return core.ReportDraft{}, false, nil
	}
	return d, true, nil
}

// Save implements draft.Repository
func (r *SQLiteRepository) Save(ctx context.Context, d core.ReportDraft) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO drafts (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		r.key, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}

	r.logger.DebugContext(ctx, "Draft saved to SQLite",
		log.FieldDraftKey, r.key,
		log.FieldRowCount, len(d.Rows))
	return nil
}

// Ping checks that the database is reachable. Used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
