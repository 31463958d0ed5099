// Package history keeps a record of completed builds in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/site"
)

// Build summarizes one pipeline run.
type Build struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Outcome     string
	Documents   int
	Failed      int
	Warnings    int
	Errors      int
	Digest      string
	Diagnostics diagnostics.Report
}

// FromModel summarizes a finished run over m.
func FromModel(m *site.Model, started time.Time, elapsed time.Duration, outcome string) Build {
	report := m.Report()
	counts := report.Counts()
	return Build{
		StartedAt:   started,
		Duration:    elapsed,
		Outcome:     outcome,
		Documents:   m.Len(),
		Failed:      len(m.Failed()),
		Warnings:    counts[diagnostics.SeverityWarning],
		Errors:      counts[diagnostics.SeverityError] + counts[diagnostics.SeverityFatal],
		Digest:      m.Digest(),
		Diagnostics: report,
	}
}

// Store persists builds. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, wrap(ErrOpenFailed, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap(ErrOpenFailed, err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, wrap(ErrSchemaFailed, err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		documents INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		digest TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	CREATE TABLE IF NOT EXISTS diagnostics (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		severity TEXT NOT NULL,
		path TEXT NOT NULL,
		code TEXT NOT NULL,
		message TEXT NOT NULL,
		PRIMARY KEY (build_id, seq)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores b and returns its ID, generating one when b.ID is empty.
func (s *Store) Record(ctx context.Context, b Build) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", wrap(ErrRecordFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, started_at, duration_ms, outcome, documents, failed, warnings, errors, digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.StartedAt.UnixMilli(), b.Duration.Milliseconds(), b.Outcome,
		b.Documents, b.Failed, b.Warnings, b.Errors, b.Digest,
	)
	if err != nil {
		return "", wrap(ErrRecordFailed, fmt.Errorf("insert build: %w", err))
	}

	for i, d := range b.Diagnostics {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO diagnostics (build_id, seq, severity, path, code, message) VALUES (?, ?, ?, ?, ?, ?)",
			b.ID, i, string(d.Severity), d.Path, string(d.Code), d.Message,
		)
		if err != nil {
			return "", wrap(ErrRecordFailed, fmt.Errorf("insert diagnostic: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return "", wrap(ErrRecordFailed, err)
	}
	return b.ID, nil
}

const buildColumns = "id, started_at, duration_ms, outcome, documents, failed, warnings, errors, digest"

// List returns up to limit builds, newest first, without diagnostics. A
// non-positive limit returns all builds.
func (s *Store) List(ctx context.Context, limit int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+buildColumns+" FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return builds, nil
}

// Get returns one build with its diagnostics.
func (s *Store) Get(ctx context.Context, id string) (Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+buildColumns+" FROM builds WHERE id = ?", id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, ferrors.WrapError(err, ErrNotFound.Category(), ErrNotFound.Message()).WithContext("id", id).Build()
	}
	if err != nil {
		return Build{}, wrap(ErrQueryFailed, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT severity, path, code, message FROM diagnostics WHERE build_id = ? ORDER BY seq", id)
	if err != nil {
		return Build{}, wrap(ErrQueryFailed, err)
	}
	defer rows.Close()
	for rows.Next() {
		var d diagnostics.Diagnostic
		var severity, code string
		if err := rows.Scan(&severity, &d.Path, &code, &d.Message); err != nil {
			return Build{}, wrap(ErrQueryFailed, err)
		}
		d.Severity = diagnostics.Severity(severity)
		d.Code = diagnostics.Code(code)
		b.Diagnostics = append(b.Diagnostics, d)
	}
	if err := rows.Err(); err != nil {
		return Build{}, wrap(ErrQueryFailed, err)
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(sc scanner) (Build, error) {
	var b Build
	var startedMS, durationMS int64
	err := sc.Scan(&b.ID, &startedMS, &durationMS, &b.Outcome, &b.Documents, &b.Failed, &b.Warnings, &b.Errors, &b.Digest)
	if err != nil {
		return Build{}, err
	}
	b.StartedAt = time.UnixMilli(startedMS)
	b.Duration = time.Duration(durationMS) * time.Millisecond
	return b, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
