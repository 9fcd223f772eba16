package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var sqliteHistorySchema = []string{`
CREATE TABLE IF NOT EXISTS registration_runs (
	run_id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	loaded INTEGER NOT NULL,
	payload BLOB NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS registration_runs_started_at ON registration_runs (started_at)`,
}

const (
	defaultSQLiteStoreDir = ".petaltools"
	defaultSQLiteStoreDB  = "petaltools.db"
)

// SQLiteHistoryStore persists coordinator summaries in SQLite.
type SQLiteHistoryStore struct {
	db *sql.DB
}

// DefaultSQLitePath returns the default SQLite path for CLI/daemon storage.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("tool: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultSQLiteStoreDir, defaultSQLiteStoreDB), nil
}

// NewSQLiteHistoryStore opens (or creates) the history database at dsn.
func NewSQLiteHistoryStore(dsn string) (*SQLiteHistoryStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("tool: sqlite store dsn is required")
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = filepath.Clean(dsn)
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("tool: sqlite store create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool: sqlite store set WAL mode: %w", err)
	}

	for _, stmt := range sqliteHistorySchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("tool: sqlite store create schema: %w", err)
		}
	}

	return &SQLiteHistoryStore{db: db}, nil
}

// Append stores summary. Re-appending a run ID replaces the earlier record.
func (s *SQLiteHistoryStore) Append(ctx context.Context, summary Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("tool: sqlite store is nil")
	}
	if strings.TrimSpace(summary.RunID) == "" {
		return errors.New("tool: sqlite store run id is required")
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("tool: sqlite encode summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO registration_runs (run_id, started_at, loaded, payload)
VALUES (?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
	started_at = excluded.started_at,
	loaded = excluded.loaded,
	payload = excluded.payload`,
		summary.RunID,
		summary.StartedAt.UTC().Format(time.RFC3339Nano),
		summary.LoadedCount(),
		payload,
	)
	if err != nil {
		return fmt.Errorf("tool: sqlite append summary: %w", err)
	}
	return nil
}

// List returns up to limit summaries, newest first.
func (s *SQLiteHistoryStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, errors.New("tool: sqlite store is nil")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT payload
FROM registration_runs
ORDER BY started_at DESC, rowid DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("tool: sqlite scan summary: %w", err)
		}
		var summary Summary
		if err := json.Unmarshal(payload, &summary); err != nil {
			return nil, fmt.Errorf("tool: sqlite decode summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tool: sqlite summary rows: %w", err)
	}
	return summaries, nil
}

// Close releases the database handle.
func (s *SQLiteHistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
