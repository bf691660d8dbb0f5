package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/tablegen/internal/core"
)

// SQLite has no timestamp type; start times are stored as fixed-width UTC
// text so they round-trip exactly.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite stores run history in a SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies migrations.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping sqlite: %w", err)
	}
	if _, err := RunMigrations(db, dialectSQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Record inserts rec. A record with an existing id is ignored.
func (s *SQLite) Record(ctx context.Context, rec core.RunRecord) error {
	artifacts, err := encodeArtifacts(rec.Artifacts)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO run_history (
			id, kind, status, failure_kind, detail,
			table_count, row_count, column_count, artifacts,
			client_ip, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), string(rec.Status), rec.FailureKind, rec.Detail,
		rec.Tables, rec.Rows, rec.Columns, artifacts,
		rec.ClientIP, rec.StartedAt.UTC().Format(sqliteTimeLayout), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("history: insert run %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]core.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, status, failure_kind, detail,
		       table_count, row_count, column_count, artifacts,
		       client_ip, started_at, duration_ms
		FROM run_history
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var out []core.RunRecord
	for rows.Next() {
		var (
			rec        core.RunRecord
			kind       string
			status     string
			artifacts  string
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(
			&rec.ID, &kind, &status, &rec.FailureKind, &rec.Detail,
			&rec.Tables, &rec.Rows, &rec.Columns, &artifacts,
			&rec.ClientIP, &startedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		rec.Kind = core.RunKind(kind)
		rec.Status = core.RunStatus(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if rec.StartedAt, err = time.Parse(sqliteTimeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("history: parse started_at %q: %w", startedAt, err)
		}
		if rec.Artifacts, err = decodeArtifacts(artifacts); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
