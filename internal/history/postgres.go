package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" database/sql driver for migrations

	"github.com/JonMunkholm/tablegen/internal/core"
)

const (
	defaultRecentLimit = 100
	maxRecentLimit     = 1000
)

// PostgresConfig tunes the connection pool.
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectRetries  uint64 // attempts after the first; default 5
}

// Postgres stores run history in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, retrying with exponential backoff while the
// database comes up, then applies migrations.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("history: parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("history: create pool: %w", err)
	}

	retries := cfg.ConnectRetries
	if retries == 0 {
		retries = 5
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			slog.Warn("history database not ready", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}, policy)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: open migration connection: %w", err)
	}
	defer db.Close()

	n, err := RunMigrations(db, dialectPostgres)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	if n > 0 {
		slog.Info("applied history migrations", "count", n)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Record inserts rec. A record with an existing id is ignored.
func (p *Postgres) Record(ctx context.Context, rec core.RunRecord) error {
	artifacts, err := encodeArtifacts(rec.Artifacts)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO run_history (
			id, kind, status, failure_kind, detail,
			table_count, row_count, column_count, artifacts,
			client_ip, started_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, string(rec.Kind), string(rec.Status), rec.FailureKind, rec.Detail,
		rec.Tables, rec.Rows, rec.Columns, artifacts,
		rec.ClientIP, rec.StartedAt, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("history: insert run %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]core.RunRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, kind, status, failure_kind, detail,
		       table_count, row_count, column_count, artifacts::text,
		       client_ip, started_at, duration_ms
		FROM run_history
		ORDER BY started_at DESC, id DESC
		LIMIT $1`, clampLimit(limit))
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
			durationMS int64
		)
		if err := rows.Scan(
			&rec.ID, &kind, &status, &rec.FailureKind, &rec.Detail,
			&rec.Tables, &rec.Rows, &rec.Columns, &artifacts,
			&rec.ClientIP, &rec.StartedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		rec.Kind = core.RunKind(kind)
		rec.Status = core.RunStatus(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if rec.Artifacts, err = decodeArtifacts(artifacts); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	if limit > maxRecentLimit {
		return maxRecentLimit
	}
	return limit
}

func encodeArtifacts(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("history: encode artifacts: %w", err)
	}
	return string(b), nil
}

func decodeArtifacts(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return nil, fmt.Errorf("history: decode artifacts: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return keys, nil
}
