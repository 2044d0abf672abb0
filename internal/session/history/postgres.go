// Package history archives point-in-time CPDLC session snapshots to
// PostgreSQL for operational lookup (§12), adapted from the durable
// archival layer the rest of the pack uses for reference data.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"openlink/internal/protocol"
)

// Config holds PostgreSQL connection settings for the history archive.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // disable, require, verify-ca, verify-full. Default: disable.
}

// Store is a session.HistorySink backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open opens a connection pool and ensures the session_snapshots table
// exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Database, sslMode)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_snapshots (
			id              BIGSERIAL PRIMARY KEY,
			network         TEXT NOT NULL,
			aircraft        TEXT NOT NULL,
			recorded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			view_json       JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_session_snapshots_aircraft ON session_snapshots(network, aircraft, recorded_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RecordSnapshot implements session.HistorySink.
func (s *Store) RecordSnapshot(ctx context.Context, network protocol.NetworkId, view protocol.CpdlcSessionView) error {
	viewJSON, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal session view: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_snapshots (network, aircraft, view_json)
		VALUES ($1, $2, $3)
	`, string(network), string(view.Aircraft), viewJSON)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Snapshot is one archived row returned by History.
type Snapshot struct {
	RecordedAt time.Time
	View       protocol.CpdlcSessionView
}

// History returns the most recent snapshots for aircraft on network, newest
// first, bounded by limit.
func (s *Store) History(ctx context.Context, network protocol.NetworkId, aircraft protocol.Callsign, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT recorded_at, view_json FROM session_snapshots
		WHERE network = $1 AND aircraft = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`, string(network), string(aircraft), limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var recordedAt time.Time
		var raw []byte
		if err := rows.Scan(&recordedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		var view protocol.CpdlcSessionView
		if err := json.Unmarshal(raw, &view); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot view: %w", err)
		}
		out = append(out, Snapshot{RecordedAt: recordedAt, View: view})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return out, nil
}
