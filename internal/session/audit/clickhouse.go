// Package audit implements the Session Engine's append-only envelope audit
// trail (§12): every inbound OpenLink envelope that passes the engine's
// source-scope check is recorded to ClickHouse for high-volume, write-once
// inspection.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"openlink/internal/protocol"
)

// Config holds ClickHouse connection settings for the audit sink.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Sink is a session.AuditSink backed by ClickHouse.
type Sink struct {
	conn driver.Conn
}

// Open connects to ClickHouse and ensures the envelopes table exists.
func Open(ctx context.Context, cfg Config) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	s := &Sink{conn: conn}
	if err := s.createSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) createSchema(ctx context.Context) error {
	return s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS envelopes (
			id              String,
			network         LowCardinality(String),
			timestamp       DateTime64(3),
			source_kind     LowCardinality(String),
			source_address  LowCardinality(String),
			dest_kind       LowCardinality(String),
			dest_address    LowCardinality(String),
			payload_kind    LowCardinality(String),
			payload_json    String,
			recorded_at     DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (network, timestamp, id)
		SETTINGS index_granularity = 8192`)
}

// Close closes the underlying ClickHouse connection.
func (s *Sink) Close() error {
	return s.conn.Close()
}

// RecordEnvelope implements session.AuditSink.
func (s *Sink) RecordEnvelope(ctx context.Context, network protocol.NetworkId, env protocol.OpenLinkEnvelope) error {
	payloadJSON, err := json.Marshal(env.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.conn.Exec(ctx, `
		INSERT INTO envelopes (id, network, timestamp, source_kind, source_address, dest_kind, dest_address, payload_kind, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, env.Id.String(), string(network), env.Timestamp,
		env.Routing.Source.Kind, string(env.Routing.Source.Address),
		env.Routing.Destination.Kind, string(env.Routing.Destination.Address),
		env.Payload.Kind, string(payloadJSON))
}

// Query holds filter options over the audit trail (§12 operational lookup).
type Query struct {
	Network protocol.NetworkId
	Kind    string
	Limit   int
}

// Record is one row retrieved from the audit trail.
type Record struct {
	ID            string
	Network       string
	Timestamp     time.Time
	SourceKind    string
	SourceAddress string
	DestKind      string
	DestAddress   string
	PayloadKind   string
	PayloadJSON   string
}

// Recent returns the most recently recorded envelopes matching q.
func (s *Sink) Recent(ctx context.Context, q Query) ([]Record, error) {
	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	query := `SELECT id, network, timestamp, source_kind, source_address, dest_kind, dest_address, payload_kind, payload_json FROM envelopes WHERE 1 = 1`
	var args []interface{}
	if q.Network != "" {
		query += " AND network = ?"
		args = append(args, string(q.Network))
	}
	if q.Kind != "" {
		query += " AND payload_kind = ?"
		args = append(args, q.Kind)
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d", limit)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query envelopes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Network, &r.Timestamp, &r.SourceKind, &r.SourceAddress, &r.DestKind, &r.DestAddress, &r.PayloadKind, &r.PayloadJSON); err != nil {
			return nil, fmt.Errorf("scan envelope row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate envelope rows: %w", err)
	}
	return out, nil
}
