// Package sqlitekv is an embedded, single-process stand-in for the
// JetStream key/value bucket, for development and tests that would
// otherwise need a live broker. It satisfies transport.KVStore with the
// same compare-and-swap contract, backed by modernc.org/sqlite.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"

	"openlink/internal/transport"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key      TEXT PRIMARY KEY,
	value    BLOB NOT NULL,
	revision INTEGER NOT NULL
);
`

// Store is an embedded KVStore. A Store is bound to a single bucket name;
// open one per bucket, mirroring NatsKVStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a sqlite-backed bucket at path. Pass
// ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (transport.Entry, error) {
	var value []byte
	var revision uint64
	err := s.db.QueryRowContext(ctx, `SELECT value, revision FROM kv WHERE key = ?`, key).Scan(&value, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return transport.Entry{}, transport.ErrKeyNotFound
	}
	if err != nil {
		return transport.Entry{}, err
	}
	return transport.Entry{Value: value, Revision: revision}, nil
}

func (s *Store) Create(ctx context.Context, key string, value []byte) (transport.Entry, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, revision) SELECT ?, ?, 1 WHERE NOT EXISTS (SELECT 1 FROM kv WHERE key = ?)`,
		key, value, key)
	if err != nil {
		return transport.Entry{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return transport.Entry{}, err
	}
	if n == 0 {
		return transport.Entry{}, transport.ErrKeyExists
	}
	return transport.Entry{Value: value, Revision: 1}, nil
}

// CompareAndSwap mirrors the JetStream bucket's semantics: expectedRevision
// 0 means "must not already exist" (delegated to Create); otherwise the
// write only lands if the stored revision still matches.
func (s *Store) CompareAndSwap(ctx context.Context, key string, value []byte, expectedRevision uint64) (transport.Entry, error) {
	if expectedRevision == 0 {
		return s.Create(ctx, key, value)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transport.Entry{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var currentRevision uint64
	err = tx.QueryRowContext(ctx, `SELECT revision FROM kv WHERE key = ?`, key).Scan(&currentRevision)
	if errors.Is(err, sql.ErrNoRows) {
		return transport.Entry{}, transport.ErrRevisionMismatch
	}
	if err != nil {
		return transport.Entry{}, err
	}
	if currentRevision != expectedRevision {
		return transport.Entry{}, transport.ErrRevisionMismatch
	}

	newRevision := currentRevision + 1
	if _, err := tx.ExecContext(ctx, `UPDATE kv SET value = ?, revision = ? WHERE key = ?`, value, newRevision, key); err != nil {
		return transport.Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return transport.Entry{}, err
	}
	return transport.Entry{Value: value, Revision: newRevision}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

var _ transport.KVStore = (*Store)(nil)
