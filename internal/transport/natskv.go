package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsKVStore is the production KVStore, backed by a JetStream key/value
// bucket. Its Update/Create calls are natively compare-and-swap, so
// CompareAndSwap maps directly onto the broker's own revision check
// instead of a client-side retry loop.
type NatsKVStore struct {
	kv jetstream.KeyValue
}

// OpenNatsKVStore creates the bucket if absent and returns a store bound to
// it. History is kept at 1: the Session Engine only ever needs the current
// value, durability of the audit trail is the ClickHouse log's job.
func OpenNatsKVStore(ctx context.Context, nc *nats.Conn, bucket string) (*NatsKVStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("transport: jetstream context: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: open bucket %s: %w", bucket, err)
	}
	return &NatsKVStore{kv: kv}, nil
}

func (s *NatsKVStore) Get(ctx context.Context, key string) (Entry, error) {
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return Entry{}, ErrKeyNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("transport: get %s: %w", key, err)
	}
	return Entry{Value: entry.Value(), Revision: entry.Revision()}, nil
}

func (s *NatsKVStore) Create(ctx context.Context, key string, value []byte) (Entry, error) {
	rev, err := s.kv.Create(ctx, key, value)
	if errors.Is(err, jetstream.ErrKeyExists) {
		return Entry{}, ErrKeyExists
	}
	if err != nil {
		return Entry{}, fmt.Errorf("transport: create %s: %w", key, err)
	}
	return Entry{Value: value, Revision: rev}, nil
}

func (s *NatsKVStore) CompareAndSwap(ctx context.Context, key string, value []byte, expectedRevision uint64) (Entry, error) {
	if expectedRevision == 0 {
		return s.Create(ctx, key, value)
	}
	rev, err := s.kv.Update(ctx, key, value, expectedRevision)
	if errors.Is(err, jetstream.ErrKeyExists) || isWrongLastSequence(err) {
		return Entry{}, ErrRevisionMismatch
	}
	if err != nil {
		return Entry{}, fmt.Errorf("transport: compare-and-swap %s: %w", key, err)
	}
	return Entry{Value: value, Revision: rev}, nil
}

func (s *NatsKVStore) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("transport: delete %s: %w", key, err)
	}
	return nil
}

func (s *NatsKVStore) Keys(ctx context.Context) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("transport: list keys: %w", err)
	}
	var keys []string
	for k := range lister.Keys() {
		keys = append(keys, k)
	}
	return keys, nil
}

// isWrongLastSequence detects the JetStream "wrong last sequence" error
// returned when Update races against a concurrent writer. jetstream.go does
// not export a sentinel for it, so it's matched by the APIError code NATS
// itself defines (10071).
func isWrongLastSequence(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == 10071
}
