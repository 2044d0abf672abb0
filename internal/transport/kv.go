package transport

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key does not exist in the
// bucket.
var ErrKeyNotFound = errors.New("transport: key not found")

// ErrRevisionMismatch is returned by CompareAndSwap when the supplied
// revision is no longer current, i.e. another writer raced ahead.
var ErrRevisionMismatch = errors.New("transport: revision mismatch")

// ErrKeyExists is returned by Create when the key is already present.
var ErrKeyExists = errors.New("transport: key already exists")

// Entry is a single stored value together with the revision it was read
// at. Revision is opaque to callers; it exists only to be handed back to
// CompareAndSwap.
type Entry struct {
	Value    []byte
	Revision uint64
}

// KVStore is the compare-and-swap key/value contract the Session Engine
// uses for both the cpdlc-sessions and station-registry buckets (§4.4.7:
// "read-modify-write uses compare-and-swap"). It is satisfied by a
// JetStream-backed bucket in production and by an embedded sqlite bucket
// in development and tests.
type KVStore interface {
	// Get reads the current value and revision for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (Entry, error)

	// Create writes key only if it does not already exist, returning
	// ErrKeyExists otherwise.
	Create(ctx context.Context, key string, value []byte) (Entry, error)

	// CompareAndSwap writes value to key only if the bucket's current
	// revision for key equals expectedRevision, returning
	// ErrRevisionMismatch otherwise. A key absent entirely is expectedRevision
	// 0, equivalent to Create.
	CompareAndSwap(ctx context.Context, key string, value []byte, expectedRevision uint64) (Entry, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every key currently in the bucket, for the presence
	// sweeper (§4.4.5) and registry enumeration.
	Keys(ctx context.Context) ([]string, error)
}
