package session

import (
	"context"
	"encoding/json"
	"errors"

	"openlink/internal/protocol"
	"openlink/internal/transport"
)

// Store wraps the cpdlc-sessions KVStore with read-modify-write-with-CAS
// semantics (§4.4.7), keyed by aircraft callsign.
type Store struct {
	kv transport.KVStore
}

// NewStore binds a Store to the network's cpdlc-sessions bucket.
func NewStore(kv transport.KVStore) *Store {
	return &Store{kv: kv}
}

// Load returns the stored session for aircraft, or a fresh zero-value one
// if this is its first contact.
func (s *Store) Load(ctx context.Context, aircraft protocol.Callsign, address protocol.AcarsEndpointAddress) (*StoredSession, uint64, error) {
	entry, err := s.kv.Get(ctx, string(aircraft))
	if errors.Is(err, transport.ErrKeyNotFound) {
		return newStoredSession(aircraft, address), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	var stored StoredSession
	if err := json.Unmarshal(entry.Value, &stored); err != nil {
		return nil, 0, err
	}
	if stored.MinCounters == nil {
		stored.MinCounters = MinCounters{}
	}
	return &stored, entry.Revision, nil
}

// Mutate loads the session for aircraft, applies fn, and writes the result
// back under compare-and-swap, retrying on contention up to a small bound
// per §4.4.7. fn returns the effects to emit; Mutate returns them to the
// caller once the write has landed.
func (s *Store) Mutate(ctx context.Context, aircraft protocol.Callsign, address protocol.AcarsEndpointAddress, fn func(*StoredSession) []Effect) ([]Effect, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		stored, revision, err := s.Load(ctx, aircraft, address)
		if err != nil {
			return nil, err
		}

		effects := fn(stored)

		encoded, err := json.Marshal(stored)
		if err != nil {
			return nil, err
		}

		if _, err := s.kv.CompareAndSwap(ctx, string(aircraft), encoded, revision); err != nil {
			if errors.Is(err, transport.ErrRevisionMismatch) || errors.Is(err, transport.ErrKeyExists) {
				continue
			}
			return nil, err
		}
		return effects, nil
	}
	return nil, errCASExhausted
}
