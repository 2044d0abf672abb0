package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"openlink/internal/protocol"
	"openlink/internal/transport"
)

// StationRecord is the value stored in the station-registry KV bucket
// (§6), keyed by network address.
type StationRecord struct {
	Meta            protocol.StationMeta     `json:"meta"`
	Status          protocol.StationPresence `json:"status"`
	LastHeartbeatAt time.Time                `json:"last_heartbeat_at"`
}

// Registry wraps the station-registry KVStore with the presence
// operations §4.4.2 and §4.4.5 describe.
type Registry struct {
	kv transport.KVStore
}

// NewRegistry binds a Registry to the network's station-registry bucket.
func NewRegistry(kv transport.KVStore) *Registry {
	return &Registry{kv: kv}
}

// MarkOnline implements "StationStatus(Online) writes/refreshes a
// registry entry with last_heartbeat_at = now" (§4.4.2), retrying the
// compare-and-swap against concurrent heartbeats from the same station.
func (r *Registry) MarkOnline(ctx context.Context, address protocol.NetworkAddress, meta protocol.StationMeta) error {
	return r.upsert(ctx, address, func(rec StationRecord) StationRecord {
		rec.Meta = meta
		rec.Status = protocol.StationOnline
		rec.LastHeartbeatAt = time.Now().UTC()
		return rec
	})
}

// MarkOffline implements "StationStatus(Offline) marks the entry offline
// immediately" (§4.4.2). It reports whether the station's prior status was
// online, i.e. whether the caller must now run the auto-end-service rule.
func (r *Registry) MarkOffline(ctx context.Context, address protocol.NetworkAddress) (wasOnline bool, err error) {
	err = r.upsertChecked(ctx, address, func(rec StationRecord) (StationRecord, error) {
		wasOnline = rec.Status == protocol.StationOnline
		rec.Status = protocol.StationOffline
		return rec, nil
	})
	return wasOnline, err
}

// Get returns the current record for address.
func (r *Registry) Get(ctx context.Context, address protocol.NetworkAddress) (StationRecord, error) {
	entry, err := r.kv.Get(ctx, string(address))
	if err != nil {
		return StationRecord{}, err
	}
	var rec StationRecord
	if err := json.Unmarshal(entry.Value, &rec); err != nil {
		return StationRecord{}, err
	}
	return rec, nil
}

// ResolveByCallsign implements the §4.4.7 best-effort lookup: scans every
// registry entry for one whose callsign matches. O(n) in registry size,
// acceptable at the scale of a single network's active stations.
func (r *Registry) ResolveByCallsign(ctx context.Context, callsign protocol.Callsign) (protocol.NetworkAddress, StationRecord, bool, error) {
	keys, err := r.kv.Keys(ctx)
	if err != nil {
		return "", StationRecord{}, false, err
	}
	for _, k := range keys {
		rec, err := r.Get(ctx, protocol.NetworkAddress(k))
		if errors.Is(err, transport.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return "", StationRecord{}, false, err
		}
		if rec.Meta.Callsign == callsign {
			return protocol.NetworkAddress(k), rec, true, nil
		}
	}
	return "", StationRecord{}, false, nil
}

// SweepExpired implements §4.4.2's periodic sweeper: every entry whose
// lease has expired is marked offline. It returns the addresses that
// transitioned from online to offline in this pass, for the caller to run
// auto-end-service against.
func (r *Registry) SweepExpired(ctx context.Context, leaseTTL time.Duration) ([]protocol.NetworkAddress, error) {
	keys, err := r.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var expired []protocol.NetworkAddress
	for _, k := range keys {
		address := protocol.NetworkAddress(k)
		rec, err := r.Get(ctx, address)
		if errors.Is(err, transport.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.Status != protocol.StationOnline {
			continue
		}
		if now.Sub(rec.LastHeartbeatAt) <= leaseTTL {
			continue
		}
		if wasOnline, err := r.MarkOffline(ctx, address); err != nil {
			return nil, err
		} else if wasOnline {
			expired = append(expired, address)
		}
	}
	return expired, nil
}

const maxCASRetries = 5

// upsert is upsertChecked without a fallible mutator.
func (r *Registry) upsert(ctx context.Context, address protocol.NetworkAddress, mutate func(StationRecord) StationRecord) error {
	return r.upsertChecked(ctx, address, func(rec StationRecord) (StationRecord, error) {
		return mutate(rec), nil
	})
}

// upsertChecked implements the read-modify-write-with-retry loop §4.4.7
// requires for every KV mutation: "on conflict, retry up to a small
// bound; on exhaustion, log and drop the mutation."
func (r *Registry) upsertChecked(ctx context.Context, address protocol.NetworkAddress, mutate func(StationRecord) (StationRecord, error)) error {
	key := string(address)

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		var rec StationRecord
		var revision uint64

		entry, err := r.kv.Get(ctx, key)
		switch {
		case errors.Is(err, transport.ErrKeyNotFound):
			rec, revision = StationRecord{}, 0
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(entry.Value, &rec); err != nil {
				return err
			}
			revision = entry.Revision
		}

		next, err := mutate(rec)
		if err != nil {
			return err
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}

		if _, err := r.kv.CompareAndSwap(ctx, key, encoded, revision); err != nil {
			if errors.Is(err, transport.ErrRevisionMismatch) || errors.Is(err, transport.ErrKeyExists) {
				continue
			}
			return err
		}
		return nil
	}
	return errCASExhausted
}

var errCASExhausted = errors.New("session: compare-and-swap retries exhausted")
