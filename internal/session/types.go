// Package session implements the Session Engine (§4.4), the server-side
// component that owns the per-aircraft CPDLC state machine and the
// station presence registry, one logical instance per network.
package session

import (
	"openlink/internal/protocol"
)

// MinCounters tracks the next MIN to assign per (peer, sender-direction)
// within one aircraft's session, cyclically in 1..63 (§4.4.4).
type MinCounters map[string]int

func minCounterKey(peer protocol.Callsign, dir protocol.Direction) string {
	return string(peer) + "|" + string(dir)
}

// Next returns the next MIN for (peer, dir) and advances the counter,
// wrapping from 63 back to 1, never landing on the 0 placeholder value.
func (c MinCounters) Next(peer protocol.Callsign, dir protocol.Direction) int {
	key := minCounterKey(peer, dir)
	next := c[key] + 1
	if next > 63 {
		next = 1
	}
	c[key] = next
	return next
}

// StoredSession is the value serialised into the cpdlc-sessions KV bucket
// (§6): a session view plus its MIN counters.
type StoredSession struct {
	View        protocol.CpdlcSessionView `json:"view"`
	MinCounters MinCounters               `json:"min_counters"`

	// AircraftNetworkAddress is the CID-derived NetworkAddress the gateway
	// authenticated this aircraft's own traffic under (§4.3), learned the
	// first time the aircraft originates a message into this session. It is
	// server-internal routing state, not part of the client-facing session
	// snapshot: aircraft are never registered in the station presence
	// registry, so it is the only way to address a forward/snapshot back to
	// the aircraft by its real inbox subject rather than its callsign.
	AircraftNetworkAddress protocol.NetworkAddress `json:"aircraft_network_address,omitempty"`
}

func newStoredSession(aircraft protocol.Callsign, address protocol.AcarsEndpointAddress) *StoredSession {
	return &StoredSession{
		View: protocol.CpdlcSessionView{
			Aircraft:        aircraft,
			AircraftAddress: address,
		},
		MinCounters: MinCounters{},
	}
}

// EffectKind distinguishes the three kinds of outbound action a transition
// can emit.
type EffectKind int

const (
	// ForwardMessage re-publishes (possibly mutated, for MIN assignment)
	// the triggering message to the named recipient's inbox.
	ForwardMessage EffectKind = iota
	// PublishSnapshot publishes a SessionUpdate meta message to the named
	// recipient's inbox (§4.4.6).
	PublishSnapshot
	// PublishDownlink synthesises and publishes a bare downlink element
	// (DM63/DM107/DM62) to the named recipient's inbox, e.g. the
	// unauthorised-traffic rejection in §4.4.3.
	PublishDownlink
)

// Effect is one outbound action a state transition produces. The engine
// is responsible for turning it into an actual envelope publish.
type Effect struct {
	Kind      EffectKind
	Recipient protocol.Callsign

	// Populated for ForwardMessage: the (possibly MIN-stamped) message to
	// re-publish, and the logical source/destination callsigns carried in
	// the forwarded CPDLC envelope (independent of Recipient, which is the
	// network address resolution target).
	ForwardedMeta        *protocol.CpdlcMetaMessage
	ForwardedApplication *protocol.CpdlcApplicationMessage
	ForwardSource        protocol.Callsign
	ForwardDestination   protocol.Callsign

	// Populated for PublishSnapshot.
	Snapshot *protocol.CpdlcSessionView

	// Populated for PublishDownlink.
	DownlinkElementID string
	DownlinkText      string
}
