// Package transport fixes the OpenLink subject-naming scheme and the
// authenticated broker connection bootstrap (§4.2). It is the thin layer
// every other component talks to the message broker through.
package transport

import (
	"fmt"

	"openlink/internal/protocol"
)

// OutboxSubject returns the subject a client with the given network address
// publishes to, and the server's wildcard subscription matches.
func OutboxSubject(network protocol.NetworkId, address protocol.NetworkAddress) string {
	return fmt.Sprintf("openlink.v1.%s.outbox.%s", network, address)
}

// InboxSubject returns the subject a client with the given network address
// subscribes to, and the server publishes to.
func InboxSubject(network protocol.NetworkId, address protocol.NetworkAddress) string {
	return fmt.Sprintf("openlink.v1.%s.inbox.%s", network, address)
}

// OutboxWildcard returns the server's wildcard subscription subject for a
// network.
func OutboxWildcard(network protocol.NetworkId) string {
	return fmt.Sprintf("openlink.v1.%s.outbox.>", network)
}

// SessionBucket returns the durable KV bucket name for a network's CPDLC
// session state.
func SessionBucket(network protocol.NetworkId) string {
	return fmt.Sprintf("openlink-v1-%s-cpdlc-sessions", network)
}

// RegistryBucket returns the durable KV bucket name for a network's station
// registry.
func RegistryBucket(network protocol.NetworkId) string {
	return fmt.Sprintf("openlink-v1-%s-station-registry", network)
}
