package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

// ConnectErrorKind classifies why Connect failed.
type ConnectErrorKind int

const (
	// AuthRejected means the broker rejected the JWT/nkey handshake.
	AuthRejected ConnectErrorKind = iota
	// NetworkError means the broker could not be reached at all.
	NetworkError
	// ProtocolMismatch means the broker speaks an incompatible protocol
	// version.
	ProtocolMismatch
)

func (k ConnectErrorKind) String() string {
	switch k {
	case AuthRejected:
		return "AuthRejected"
	case NetworkError:
		return "NetworkError"
	case ProtocolMismatch:
		return "ProtocolMismatch"
	default:
		return "Unknown"
	}
}

// ConnectError is returned by Connect.
type ConnectError struct {
	Kind  ConnectErrorKind
	Cause error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect failed (%s): %v", e.Kind, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

func classifyConnectError(err error) *ConnectError {
	switch {
	case errors.Is(err, nats.ErrAuthorization), errors.Is(err, nats.ErrAuthExpired), errors.Is(err, nats.ErrAuthRevoked):
		return &ConnectError{Kind: AuthRejected, Cause: err}
	case errors.Is(err, nats.ErrNoServers), errors.Is(err, nats.ErrTimeout):
		return &ConnectError{Kind: NetworkError, Cause: err}
	case errors.Is(err, nats.ErrProtocolMismatch), errors.Is(err, nats.ErrServerVersionMismatch):
		return &ConnectError{Kind: ProtocolMismatch, Cause: err}
	default:
		return &ConnectError{Kind: NetworkError, Cause: err}
	}
}

// Connection wraps an authenticated broker connection and the set of
// subjects a re-subscribe pass must restore on reconnect, per §4.2.
type Connection struct {
	nc *nats.Conn

	mu            sync.Mutex
	resubscribers []func()
}

// Connect performs the authenticated bootstrap: a NATS connection secured
// with the scoped transport JWT, signed with the caller's nkey seed.
func Connect(natsURL, jwt string, userKeyPair nkeys.KeyPair) (*Connection, error) {
	conn := &Connection{}

	opts := []nats.Option{
		nats.Name("openlink-client"),
		nats.Timeout(10 * time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.UserJWT(
			func() (string, error) { return jwt, nil },
			func(nonce []byte) ([]byte, error) { return userKeyPair.Sign(nonce) },
		),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("transport: reconnected to %s, resubscribing", natsURL)
			conn.resubscribeAll()
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("transport: disconnected: %v", err)
			}
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, classifyConnectError(err)
	}
	conn.nc = nc
	return conn, nil
}

// Raw returns the underlying *nats.Conn for components (e.g. JetStream KV)
// that need it directly.
func (c *Connection) Raw() *nats.Conn { return c.nc }

// Publish is a fire-and-forget publish to subject.
func (c *Connection) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

// Flush blocks until the broker has acknowledged receipt of all prior
// publishes, per the §4.2 flush boundary.
func (c *Connection) Flush() error {
	return c.nc.Flush()
}

// Close drains and closes the connection.
func (c *Connection) Close() {
	_ = c.nc.Drain()
}

// InboxStream is a single-consumer lazy sequence of envelope bytes received
// on one subject.
type InboxStream struct {
	sub    *nats.Subscription
	ch     chan []byte
	cancel context.CancelFunc
}

// Messages returns the channel of raw envelope bytes. The channel is closed
// when the stream is cancelled.
func (s *InboxStream) Messages() <-chan []byte { return s.ch }

// Cancel unsubscribes and stops delivery.
func (s *InboxStream) Cancel() {
	s.cancel()
	_ = s.sub.Unsubscribe()
}

// SubscribeInbox subscribes to the inbox subject for address and returns a
// lazy stream of envelope bytes. The subscription is transparently
// restored across broker reconnects (§4.2), ahead of any further outbox
// publish by the caller.
func (c *Connection) SubscribeInbox(ctx context.Context, subject string) (*InboxStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan []byte, 64)

	subscribe := func() *nats.Subscription {
		sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
			select {
			case ch <- msg.Data:
			case <-ctx.Done():
			}
		})
		if err != nil {
			log.Printf("transport: resubscribe to %s failed: %v", subject, err)
			return nil
		}
		return sub
	}

	sub := subscribe()
	if sub == nil {
		cancel()
		return nil, fmt.Errorf("transport: initial subscribe to %s failed", subject)
	}

	stream := &InboxStream{sub: sub, ch: ch, cancel: cancel}

	c.mu.Lock()
	c.resubscribers = append(c.resubscribers, func() {
		if ns := subscribe(); ns != nil {
			stream.sub = ns
		}
	})
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		close(ch)
	}()

	return stream, nil
}

func (c *Connection) resubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fn := range c.resubscribers {
		fn()
	}
}

// SubscribeWildcard subscribes to a wildcard subject (the server's outbox
// wildcard) and invokes handler for every message, in delivery order, on a
// single goroutine per subscription.
func (c *Connection) SubscribeWildcard(subject string, handler func(subject string, data []byte)) (*nats.Subscription, error) {
	return c.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
}
