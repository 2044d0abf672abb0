// Package client is the OpenLink SDK: a typed surface over the transport so
// product UIs (CLI, GUI, browser cockpit) never handle protocol rules
// directly, adapted from hoppielib-go's ACARSManager (errgroup-supervised
// background goroutines driven off a cancellable context) onto the
// envelope/catalog model the rest of this repository uses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nkeys"
	"golang.org/x/sync/errgroup"

	"openlink/internal/catalog"
	"openlink/internal/protocol"
	"openlink/internal/transport"
)

// HeartbeatInterval is how often a connected client republishes its Online
// presence (§4.5).
const HeartbeatInterval = 25 * time.Second

// EnvelopeHandler receives every envelope delivered to this client's inbox,
// already parsed.
type EnvelopeHandler func(protocol.OpenLinkEnvelope)

// Client is a single aircraft or station's connection to one network.
type Client struct {
	network  protocol.NetworkId
	address  protocol.NetworkAddress
	callsign protocol.Callsign
	conn     *transport.Connection
	catalog  protocol.Catalog

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	handlers []EnvelopeHandler

	// isAircraft selects which side of the §4.5 automatic behaviours this
	// client plays: an aircraft client auto-logons on UM117 CONTACT and
	// acks with DM100; a station client acks with UM227. Set via
	// SetAircraftRole/SetStationRole; automatic behaviours are inert
	// until one of those is called.
	isAircraft bool
	autoBehaviours bool
	homeAirport    protocol.ICAOAirportCode
}

// exchangeRequest/exchangeResponse mirror the gateway's /exchange contract
// (internal/gateway/server.go) without importing that package, since the
// client only ever talks to the gateway over HTTP.
type exchangeRequest struct {
	OidcCode       string `json:"oidc_code"`
	UserNkeyPublic string `json:"user_nkey_public"`
	Network        string `json:"network"`
}

type exchangeResponse struct {
	JWT     string `json:"jwt"`
	CID     string `json:"cid"`
	Network string `json:"network"`
}

// ConnectWithAuthorizationCode performs the full §4.5 bootstrap: mint a
// fresh user nkey, exchange an OIDC authorization code at the gateway for a
// scoped transport JWT, then connect to the broker and subscribe this
// client's own inbox.
func ConnectWithAuthorizationCode(
	ctx context.Context,
	natsURL, authURL, code string,
	network protocol.NetworkId,
	address protocol.NetworkAddress,
	callsign protocol.Callsign,
) (*Client, error) {
	userKeyPair, err := nkeys.CreateUser()
	if err != nil {
		return nil, fmt.Errorf("client: create user nkey: %w", err)
	}
	userPublic, err := userKeyPair.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("client: read user nkey public: %w", err)
	}

	jwt, err := exchangeAuthorizationCode(ctx, authURL, exchangeRequest{
		OidcCode:       code,
		UserNkeyPublic: userPublic,
		Network:        string(network),
	})
	if err != nil {
		return nil, err
	}

	conn, err := transport.Connect(natsURL, jwt, userKeyPair)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(cctx)

	c := &Client{
		network:  network,
		address:  address,
		callsign: callsign,
		conn:     conn,
		catalog:  catalog.Default(),
		group:    group,
		ctx:      gctx,
		cancel:   cancel,
	}

	stream, err := conn.SubscribeInbox(cctx, transport.InboxSubject(network, address))
	if err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("client: subscribe inbox: %w", err)
	}

	c.group.Go(func() error { return c.dispatchLoop(stream) })
	c.group.Go(c.heartbeatLoop)

	return c, nil
}

func exchangeAuthorizationCode(ctx context.Context, authURL string, req exchangeRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("client: encode exchange request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL+"/exchange", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("client: build exchange request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("client: gateway exchange unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("client: gateway exchange rejected (status %d)", resp.StatusCode)
	}

	var out exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("client: decode exchange response: %w", err)
	}
	return out.JWT, nil
}

// SubscribeInbox registers a handler invoked for every envelope delivered
// to this client's inbox. Handlers run on the dispatch goroutine in
// delivery order; a slow handler backs up further delivery.
func (c *Client) SubscribeInbox(handler EnvelopeHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// SendToServer publishes an envelope to this client's own outbox, the only
// subject a client is permitted to publish to (§4.2).
func (c *Client) SendToServer(env protocol.OpenLinkEnvelope) error {
	data, err := protocol.SerialiseEnvelope(env)
	if err != nil {
		return fmt.Errorf("client: serialise envelope: %w", err)
	}
	subject := transport.OutboxSubject(c.network, c.address)
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("client: publish to %s: %w", subject, err)
	}
	return nil
}

// Catalog returns the message catalog this client renders and validates
// against.
func (c *Client) Catalog() protocol.Catalog { return c.catalog }

// Close performs a graceful shutdown: publishes an Offline presence update,
// cancels all background goroutines, and drains the broker connection.
func (c *Client) Close() error {
	_ = c.SendToServer(c.statusEnvelope(protocol.StationOffline))
	_ = c.conn.Flush()

	c.cancel()
	err := c.group.Wait()

	c.conn.Close()
	return err
}

func (c *Client) dispatchLoop(stream *transport.InboxStream) error {
	for {
		select {
		case data, ok := <-stream.Messages():
			if !ok {
				return nil
			}
			env, err := protocol.ParseEnvelope(data)
			if err != nil {
				log.Printf("client: dropping unparsable inbound envelope: %v", err)
				continue
			}
			c.dispatch(env)
		case <-c.ctx.Done():
			stream.Cancel()
			return nil
		}
	}
}

func (c *Client) dispatch(env protocol.OpenLinkEnvelope) {
	c.mu.Lock()
	handlers := append([]EnvelopeHandler(nil), c.handlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(env)
	}

	c.runAutoBehaviours(env)
}

func (c *Client) heartbeatLoop() error {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	if err := c.SendToServer(c.statusEnvelope(protocol.StationOnline)); err != nil {
		log.Printf("client: initial presence publish: %v", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := c.SendToServer(c.statusEnvelope(protocol.StationOnline)); err != nil {
				log.Printf("client: heartbeat publish: %v", err)
			}
		case <-c.ctx.Done():
			return nil
		}
	}
}

func (c *Client) statusEnvelope(status protocol.StationPresence) protocol.OpenLinkEnvelope {
	payload := protocol.NewMetaPayload(protocol.StationStatus{
		Station: protocol.StationMeta{
			Callsign:     c.callsign,
			AcarsAddress: protocol.AcarsEndpointAddress(c.address),
		},
		Status: status,
	})
	routing := protocol.Routing{
		Source:      protocol.AddressEndpoint(c.network, c.address),
		Destination: protocol.ServerEndpoint(c.network),
	}
	return protocol.NewEnvelope(routing, payload, "")
}
