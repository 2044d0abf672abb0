package session

import (
	"context"
	"crypto/ed25519"
	"log"
	"time"

	"openlink/internal/authtoken"
	"openlink/internal/protocol"
	"openlink/internal/transport"
)

// AuditSink records every inbound envelope that passes the source-scope
// check, before dispatch, for durable, high-volume inspection (adapted into
// internal/session/audit, §12). Envelopes the engine publishes are not
// recorded.
type AuditSink interface {
	RecordEnvelope(ctx context.Context, network protocol.NetworkId, env protocol.OpenLinkEnvelope) error
}

// HistorySink archives point-in-time session snapshots for operational
// lookup (adapted into internal/session/history, §12).
type HistorySink interface {
	RecordSnapshot(ctx context.Context, network protocol.NetworkId, view protocol.CpdlcSessionView) error
}

// Config configures one network's Session Engine instance, per the §6
// environment variables.
type Config struct {
	Network                 protocol.NetworkId
	PresenceLeaseTTL        time.Duration
	PresenceSweepInterval   time.Duration
	AutoEndServiceOnOffline bool
}

// Engine is one logical Session Engine instance: subscription, dispatch,
// session state machine, and the presence sweeper, all scoped to one
// network (§4.4).
type Engine struct {
	cfg      Config
	conn     *transport.Connection
	catalog  protocol.Catalog
	sessions *Store
	registry *Registry
	gwPubKey ed25519.PublicKey
	audit    AuditSink
	history  HistorySink
}

// NewEngine wires an Engine from its collaborators. audit and history may
// be nil, in which case that cross-cutting concern is skipped.
func NewEngine(cfg Config, conn *transport.Connection, catalog protocol.Catalog, sessionKV, registryKV transport.KVStore, gatewayPublicKey ed25519.PublicKey, audit AuditSink, history HistorySink) *Engine {
	return &Engine{
		cfg:      cfg,
		conn:     conn,
		catalog:  catalog,
		sessions: NewStore(sessionKV),
		registry: NewRegistry(registryKV),
		gwPubKey: gatewayPublicKey,
		audit:    audit,
		history:  history,
	}
}

// Run subscribes to the network's outbox wildcard and the presence
// sweeper, blocking until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	sub, err := e.conn.SubscribeWildcard(transport.OutboxWildcard(e.cfg.Network), func(_ string, data []byte) {
		e.handleEnvelope(ctx, data)
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	ticker := time.NewTicker(e.cfg.PresenceSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.runSweep(ctx)
		}
	}
}

func (e *Engine) runSweep(ctx context.Context) {
	expired, err := e.registry.SweepExpired(ctx, e.cfg.PresenceLeaseTTL)
	if err != nil {
		log.Printf("session: presence sweep: %v", err)
		return
	}
	for _, address := range expired {
		rec, err := e.registry.Get(ctx, address)
		if err != nil {
			log.Printf("session: presence sweep: read expired station %s: %v", address, err)
			continue
		}
		if e.cfg.AutoEndServiceOnOffline {
			e.autoEndServiceForStation(ctx, rec.Meta.Callsign)
		}
	}
}

// autoEndServiceForStation implements §4.4.5: every aircraft session where
// station is the active CDA receives a server-generated END SERVICE.
func (e *Engine) autoEndServiceForStation(ctx context.Context, station protocol.Callsign) {
	keys, err := e.sessions.kv.Keys(ctx)
	if err != nil {
		log.Printf("session: auto-end-service: list sessions: %v", err)
		return
	}
	for _, k := range keys {
		aircraft := protocol.Callsign(k)
		var aircraftAddr protocol.NetworkAddress
		effects, err := e.sessions.Mutate(ctx, aircraft, "", func(s *StoredSession) []Effect {
			aircraftAddr = s.AircraftNetworkAddress
			if s.View.ActiveConnection == nil || s.View.ActiveConnection.Peer != station {
				return nil
			}
			min := s.MinCounters.Next(station, protocol.Uplink)
			app := protocol.CpdlcApplicationMessage{
				Min:       min,
				Elements:  []protocol.MessageElement{{Id: "UM161"}},
				Timestamp: time.Now().UTC(),
			}
			handleEndService(s)
			return []Effect{
				{Kind: ForwardMessage, Recipient: aircraft, ForwardedApplication: &app, ForwardSource: station, ForwardDestination: aircraft},
				{Kind: PublishSnapshot, Recipient: aircraft, Snapshot: &s.View},
			}
		})
		if err != nil {
			log.Printf("session: auto-end-service for %s: %v", aircraft, err)
			continue
		}
		e.emit(ctx, aircraft, aircraftAddr, effects)
	}
}

// handleEnvelope implements §4.4.1: parse, validate scope, dispatch.
func (e *Engine) handleEnvelope(ctx context.Context, raw []byte) {
	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		log.Printf("session: dropping unparsable envelope: %v", err)
		return
	}

	if !e.validateSourceScope(env) {
		log.Printf("session: dropping envelope with invalid token scope from %s", env.Routing.Source)
		return
	}

	if e.audit != nil {
		if err := e.audit.RecordEnvelope(ctx, e.cfg.Network, env); err != nil {
			log.Printf("session: audit record: %v", err)
		}
	}

	switch env.Payload.Kind {
	case "Meta":
		e.handleStationStatus(ctx, *env.Payload.Meta)
	case "Acars":
		e.handleAcars(ctx, env.Routing.Source.Address, *env.Payload.Acars)
	default:
		log.Printf("session: dropping envelope with unhandled payload kind %s", env.Payload.Kind)
	}
}

// validateSourceScope implements the spoofing defence: the envelope's
// claimed source address must fall within the bearer token's publish
// grant (§4.4.1 step 2).
func (e *Engine) validateSourceScope(env protocol.OpenLinkEnvelope) bool {
	if !env.Routing.Source.IsAddress() {
		return false
	}
	claims, err := authtoken.Verify(env.Token, e.gwPubKey)
	if err != nil {
		return false
	}
	subject := transport.OutboxSubject(env.Routing.Source.Network, env.Routing.Source.Address)
	return claims.CanPublish(subject)
}

func (e *Engine) handleStationStatus(ctx context.Context, status protocol.StationStatus) {
	address := protocol.NetworkAddress(status.Station.Callsign)
	switch status.Status {
	case protocol.StationOnline:
		if err := e.registry.MarkOnline(ctx, address, status.Station); err != nil {
			log.Printf("session: mark online %s: %v", status.Station.Callsign, err)
		}
	case protocol.StationOffline:
		wasOnline, err := e.registry.MarkOffline(ctx, address)
		if err != nil {
			log.Printf("session: mark offline %s: %v", status.Station.Callsign, err)
			return
		}
		if wasOnline && e.cfg.AutoEndServiceOnOffline {
			e.autoEndServiceForStation(ctx, status.Station.Callsign)
		}
	}
}

func (e *Engine) handleAcars(ctx context.Context, sourceAddress protocol.NetworkAddress, acars protocol.AcarsEnvelope) {
	if acars.Message.Kind != "CPDLC" {
		return
	}
	cpdlc := acars.Message.Cpdlc
	aircraft := acars.Routing.Aircraft.Callsign
	address := protocol.AcarsEndpointAddress(acars.Routing.Aircraft.Address)

	fromAircraft := cpdlc.Source == aircraft
	station := cpdlc.Destination
	if !fromAircraft {
		station = cpdlc.Source
	}

	var effects []Effect
	var aircraftAddr protocol.NetworkAddress
	var err error

	switch cpdlc.Message.Kind {
	case "Meta":
		effects, aircraftAddr, err = e.dispatchMeta(ctx, aircraft, address, station, fromAircraft, sourceAddress, *cpdlc.Message.Meta)
	case "Application":
		effects, aircraftAddr, err = e.dispatchApplication(ctx, aircraft, address, station, fromAircraft, sourceAddress, *cpdlc.Message.Application)
	}
	if err != nil {
		log.Printf("session: dispatch for %s: %v", aircraft, err)
		return
	}
	for _, eff := range effects {
		if eff.Kind == PublishDownlink && eff.DownlinkElementID == "DM62" {
			log.Printf("session: guard violation for %s on behalf of %s: %s", station, aircraft, eff.DownlinkText)
		}
	}
	e.emit(ctx, aircraft, aircraftAddr, effects)
}

// rememberAircraftAddress records sourceAddress as the aircraft's routable
// NetworkAddress the first time it originates traffic in this session, and
// always returns the address currently on file (§4.3, §4.4.7).
func rememberAircraftAddress(s *StoredSession, fromAircraft bool, sourceAddress protocol.NetworkAddress) protocol.NetworkAddress {
	if fromAircraft && sourceAddress != "" {
		s.AircraftNetworkAddress = sourceAddress
	}
	return s.AircraftNetworkAddress
}

func (e *Engine) dispatchMeta(ctx context.Context, aircraft protocol.Callsign, address protocol.AcarsEndpointAddress, station protocol.Callsign, fromAircraft bool, sourceAddress protocol.NetworkAddress, meta protocol.CpdlcMetaMessage) ([]Effect, protocol.NetworkAddress, error) {
	var aircraftAddr protocol.NetworkAddress
	effects, err := e.sessions.Mutate(ctx, aircraft, address, func(s *StoredSession) []Effect {
		aircraftAddr = rememberAircraftAddress(s, fromAircraft, sourceAddress)
		switch meta.Kind {
		case "LogonRequest":
			return handleLogonRequest(s, *meta.LogonRequest, meta.LogonRequest.Station)
		case "LogonResponse":
			return handleLogonResponse(s, *meta.LogonResponse, station)
		case "ConnectionRequest":
			return handleConnectionRequest(s, station)
		case "ConnectionResponse":
			return handleConnectionResponse(s, *meta.ConnectionResponse, station)
		case "LogonForward":
			fwd := protocol.NewLogonForwardMeta(*meta.LogonForward)
			return []Effect{{Kind: ForwardMessage, Recipient: meta.LogonForward.NewStation, ForwardedMeta: &fwd, ForwardSource: station, ForwardDestination: meta.LogonForward.NewStation}}
		}
		return nil
	})
	return effects, aircraftAddr, err
}

// dispatchApplication implements the operational-traffic rows of §4.4.3
// together with the §4.4.4 MIN assignment rule. Only station-originated
// application elements are session-gated: a downlink reply from the
// aircraft is always forwarded to its active or inactive peer as
// addressed.
func (e *Engine) dispatchApplication(ctx context.Context, aircraft protocol.Callsign, address protocol.AcarsEndpointAddress, station protocol.Callsign, fromAircraft bool, sourceAddress protocol.NetworkAddress, app protocol.CpdlcApplicationMessage) ([]Effect, protocol.NetworkAddress, error) {
	var aircraftAddr protocol.NetworkAddress
	effects, err := e.sessions.Mutate(ctx, aircraft, address, func(s *StoredSession) []Effect {
		aircraftAddr = rememberAircraftAddress(s, fromAircraft, sourceAddress)
		if !fromAircraft && !isCurrentDataAuthority(s.View, station) {
			if isDesignatedNDA(s.View, station) {
				return e.rejectUnauthorised(s, aircraft, station, "DM107")
			}
			return e.rejectUnauthorised(s, aircraft, station, "DM63")
		}

		recipient := station
		if !fromAircraft {
			recipient = aircraft
			for _, el := range app.Elements {
				switch el.Id {
				case "UM160":
					if nda, ok := firstStationArg(el); ok {
						handleNextDataAuthority(s, nda)
					}
				case "UM161":
					handleEndService(s)
				}
			}
		}

		dir := protocol.Uplink
		if fromAircraft {
			dir = protocol.Downlink
		}
		forwarded := app
		if forwarded.Min == 0 {
			forwarded.Min = s.MinCounters.Next(station, dir)
		}

		fwdSource, fwdDestination := aircraft, station
		if !fromAircraft {
			fwdSource, fwdDestination = station, aircraft
		}

		effects := []Effect{{Kind: ForwardMessage, Recipient: recipient, ForwardedApplication: &forwarded, ForwardSource: fwdSource, ForwardDestination: fwdDestination}}
		if !fromAircraft {
			effects = append(effects, Effect{Kind: PublishSnapshot, Recipient: aircraft, Snapshot: &s.View})
		}
		return effects
	})
	return effects, aircraftAddr, err
}

func firstStationArg(el protocol.MessageElement) (protocol.Callsign, bool) {
	for _, a := range el.Args {
		if a.Type == protocol.ArgStation {
			return protocol.Callsign(a.AsText()), true
		}
	}
	return "", false
}

// rejectUnauthorised implements the §4.4.3 rejection rule: a synthetic
// downlink is emitted to the offending peer, and the aircraft is not
// forwarded anything.
func (e *Engine) rejectUnauthorised(s *StoredSession, aircraft, offender protocol.Callsign, downlinkID string) []Effect {
	return []Effect{
		{Kind: PublishDownlink, Recipient: offender, DownlinkElementID: downlinkID, DownlinkText: "not current data authority for " + string(aircraft)},
	}
}

// emit turns a batch of Effects into actual envelope publishes. aircraftAddr
// is the aircraft's CID-derived NetworkAddress on file for this session, if
// any is known yet (§4.3).
func (e *Engine) emit(ctx context.Context, aircraft protocol.Callsign, aircraftAddr protocol.NetworkAddress, effects []Effect) {
	for _, eff := range effects {
		address, ok := e.resolveRecipientAddress(ctx, aircraft, aircraftAddr, eff.Recipient)
		if !ok {
			log.Printf("session: cannot resolve address for recipient %s, dropping effect", eff.Recipient)
			e.emitUnknownDestination(ctx, aircraft, aircraftAddr, eff)
			continue
		}

		var cpdlcEnv protocol.CpdlcEnvelope
		switch eff.Kind {
		case ForwardMessage:
			var body protocol.CpdlcMessageBody
			switch {
			case eff.ForwardedMeta != nil:
				body = protocol.NewMetaBody(*eff.ForwardedMeta)
			case eff.ForwardedApplication != nil:
				body = protocol.NewApplicationBody(*eff.ForwardedApplication)
			default:
				continue
			}
			cpdlcEnv = protocol.CpdlcEnvelope{Source: eff.ForwardSource, Destination: eff.ForwardDestination, Message: body}
		case PublishSnapshot:
			if eff.Snapshot == nil {
				continue
			}
			meta := protocol.NewSessionUpdateMeta(*eff.Snapshot)
			cpdlcEnv = protocol.CpdlcEnvelope{Source: aircraft, Destination: eff.Recipient, Message: protocol.NewMetaBody(meta)}
		case PublishDownlink:
			cpdlcEnv = downlinkCpdlcEnvelope(aircraft, eff.Recipient, eff.DownlinkElementID, eff.DownlinkText)
		}

		if err := e.publishEnvelope(address, acarsPayloadFor(aircraft, cpdlcEnv)); err != nil {
			log.Printf("session: publish to %s: %v", address, err)
			continue
		}

		if eff.Kind == PublishSnapshot && e.history != nil {
			if err := e.history.RecordSnapshot(ctx, e.cfg.Network, *eff.Snapshot); err != nil {
				log.Printf("session: history record: %v", err)
			}
		}
	}
	_ = e.conn.Flush()
}

// emitUnknownDestination implements §4.4.7's unresolvable-destination rule:
// "the server attempts best-effort lookup by callsign; if not resolvable,
// responds to sender with an error envelope carrying a DM62 ERROR [free
// text]." sender is whoever authored the effect that could not be routed;
// for a forwarded message that is ForwardSource, otherwise the aircraft
// itself.
func (e *Engine) emitUnknownDestination(ctx context.Context, aircraft protocol.Callsign, aircraftAddr protocol.NetworkAddress, eff Effect) {
	sender := eff.ForwardSource
	if sender == "" {
		sender = aircraft
	}
	if sender == eff.Recipient {
		return
	}

	address, ok := e.resolveRecipientAddress(ctx, aircraft, aircraftAddr, sender)
	if !ok {
		log.Printf("session: cannot resolve address for DM62 recipient %s either, dropping", sender)
		return
	}

	cpdlcEnv := downlinkCpdlcEnvelope(aircraft, sender, "DM62", "unknown destination "+string(eff.Recipient))
	if err := e.publishEnvelope(address, acarsPayloadFor(aircraft, cpdlcEnv)); err != nil {
		log.Printf("session: publish DM62 to %s: %v", address, err)
	}
}

// downlinkCpdlcEnvelope builds the CpdlcEnvelope for a server-synthesised
// single-element downlink, e.g. DM63/DM107/DM62 (§4.4.3, §4.4.7).
func downlinkCpdlcEnvelope(aircraft, recipient protocol.Callsign, elementID, text string) protocol.CpdlcEnvelope {
	el := protocol.MessageElement{Id: elementID}
	if text != "" {
		el.Args = []protocol.Arg{protocol.TextArg(text)}
	}
	app := protocol.CpdlcApplicationMessage{Elements: []protocol.MessageElement{el}, Timestamp: time.Now().UTC()}
	return protocol.CpdlcEnvelope{Source: aircraft, Destination: recipient, Message: protocol.NewApplicationBody(app)}
}

// acarsPayloadFor wraps a CpdlcEnvelope in the AcarsEnvelope/Payload layers
// every outbound publish needs (§3).
func acarsPayloadFor(aircraft protocol.Callsign, cpdlcEnv protocol.CpdlcEnvelope) protocol.Payload {
	acarsEnv := protocol.AcarsEnvelope{
		Routing: struct {
			Aircraft protocol.AircraftRouting `json:"aircraft"`
		}{Aircraft: protocol.AircraftRouting{Callsign: aircraft}},
		Message: protocol.NewCpdlcBody(cpdlcEnv),
	}
	return protocol.NewAcarsPayload(acarsEnv)
}

// publishEnvelope addresses, serialises, and publishes payload to address's
// inbox subject.
func (e *Engine) publishEnvelope(address protocol.NetworkAddress, payload protocol.Payload) error {
	routing := protocol.Routing{
		Source:      protocol.ServerEndpoint(e.cfg.Network),
		Destination: protocol.AddressEndpoint(e.cfg.Network, address),
	}
	out := protocol.NewEnvelope(routing, payload, "")
	encoded, err := protocol.SerialiseEnvelope(out)
	if err != nil {
		return err
	}
	return e.conn.Publish(transport.InboxSubject(e.cfg.Network, address), encoded)
}

// resolveRecipientAddress maps a callsign to its network address: stations
// are resolved through the registry (§4.4.7's "best-effort lookup by
// callsign"); the aircraft itself is resolved from the CID-derived address
// recorded on its session, since aircraft are never registered in the
// station presence registry. If that address isn't known yet (no session
// traffic from the aircraft has been observed), the lookup fails rather than
// guessing a callsign-keyed address, per §4.3's "never derived from
// callsign" invariant on NetworkAddress.
func (e *Engine) resolveRecipientAddress(ctx context.Context, aircraft protocol.Callsign, aircraftAddr protocol.NetworkAddress, recipient protocol.Callsign) (protocol.NetworkAddress, bool) {
	address, _, found, err := e.registry.ResolveByCallsign(ctx, recipient)
	if err == nil && found {
		return address, true
	}
	if recipient == aircraft && aircraftAddr != "" {
		return aircraftAddr, true
	}
	return "", false
}
