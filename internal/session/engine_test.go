package session

import (
	"context"
	"testing"
	"time"

	"openlink/internal/protocol"
	"openlink/internal/transport/sqlitekv"
)

// newTestEngine wires an Engine against in-memory sqlitekv buckets, with no
// broker connection: suitable for exercising dispatchMeta/dispatchApplication
// directly, which never touch e.conn (only emit/Run do).
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	sessionKV, err := sqlitekv.Open(":memory:")
	if err != nil {
		t.Fatalf("open session kv: %v", err)
	}
	t.Cleanup(func() { _ = sessionKV.Close() })
	registryKV, err := sqlitekv.Open(":memory:")
	if err != nil {
		t.Fatalf("open registry kv: %v", err)
	}
	t.Cleanup(func() { _ = registryKV.Close() })

	cfg := Config{
		Network:                 "demonetwork",
		PresenceLeaseTTL:        90 * time.Second,
		PresenceSweepInterval:   20 * time.Second,
		AutoEndServiceOnOffline: true,
	}
	return NewEngine(cfg, nil, nil, sessionKV, registryKV, nil, nil, nil)
}

func connectedSession(aircraft, station protocol.Callsign) func(*StoredSession) []Effect {
	return func(s *StoredSession) []Effect {
		s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: station, Phase: protocol.PhaseConnected}
		return nil
	}
}

func TestDispatchApplicationRejectsNonCDANonNDAWithDM63(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.sessions.Mutate(ctx, "AFR123", "AY213", connectedSession("AFR123", "LFPG")); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	app := protocol.CpdlcApplicationMessage{
		Elements:  []protocol.MessageElement{{Id: "UM20", Args: []protocol.Arg{protocol.LevelArg(350)}}},
		Timestamp: time.Now().UTC(),
	}
	effects, _, err := e.dispatchApplication(ctx, "AFR123", "AY213", "EGLL", false, "CID_EGLL", app)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(effects) != 1 {
		t.Fatalf("got %d effects, want 1: %+v", len(effects), effects)
	}
	if effects[0].Kind != PublishDownlink || effects[0].DownlinkElementID != "DM63" {
		t.Fatalf("effect = %+v, want PublishDownlink DM63", effects[0])
	}
	if effects[0].Recipient != "EGLL" {
		t.Errorf("recipient = %s, want EGLL (the offending station)", effects[0].Recipient)
	}
}

func TestDispatchApplicationRejectsDesignatedNDAWithDM107(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.sessions.Mutate(ctx, "AFR123", "AY213", func(s *StoredSession) []Effect {
		s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseConnected}
		nda := protocol.Callsign("EGLL")
		s.View.NextDataAuthority = &nda
		return nil
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	app := protocol.CpdlcApplicationMessage{
		Elements:  []protocol.MessageElement{{Id: "UM20", Args: []protocol.Arg{protocol.LevelArg(350)}}},
		Timestamp: time.Now().UTC(),
	}
	effects, _, err := e.dispatchApplication(ctx, "AFR123", "AY213", "EGLL", false, "CID_EGLL", app)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(effects) != 1 {
		t.Fatalf("got %d effects, want 1: %+v", len(effects), effects)
	}
	if effects[0].Kind != PublishDownlink || effects[0].DownlinkElementID != "DM107" {
		t.Fatalf("effect = %+v, want PublishDownlink DM107", effects[0])
	}
	if effects[0].Recipient != "EGLL" {
		t.Errorf("recipient = %s, want EGLL", effects[0].Recipient)
	}
}

func TestDispatchApplicationForwardsFromActiveCDAAndAssignsMin(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.sessions.Mutate(ctx, "AFR123", "AY213", connectedSession("AFR123", "LFPG")); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	app := protocol.CpdlcApplicationMessage{
		Min:       0,
		Elements:  []protocol.MessageElement{{Id: "UM20", Args: []protocol.Arg{protocol.LevelArg(350)}}},
		Timestamp: time.Now().UTC(),
	}
	effects, _, err := e.dispatchApplication(ctx, "AFR123", "AY213", "LFPG", false, "CID_LFPG", app)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(effects) != 2 {
		t.Fatalf("got %d effects, want 2 (forward + snapshot): %+v", len(effects), effects)
	}
	fwd := effects[0]
	if fwd.Kind != ForwardMessage || fwd.ForwardedApplication == nil {
		t.Fatalf("effect 0 = %+v, want a ForwardMessage with an application payload", fwd)
	}
	if fwd.ForwardedApplication.Min == 0 {
		t.Error("expected the placeholder min to be assigned a real value")
	}
	if fwd.Recipient != "AFR123" {
		t.Errorf("recipient = %s, want AFR123", fwd.Recipient)
	}
	if effects[1].Kind != PublishSnapshot {
		t.Errorf("effect 1 = %+v, want PublishSnapshot", effects[1])
	}
}

func TestDispatchApplicationPreservesSubmittedMrn(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.sessions.Mutate(ctx, "AFR123", "AY213", connectedSession("AFR123", "LFPG")); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	mrn := 1
	app := protocol.CpdlcApplicationMessage{
		Min:       0,
		Mrn:       &mrn,
		Elements:  []protocol.MessageElement{{Id: "DM0"}},
		Timestamp: time.Now().UTC(),
	}
	effects, _, err := e.dispatchApplication(ctx, "AFR123", "AY213", "LFPG", true, "CID_AFR123", app)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	fwd := effects[0]
	if fwd.ForwardedApplication.Mrn == nil || *fwd.ForwardedApplication.Mrn != 1 {
		t.Fatalf("mrn = %v, want 1", fwd.ForwardedApplication.Mrn)
	}
}

func TestDispatchMetaConnectionRequestGuardViolationEmitsDM62(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	effects, _, err := e.dispatchMeta(ctx, "AFR123", "AY213", "LFPG", false, "CID_LFPG", protocol.NewConnectionRequestMeta())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(effects) != 1 || effects[0].Kind != PublishDownlink || effects[0].DownlinkElementID != "DM62" {
		t.Fatalf("effects = %+v, want a single DM62 guard-violation effect", effects)
	}
	if effects[0].Recipient != "LFPG" {
		t.Errorf("recipient = %s, want LFPG", effects[0].Recipient)
	}
}

func TestDispatchMetaLogonResponseAcceptedAdvancesSession(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.sessions.Mutate(ctx, "AFR123", "AY213", func(s *StoredSession) []Effect {
		s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseLogonPending}
		return nil
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	effects, _, err := e.dispatchMeta(ctx, "AFR123", "AY213", "LFPG", false, "CID_LFPG", protocol.NewLogonResponseMeta(protocol.LogonResponse{Accepted: true}))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(effects) != 2 {
		t.Fatalf("got %d effects, want 2", len(effects))
	}
	stored, _, err := e.sessions.Load(ctx, "AFR123", "AY213")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.View.ActiveConnection.Phase != protocol.PhaseLoggedOn {
		t.Errorf("phase = %s, want LoggedOn", stored.View.ActiveConnection.Phase)
	}
}

func TestDispatchLogonRequestRecordsAircraftNetworkAddress(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	req := protocol.NewLogonRequestMeta(protocol.LogonRequest{Station: "LFPG", Origin: "LFPG", Destination: "EGLL"})
	effects, aircraftAddr, err := e.dispatchMeta(ctx, "AFR123", "AY213", "LFPG", true, "CID_AFR123", req)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(effects) == 0 {
		t.Fatalf("expected effects from a fresh LogonRequest")
	}
	if aircraftAddr != "CID_AFR123" {
		t.Fatalf("aircraftAddr = %q, want CID_AFR123", aircraftAddr)
	}

	stored, _, err := e.sessions.Load(ctx, "AFR123", "AY213")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.AircraftNetworkAddress != "CID_AFR123" {
		t.Errorf("stored AircraftNetworkAddress = %q, want CID_AFR123", stored.AircraftNetworkAddress)
	}
}

func TestDispatchStationTrafficDoesNotOverwriteAircraftNetworkAddress(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.sessions.Mutate(ctx, "AFR123", "AY213", func(s *StoredSession) []Effect {
		s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseConnected}
		s.AircraftNetworkAddress = "CID_AFR123"
		return nil
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	app := protocol.CpdlcApplicationMessage{
		Elements:  []protocol.MessageElement{{Id: "UM20", Args: []protocol.Arg{protocol.LevelArg(350)}}},
		Timestamp: time.Now().UTC(),
	}
	_, aircraftAddr, err := e.dispatchApplication(ctx, "AFR123", "AY213", "LFPG", false, "CID_LFPG_SPOOFED", app)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if aircraftAddr != "CID_AFR123" {
		t.Errorf("aircraftAddr = %q, want the unchanged CID_AFR123 (station traffic must not overwrite it)", aircraftAddr)
	}
}

func TestResolveRecipientAddressUsesStoredAircraftAddress(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	address, ok := e.resolveRecipientAddress(ctx, "AFR123", "CID_AFR123", "AFR123")
	if !ok || address != "CID_AFR123" {
		t.Fatalf("address = %q, ok = %v, want CID_AFR123/true", address, ok)
	}
}

func TestResolveRecipientAddressFailsWhenAircraftAddressUnknown(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, ok := e.resolveRecipientAddress(ctx, "AFR123", "", "AFR123")
	if ok {
		t.Error("expected resolution to fail rather than fall back to a callsign-derived address")
	}
}
