package session

import (
	"testing"

	"openlink/internal/protocol"
)

func newTestSession() *StoredSession {
	return newStoredSession("AFR123", "AY213")
}

func TestLogonRequestSetsActiveWhenNoneExists(t *testing.T) {
	s := newTestSession()
	effects := handleLogonRequest(s, protocol.LogonRequest{Station: "LFPG", Origin: "LFPG", Destination: "EGLL"}, "LFPG")

	if s.View.ActiveConnection == nil || s.View.ActiveConnection.Peer != "LFPG" {
		t.Fatalf("active connection = %+v", s.View.ActiveConnection)
	}
	if s.View.ActiveConnection.Phase != protocol.PhaseLogonPending {
		t.Errorf("phase = %s, want LogonPending", s.View.ActiveConnection.Phase)
	}
	if len(effects) != 2 {
		t.Fatalf("got %d effects, want 2", len(effects))
	}
	if effects[0].Kind != ForwardMessage || effects[0].Recipient != "LFPG" {
		t.Errorf("effect 0 = %+v", effects[0])
	}
	if effects[1].Kind != PublishSnapshot || effects[1].Recipient != "AFR123" {
		t.Errorf("effect 1 = %+v", effects[1])
	}
}

func TestLogonRequestSetsInactiveWhenActiveExists(t *testing.T) {
	s := newTestSession()
	s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "EHAM", Phase: protocol.PhaseConnected}

	handleLogonRequest(s, protocol.LogonRequest{Station: "LFPG"}, "LFPG")

	if s.View.ActiveConnection.Peer != "EHAM" {
		t.Fatalf("active connection changed unexpectedly: %+v", s.View.ActiveConnection)
	}
	if s.View.InactiveConnection == nil || s.View.InactiveConnection.Peer != "LFPG" {
		t.Fatalf("inactive connection = %+v", s.View.InactiveConnection)
	}
}

func TestLogonResponseAcceptedAdvancesToLoggedOn(t *testing.T) {
	s := newTestSession()
	s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseLogonPending}

	handleLogonResponse(s, protocol.LogonResponse{Accepted: true}, "LFPG")

	if s.View.ActiveConnection.Phase != protocol.PhaseLoggedOn {
		t.Errorf("phase = %s, want LoggedOn", s.View.ActiveConnection.Phase)
	}
}

func TestLogonResponseRejectedRemovesConnection(t *testing.T) {
	s := newTestSession()
	s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseLogonPending}

	handleLogonResponse(s, protocol.LogonResponse{Accepted: false}, "LFPG")

	if s.View.ActiveConnection != nil {
		t.Errorf("active connection = %+v, want nil", s.View.ActiveConnection)
	}
}

func TestConnectionRequestAdvancesActivePeer(t *testing.T) {
	s := newTestSession()
	s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseLoggedOn}

	effects := handleConnectionRequest(s, "LFPG")

	if s.View.ActiveConnection.Phase != protocol.PhaseConnected {
		t.Errorf("phase = %s, want Connected", s.View.ActiveConnection.Phase)
	}
	if len(effects) != 2 {
		t.Fatalf("got %d effects, want 2", len(effects))
	}
}

func TestConnectionRequestAdvancesDesignatedNDAKeepsItInactive(t *testing.T) {
	s := newTestSession()
	s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseConnected}
	s.View.InactiveConnection = &protocol.CpdlcConnectionInfo{Peer: "EHAM", Phase: protocol.PhaseLoggedOn}
	nda := protocol.Callsign("EHAM")
	s.View.NextDataAuthority = &nda

	handleConnectionRequest(s, "EHAM")

	if s.View.InactiveConnection == nil || s.View.InactiveConnection.Peer != "EHAM" {
		t.Fatalf("inactive connection = %+v", s.View.InactiveConnection)
	}
	if s.View.InactiveConnection.Phase != protocol.PhaseConnected {
		t.Errorf("inactive phase = %s, want Connected", s.View.InactiveConnection.Phase)
	}
	if s.View.ActiveConnection.Peer != "LFPG" {
		t.Errorf("active peer changed unexpectedly: %+v", s.View.ActiveConnection)
	}
}

func TestConnectionRequestRejectsNeitherActiveNorNDA(t *testing.T) {
	s := newTestSession()
	s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseConnected}
	s.View.InactiveConnection = &protocol.CpdlcConnectionInfo{Peer: "EHAM", Phase: protocol.PhaseLoggedOn}
	// No NDA designated: EHAM may not advance.

	effects := handleConnectionRequest(s, "EHAM")

	if len(effects) != 1 || effects[0].Kind != PublishDownlink || effects[0].DownlinkElementID != "DM62" || effects[0].Recipient != "EHAM" {
		t.Fatalf("expected a single DM62 effect targeting EHAM, got %+v", effects)
	}
	if s.View.InactiveConnection.Phase != protocol.PhaseLoggedOn {
		t.Errorf("phase mutated despite rejection: %s", s.View.InactiveConnection.Phase)
	}
}

func TestLogonResponseWithNoMatchingConnectionEmitsGuardViolation(t *testing.T) {
	s := newTestSession()

	effects := handleLogonResponse(s, protocol.LogonResponse{Accepted: true}, "LFPG")

	if len(effects) != 1 || effects[0].Kind != PublishDownlink || effects[0].DownlinkElementID != "DM62" || effects[0].Recipient != "LFPG" {
		t.Fatalf("expected a single DM62 effect targeting LFPG, got %+v", effects)
	}
}

func TestConnectionResponseWithNoMatchingConnectionEmitsGuardViolation(t *testing.T) {
	s := newTestSession()

	effects := handleConnectionResponse(s, protocol.ConnectionResponse{Accepted: true}, "LFPG")

	if len(effects) != 1 || effects[0].Kind != PublishDownlink || effects[0].DownlinkElementID != "DM62" || effects[0].Recipient != "LFPG" {
		t.Fatalf("expected a single DM62 effect targeting LFPG, got %+v", effects)
	}
}

func TestHandoverNextDataAuthorityThenEndServicePromotesInactive(t *testing.T) {
	s := newTestSession()
	s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseConnected}

	handleNextDataAuthority(s, "EHAM")
	if s.View.NextDataAuthority == nil || *s.View.NextDataAuthority != "EHAM" {
		t.Fatalf("nda = %v", s.View.NextDataAuthority)
	}

	// EHAM logs on and connects while still only NDA, landing in inactive.
	s.View.InactiveConnection = &protocol.CpdlcConnectionInfo{Peer: "EHAM", Phase: protocol.PhaseConnected}

	handleEndService(s)

	if s.View.ActiveConnection == nil || s.View.ActiveConnection.Peer != "EHAM" {
		t.Fatalf("expected EHAM promoted to active, got %+v", s.View.ActiveConnection)
	}
	if s.View.InactiveConnection != nil {
		t.Errorf("inactive connection should be cleared, got %+v", s.View.InactiveConnection)
	}
	if s.View.NextDataAuthority != nil {
		t.Errorf("nda should be cleared after promotion, got %v", s.View.NextDataAuthority)
	}
}

func TestEndServiceWithNoEligibleInactiveLeavesSessionIdle(t *testing.T) {
	s := newTestSession()
	s.View.ActiveConnection = &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseConnected}

	handleEndService(s)

	if s.View.ActiveConnection != nil {
		t.Errorf("active connection = %+v, want nil", s.View.ActiveConnection)
	}
}

func TestIsCurrentDataAuthority(t *testing.T) {
	view := protocol.CpdlcSessionView{
		ActiveConnection: &protocol.CpdlcConnectionInfo{Peer: "LFPG", Phase: protocol.PhaseConnected},
	}
	if !isCurrentDataAuthority(view, "LFPG") {
		t.Error("expected LFPG to be the current data authority")
	}
	if isCurrentDataAuthority(view, "EHAM") {
		t.Error("EHAM must not be treated as the current data authority")
	}
}

func TestIsDesignatedNDA(t *testing.T) {
	nda := protocol.Callsign("EHAM")
	view := protocol.CpdlcSessionView{NextDataAuthority: &nda}
	if !isDesignatedNDA(view, "EHAM") {
		t.Error("expected EHAM to be the designated NDA")
	}
	if isDesignatedNDA(view, "LFPG") {
		t.Error("LFPG must not be treated as the designated NDA")
	}
}
