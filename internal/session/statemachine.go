package session

import "openlink/internal/protocol"

// handleLogonRequest implements the first row of the §4.4.3 table. session
// is created by the caller if this is the aircraft's first contact.
func handleLogonRequest(s *StoredSession, req protocol.LogonRequest, station protocol.Callsign) []Effect {
	conn := &protocol.CpdlcConnectionInfo{Peer: station, Phase: protocol.PhaseLogonPending}
	if s.View.ActiveConnection != nil {
		s.View.InactiveConnection = conn
	} else {
		s.View.ActiveConnection = conn
	}

	meta := protocol.NewLogonRequestMeta(req)
	return []Effect{
		{Kind: ForwardMessage, Recipient: station, ForwardedMeta: &meta, ForwardSource: s.View.Aircraft, ForwardDestination: station},
		{Kind: PublishSnapshot, Recipient: s.View.Aircraft, Snapshot: &s.View},
	}
}

// handleLogonResponse implements rows two and three: accepted advances the
// matching connection to LoggedOn, rejected removes it.
func handleLogonResponse(s *StoredSession, resp protocol.LogonResponse, station protocol.Callsign) []Effect {
	conn := findConnection(s, station)
	if conn == nil {
		return []Effect{guardViolationEffect(station, "no pending connection with "+string(station)+" for LogonResponse")}
	}

	if resp.Accepted {
		conn.Phase = protocol.PhaseLoggedOn
	} else {
		removeConnection(s, station)
		promoteIfEligible(&s.View)
	}

	meta := protocol.NewLogonResponseMeta(resp)
	return []Effect{
		{Kind: ForwardMessage, Recipient: s.View.Aircraft, ForwardedMeta: &meta, ForwardSource: station, ForwardDestination: s.View.Aircraft},
		{Kind: PublishSnapshot, Recipient: s.View.Aircraft, Snapshot: &s.View},
	}
}

// handleConnectionRequest implements row four: S may advance to Connected
// only if S is the current active peer or the designated NDA.
func handleConnectionRequest(s *StoredSession, station protocol.Callsign) []Effect {
	conn := findConnection(s, station)
	if conn == nil || conn.Phase != protocol.PhaseLoggedOn {
		return []Effect{guardViolationEffect(station, "no logged-on connection with "+string(station)+" for ConnectionRequest")}
	}

	isActive := s.View.ActiveConnection != nil && s.View.ActiveConnection.Peer == station
	isNDA := s.View.NextDataAuthority != nil && *s.View.NextDataAuthority == station

	if !isActive && !isNDA {
		return []Effect{guardViolationEffect(station, string(station)+" is neither current data authority nor next data authority")}
	}

	conn.Phase = protocol.PhaseConnected

	meta := protocol.NewConnectionRequestMeta()
	return []Effect{
		{Kind: ForwardMessage, Recipient: s.View.Aircraft, ForwardedMeta: &meta, ForwardSource: station, ForwardDestination: s.View.Aircraft},
		{Kind: PublishSnapshot, Recipient: s.View.Aircraft, Snapshot: &s.View},
	}
}

// handleConnectionResponse implements row five: finalises whichever
// pending connection the aircraft is responding about.
func handleConnectionResponse(s *StoredSession, resp protocol.ConnectionResponse, station protocol.Callsign) []Effect {
	conn := findConnection(s, station)
	if conn == nil {
		return []Effect{guardViolationEffect(station, "no pending connection with "+string(station)+" for ConnectionResponse")}
	}

	if resp.Accepted {
		conn.Phase = protocol.PhaseConnected
	} else {
		removeConnection(s, station)
		promoteIfEligible(&s.View)
	}

	meta := protocol.NewConnectionResponseMeta(resp)
	return []Effect{
		{Kind: ForwardMessage, Recipient: station, ForwardedMeta: &meta, ForwardSource: s.View.Aircraft, ForwardDestination: station},
		{Kind: PublishSnapshot, Recipient: s.View.Aircraft, Snapshot: &s.View},
	}
}

// handleNextDataAuthority implements the UM160 row: the active CDA
// designates the next controller to take over.
func handleNextDataAuthority(s *StoredSession, nda protocol.Callsign) {
	s.View.NextDataAuthority = &nda
	if s.View.InactiveConnection != nil && s.View.InactiveConnection.Peer != nda {
		s.View.InactiveConnection = nil
	}
}

// handleEndService implements the UM161 row: the active connection
// terminates and the promotion rule applies.
func handleEndService(s *StoredSession) {
	if s.View.ActiveConnection != nil {
		s.View.ActiveConnection.Phase = protocol.PhaseTerminated
	}
	s.View.ActiveConnection = nil
	promoteIfEligible(&s.View)
}

// promoteIfEligible implements the §4.4.3 promotion rule shared by
// EndService, rejected LogonResponse/ConnectionResponse, and the §4.4.5
// offline sweep: if the inactive connection's peer is the designated NDA,
// it becomes active.
func promoteIfEligible(view *protocol.CpdlcSessionView) {
	if view.ActiveConnection != nil {
		return
	}
	if view.InactiveConnection == nil || view.NextDataAuthority == nil {
		return
	}
	if view.InactiveConnection.Peer != *view.NextDataAuthority {
		return
	}
	view.ActiveConnection = view.InactiveConnection
	view.InactiveConnection = nil
	view.NextDataAuthority = nil
}

// guardViolationEffect implements §7's state-transition guard-violation
// rule: "state-transition guard violated. Server logs and emits a DM62
// ERROR [free text] to the offender." Offender is whichever peer's message
// failed the guard.
func guardViolationEffect(offender protocol.Callsign, reason string) Effect {
	return Effect{Kind: PublishDownlink, Recipient: offender, DownlinkElementID: "DM62", DownlinkText: reason}
}

func findConnection(s *StoredSession, peer protocol.Callsign) *protocol.CpdlcConnectionInfo {
	if s.View.ActiveConnection != nil && s.View.ActiveConnection.Peer == peer {
		return s.View.ActiveConnection
	}
	if s.View.InactiveConnection != nil && s.View.InactiveConnection.Peer == peer {
		return s.View.InactiveConnection
	}
	return nil
}

func removeConnection(s *StoredSession, peer protocol.Callsign) {
	if s.View.ActiveConnection != nil && s.View.ActiveConnection.Peer == peer {
		s.View.ActiveConnection = nil
		return
	}
	if s.View.InactiveConnection != nil && s.View.InactiveConnection.Peer == peer {
		s.View.InactiveConnection = nil
	}
}

// isCurrentDataAuthority reports whether peer may send operational
// application elements to the aircraft right now: it must be the active
// CDA. Used by the §4.4.3 unauthorised-traffic rejection rule.
func isCurrentDataAuthority(view protocol.CpdlcSessionView, peer protocol.Callsign) bool {
	return view.ActiveConnection != nil && view.ActiveConnection.Phase == protocol.PhaseConnected && view.ActiveConnection.Peer == peer
}

// isDesignatedNDA reports whether peer has been named next data authority
// but is not yet authorised to send operational traffic.
func isDesignatedNDA(view protocol.CpdlcSessionView, peer protocol.Callsign) bool {
	return view.NextDataAuthority != nil && *view.NextDataAuthority == peer
}
