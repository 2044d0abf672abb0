package client

import (
	"fmt"

	"openlink/internal/protocol"
)

// cpdlcEnvelope wraps a CpdlcMessageBody exchanged between this client and
// peer into the full nested OpenLinkEnvelope SendToServer expects.
func (c *Client) cpdlcEnvelope(peer protocol.Callsign, body protocol.CpdlcMessageBody) protocol.OpenLinkEnvelope {
	acarsEnv := protocol.AcarsEnvelope{
		Message: protocol.NewCpdlcBody(protocol.CpdlcEnvelope{
			Source:      c.callsign,
			Destination: peer,
			Message:     body,
		}),
	}
	acarsEnv.Routing.Aircraft = protocol.AircraftRouting{
		Callsign: c.callsign,
		Address:  protocol.AcarsEndpointAddress(c.address),
	}

	routing := protocol.Routing{
		Source:      protocol.AddressEndpoint(c.network, c.address),
		Destination: protocol.ServerEndpoint(c.network),
	}
	return protocol.NewEnvelope(routing, protocol.NewAcarsPayload(acarsEnv), "")
}

// CpdlcLogonRequest publishes a LogonRequest meta message to station,
// beginning a new CPDLC connection.
func (c *Client) CpdlcLogonRequest(station protocol.Callsign, origin, destination protocol.ICAOAirportCode) error {
	return c.SendToServer(c.cpdlcEnvelope(station, protocol.NewMetaBody(protocol.NewLogonRequestMeta(protocol.LogonRequest{
		Station:     station,
		Origin:      origin,
		Destination: destination,
	}))))
}

// CpdlcLogonResponse publishes a LogonResponse meta message to aircraft,
// accepting or rejecting a pending logon.
func (c *Client) CpdlcLogonResponse(aircraft protocol.Callsign, accepted bool) error {
	return c.SendToServer(c.cpdlcEnvelope(aircraft, protocol.NewMetaBody(protocol.NewLogonResponseMeta(protocol.LogonResponse{
		Accepted: accepted,
	}))))
}

// CpdlcConnectionRequest publishes a ConnectionRequest meta message from
// this station to a logged-on aircraft, asking to become its connected
// data authority.
func (c *Client) CpdlcConnectionRequest(aircraft protocol.Callsign) error {
	return c.SendToServer(c.cpdlcEnvelope(aircraft, protocol.NewMetaBody(protocol.NewConnectionRequestMeta())))
}

// CpdlcConnectionResponse publishes a ConnectionResponse meta message.
func (c *Client) CpdlcConnectionResponse(aircraft protocol.Callsign, accepted bool) error {
	return c.SendToServer(c.cpdlcEnvelope(aircraft, protocol.NewMetaBody(protocol.NewConnectionResponseMeta(protocol.ConnectionResponse{
		Accepted: accepted,
	}))))
}

// CpdlcNextDataAuthority publishes a UM160 NEXT DATA AUTHORITY application
// element naming the station that will next become CDA.
func (c *Client) CpdlcNextDataAuthority(aircraft protocol.Callsign, nda protocol.Callsign) error {
	return c.CpdlcStationApplication(aircraft, 0, "UM160", []protocol.Arg{protocol.StationArg(nda)})
}

// CpdlcContactRequest publishes a UM117 CONTACT element naming a station
// and frequency the aircraft should establish logon with.
func (c *Client) CpdlcContactRequest(aircraft protocol.Callsign, station protocol.Callsign, frequencyMHz float64) error {
	return c.CpdlcStationApplication(aircraft, 0, "UM117", []protocol.Arg{
		protocol.StationArg(station), protocol.FrequencyArg(frequencyMHz),
	})
}

// CpdlcEndService publishes a UM161 END SERVICE element, terminating this
// station's active connection with aircraft.
func (c *Client) CpdlcEndService(aircraft protocol.Callsign) error {
	return c.CpdlcStationApplication(aircraft, 0, "UM161", nil)
}

// CpdlcLogonForward publishes a LogonForward meta message handing an
// aircraft's logon off to another station (CDA-to-NDA handover).
func (c *Client) CpdlcLogonForward(to protocol.Callsign, flight protocol.Callsign, origin, destination protocol.ICAOAirportCode, newStation protocol.Callsign) error {
	return c.SendToServer(c.cpdlcEnvelope(to, protocol.NewMetaBody(protocol.NewLogonForwardMeta(protocol.LogonForward{
		Flight:      flight,
		Origin:      origin,
		Destination: destination,
		NewStation:  newStation,
	}))))
}

// CpdlcStationApplication publishes a station-side (uplink) application
// message: a single catalog element, validated uplink before send, with an
// optional mrn answering a prior downlink.
func (c *Client) CpdlcStationApplication(aircraft protocol.Callsign, mrn int, elementID string, args []protocol.Arg) error {
	el := protocol.MessageElement{Id: elementID, Args: args}
	if err := protocol.ValidateElementDirection(el, c.catalog, protocol.Uplink); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	var mrnPtr *int
	if mrn != 0 {
		mrnPtr = &mrn
	}
	msg := protocol.CpdlcApplicationMessage{Min: 0, Mrn: mrnPtr, Elements: []protocol.MessageElement{el}}
	return c.SendToServer(c.cpdlcEnvelope(aircraft, protocol.NewApplicationBody(msg)))
}

// CpdlcAircraftApplication publishes an aircraft-side (downlink) application
// message: a single catalog element, validated downlink before send.
func (c *Client) CpdlcAircraftApplication(station protocol.Callsign, mrn int, elementID string, args []protocol.Arg) error {
	el := protocol.MessageElement{Id: elementID, Args: args}
	if err := protocol.ValidateElementDirection(el, c.catalog, protocol.Downlink); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	var mrnPtr *int
	if mrn != 0 {
		mrnPtr = &mrn
	}
	msg := protocol.CpdlcApplicationMessage{Min: 0, Mrn: mrnPtr, Elements: []protocol.MessageElement{el}}
	return c.SendToServer(c.cpdlcEnvelope(station, protocol.NewApplicationBody(msg)))
}

// CpdlcLogicalAck publishes the element-level acknowledgement for a
// received application message with the given min: DM100 if this client is
// aircraft-side, UM227 if station-side.
func (c *Client) CpdlcLogicalAck(peer protocol.Callsign, aircraftSender bool, receivedMin int) error {
	if aircraftSender {
		return c.CpdlcAircraftApplication(peer, receivedMin, "DM100", nil)
	}
	return c.CpdlcStationApplication(peer, receivedMin, "UM227", nil)
}
