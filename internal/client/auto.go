package client

import (
	"log"

	"openlink/internal/protocol"
)

// SetAircraftRole enables the aircraft-side automatic behaviours (§4.5):
// auto-DM100 on received application messages, and auto-logon on a
// received UM117 CONTACT. homeAirport is used as the origin field of any
// auto-published LogonRequest.
func (c *Client) SetAircraftRole(homeAirport protocol.ICAOAirportCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isAircraft = true
	c.autoBehaviours = true
	c.homeAirport = homeAirport
}

// SetStationRole enables the station-side automatic behaviours: auto-UM227
// on received application messages.
func (c *Client) SetStationRole() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isAircraft = false
	c.autoBehaviours = true
}

func (c *Client) runAutoBehaviours(env protocol.OpenLinkEnvelope) {
	c.mu.Lock()
	enabled, isAircraft, homeAirport := c.autoBehaviours, c.isAircraft, c.homeAirport
	c.mu.Unlock()
	if !enabled {
		return
	}
	if env.Payload.Kind != "Acars" || env.Payload.Acars == nil {
		return
	}
	acarsEnv := env.Payload.Acars
	if acarsEnv.Message.Kind != "CPDLC" || acarsEnv.Message.Cpdlc == nil {
		return
	}
	cpdlcEnv := acarsEnv.Message.Cpdlc
	if cpdlcEnv.Message.Kind != "Application" || cpdlcEnv.Message.Application == nil {
		return
	}
	app := cpdlcEnv.Message.Application
	peer := cpdlcEnv.Source

	if protocol.ShouldAutoSendLogicalAck(app.Elements, app.Min) {
		if err := c.CpdlcLogicalAck(peer, isAircraft, app.Min); err != nil {
			log.Printf("client: auto logical-ack to %s: %v", peer, err)
		}
	}

	if isAircraft {
		c.autoContactOnUM117(peer, app.Elements, homeAirport)
	}
}

// autoContactOnUM117 implements the aircraft-side auto-logon behaviour: a
// received UM117 CONTACT [station] [freq] triggers a LogonRequest to the
// named station, without the server mutating any session state itself.
func (c *Client) autoContactOnUM117(activeCDA protocol.Callsign, elements []protocol.MessageElement, homeAirport protocol.ICAOAirportCode) {
	for _, station := range contactStationsFromElements(elements) {
		if err := c.CpdlcLogonRequest(station, homeAirport, ""); err != nil {
			log.Printf("client: auto-logon to %s (contact from %s): %v", station, activeCDA, err)
		}
	}
}

// contactStationsFromElements extracts the station callsigns named by any
// UM117 CONTACT elements, in order.
func contactStationsFromElements(elements []protocol.MessageElement) []protocol.Callsign {
	var stations []protocol.Callsign
	for _, el := range elements {
		if el.Id != "UM117" || len(el.Args) == 0 {
			continue
		}
		station := protocol.Callsign(el.Args[0].AsText())
		if station != "" {
			stations = append(stations, station)
		}
	}
	return stations
}
