package atnbridge

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"openlink/internal/protocol"
)

// FlexMin tolerates a recorded fixture's "min_override" field arriving as
// either a JSON number or a quoted string, the way hand-captured wire logs
// sometimes serialise message identification numbers inconsistently.
type FlexMin int

// UnmarshalJSON accepts a bare number, a quoted digit string, or an absent
// field (left at its zero value).
func (f *FlexMin) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexMin(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexMin(v)
		return nil
	}
	*f = 0
	return nil
}

// Record is one entry of a replay fixture file (cmd/openlinkctl replay):
// a captured raw CPDLC octet string, hex-encoded, plus the routing
// context needed to build an outbound envelope from it.
type Record struct {
	Direction        protocol.Direction `json:"direction"`
	OctetsHex        string             `json:"octets_hex"`
	AircraftCallsign protocol.Callsign  `json:"aircraft_callsign"`
	AircraftAddress  string             `json:"aircraft_address"`
	StationCallsign  protocol.Callsign  `json:"station_callsign"`
	// MinOverride replaces the decoded MIN when non-zero, for replaying a
	// fixture against a fresh session where the original MIN would
	// collide with one already assigned.
	MinOverride FlexMin `json:"min_override,omitempty"`
}

// LoadRecords reads a JSON array of replay Records from path.
func LoadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("atnbridge: read replay file: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("atnbridge: parse replay file: %w", err)
	}
	return records, nil
}

// DecodeRecord decodes a Record's raw octets and wraps the result in the
// full nested OpenLinkEnvelope a client would publish to its outbox.
func DecodeRecord(rec Record, source protocol.RoutingEndpoint) (protocol.OpenLinkEnvelope, error) {
	raw, err := hex.DecodeString(rec.OctetsHex)
	if err != nil {
		return protocol.OpenLinkEnvelope{}, fmt.Errorf("atnbridge: decode hex octets: %w", err)
	}

	app, err := NewDecoder(raw, rec.Direction).Decode()
	if err != nil {
		return protocol.OpenLinkEnvelope{}, fmt.Errorf("atnbridge: decode octets: %w", err)
	}
	if rec.MinOverride != 0 {
		app.Min = int(rec.MinOverride)
	}
	if app.Timestamp.IsZero() {
		app.Timestamp = time.Now().UTC()
	}

	cpdlcSource, cpdlcDest := rec.AircraftCallsign, rec.StationCallsign
	if rec.Direction == protocol.Uplink {
		cpdlcSource, cpdlcDest = rec.StationCallsign, rec.AircraftCallsign
	}

	cpdlcEnv := protocol.CpdlcEnvelope{
		Source:      cpdlcSource,
		Destination: cpdlcDest,
		Message:     protocol.NewApplicationBody(*app),
	}
	acarsEnv := protocol.AcarsEnvelope{
		Routing: struct {
			Aircraft protocol.AircraftRouting `json:"aircraft"`
		}{Aircraft: protocol.AircraftRouting{
			Callsign: rec.AircraftCallsign,
			Address:  protocol.AcarsEndpointAddress(rec.AircraftAddress),
		}},
		Message: protocol.NewCpdlcBody(cpdlcEnv),
	}

	routing := protocol.Routing{
		Source:      source,
		Destination: protocol.ServerEndpoint(source.Network),
	}
	return protocol.NewEnvelope(routing, protocol.NewAcarsPayload(acarsEnv), ""), nil
}
