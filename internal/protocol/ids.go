// Package protocol defines the canonical OpenLink data model: envelopes,
// routing endpoints, CPDLC application elements, meta messages, session
// views, and the pure runtime-rule functions that every component shares.
package protocol

import "fmt"

// NetworkId identifies a logical network, e.g. "demonetwork". Stable across
// a deployment.
type NetworkId string

// NetworkAddress is a routing key on a network, typically derived from the
// authenticated principal (CID). Stable across a single session. Never
// derived from callsign.
type NetworkAddress string

// Callsign is an operational identity, e.g. "AFR123" for an aircraft or
// "LFPG" for an ATC unit. May overlap across networks; disambiguated by
// (NetworkId, NetworkAddress).
type Callsign string

// AcarsEndpointAddress is the 7-character ACARS address of an aircraft.
type AcarsEndpointAddress string

// StationId pairs a network with an address on it.
type StationId struct {
	Network NetworkId      `json:"network"`
	Address NetworkAddress `json:"address"`
}

func (s StationId) String() string {
	return fmt.Sprintf("%s/%s", s.Network, s.Address)
}

// ICAOAirportCode is a validated 4-letter ICAO airport code.
type ICAOAirportCode string

// Valid reports whether the code is exactly 4 upper-case ASCII letters.
func (c ICAOAirportCode) Valid() bool {
	if len(c) != 4 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// FlightLevel is an altitude expressed either as a flight level (<=999) or
// raw feet.
type FlightLevel int

// String renders "FL350" for values <=999 and raw feet otherwise, per §3.
func (f FlightLevel) String() string {
	if f <= 999 {
		return fmt.Sprintf("FL%d", int(f))
	}
	return fmt.Sprintf("%d", int(f))
}
