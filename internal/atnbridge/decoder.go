package atnbridge

import (
	"fmt"
	"strings"
	"time"

	"openlink/internal/protocol"
)

// Decoder decodes a single FANS-1/A CPDLC octet string for one wire
// direction, adapted from the teacher's Decoder: a constant-width header
// (MIN, optional MRN, optional timestamp presence bits) followed by a
// CHOICE-coded element id and its element-specific arguments.
type Decoder struct {
	br        *BitReader
	direction protocol.Direction
}

// NewDecoder wraps raw octets for decoding as either an uplink or a
// downlink CPDLC message.
func NewDecoder(data []byte, direction protocol.Direction) *Decoder {
	return &Decoder{br: NewBitReader(data), direction: direction}
}

// Decode reads the header and a single element, returning a
// CpdlcApplicationMessage ready to forward into the network.
func (d *Decoder) Decode() (*protocol.CpdlcApplicationMessage, error) {
	hasMrn, err := d.br.ReadBit()
	if err != nil {
		return nil, fmt.Errorf("atnbridge: hasMrn: %w", err)
	}
	hasTimestamp, err := d.br.ReadBit()
	if err != nil {
		return nil, fmt.Errorf("atnbridge: hasTimestamp: %w", err)
	}

	min, err := d.br.ReadConstrainedInt(0, 63)
	if err != nil {
		return nil, fmt.Errorf("atnbridge: min: %w", err)
	}

	var mrn *int
	if hasMrn {
		v, err := d.br.ReadConstrainedInt(0, 63)
		if err != nil {
			return nil, fmt.Errorf("atnbridge: mrn: %w", err)
		}
		mrn = &v
	}

	ts := time.Time{}
	if hasTimestamp {
		hours, err := d.br.ReadConstrainedInt(0, 23)
		if err != nil {
			return nil, fmt.Errorf("atnbridge: timestamp hours: %w", err)
		}
		minutes, err := d.br.ReadConstrainedInt(0, 59)
		if err != nil {
			return nil, fmt.Errorf("atnbridge: timestamp minutes: %w", err)
		}
		now := time.Now().UTC()
		ts = time.Date(now.Year(), now.Month(), now.Day(), hours, minutes, 0, 0, time.UTC)
	}

	el, err := d.decodeElement()
	if err != nil {
		return nil, fmt.Errorf("atnbridge: element: %w", err)
	}

	return &protocol.CpdlcApplicationMessage{
		Min:       min,
		Mrn:       mrn,
		Elements:  []protocol.MessageElement{*el},
		Timestamp: ts,
	}, nil
}

func (d *Decoder) decodeElement() (*protocol.MessageElement, error) {
	code, err := d.br.ReadConstrainedInt(0, maxElementCode(d.direction))
	if err != nil {
		return nil, fmt.Errorf("element id: %w", err)
	}
	entry, ok := lookupByCode(d.direction, code)
	if !ok {
		return nil, fmt.Errorf("element code %d not in this bridge's curated catalog subset", code)
	}

	args, err := d.decodeArgs(entry.argLen)
	if err != nil {
		return nil, fmt.Errorf("%s args: %w", entry.id, err)
	}
	return &protocol.MessageElement{Id: entry.id, Args: args}, nil
}

func (d *Decoder) decodeArgs(layout argLayout) ([]protocol.Arg, error) {
	switch layout {
	case argNone:
		return nil, nil
	case argLevel:
		v, err := d.br.ReadBits(17)
		if err != nil {
			return nil, err
		}
		return []protocol.Arg{protocol.LevelArg(protocol.FlightLevel(v))}, nil
	case argStation:
		station, err := d.decodeStation()
		if err != nil {
			return nil, err
		}
		return []protocol.Arg{protocol.StationArg(station)}, nil
	case argStationFrequency:
		station, err := d.decodeStation()
		if err != nil {
			return nil, err
		}
		khz, err := d.br.ReadBits(24)
		if err != nil {
			return nil, err
		}
		return []protocol.Arg{protocol.StationArg(station), protocol.FrequencyArg(float64(khz) / 1000.0)}, nil
	case argText:
		n, err := d.br.ReadLength()
		if err != nil {
			return nil, err
		}
		raw, err := d.br.ReadBytes(n)
		if err != nil {
			return nil, err
		}
		return []protocol.Arg{protocol.TextArg(string(raw))}, nil
	default:
		return nil, fmt.Errorf("unknown arg layout %d", layout)
	}
}

func (d *Decoder) decodeStation() (protocol.Callsign, error) {
	raw, err := d.br.ReadBytes(8)
	if err != nil {
		return "", err
	}
	return protocol.Callsign(strings.TrimRight(string(raw), "\x00")), nil
}
