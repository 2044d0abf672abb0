package atnbridge

import (
	"fmt"
	"strings"

	"openlink/internal/protocol"
)

// Encode packs a CpdlcApplicationMessage back into FANS-1/A octets for the
// given wire direction, the inverse of Decoder.Decode. Only the first
// element is encoded: this bridge's curated catalog subset has no
// multi-element message in practice (§12 scope note).
func Encode(direction protocol.Direction, msg protocol.CpdlcApplicationMessage) ([]byte, error) {
	if len(msg.Elements) == 0 {
		return nil, fmt.Errorf("atnbridge: cannot encode a message with no elements")
	}
	el := msg.Elements[0]
	entry, ok := lookupByID(direction, el.Id)
	if !ok {
		return nil, fmt.Errorf("atnbridge: %s is not in this bridge's curated catalog subset", el.Id)
	}

	bw := NewBitWriter()
	bw.WriteBit(msg.Mrn != nil)
	bw.WriteBit(false) // timestamps are not round-tripped by the replay bridge

	bw.WriteConstrainedInt(msg.Min, 0, 63)
	if msg.Mrn != nil {
		bw.WriteConstrainedInt(*msg.Mrn, 0, 63)
	}

	bw.WriteConstrainedInt(entry.code, 0, maxElementCode(direction))
	if err := encodeArgs(bw, entry.argLen, el.Args); err != nil {
		return nil, fmt.Errorf("atnbridge: %s args: %w", el.Id, err)
	}
	return bw.Bytes(), nil
}

func encodeArgs(bw *BitWriter, layout argLayout, args []protocol.Arg) error {
	switch layout {
	case argNone:
		return nil
	case argLevel:
		fl, ok := args[0].AsFlightLevel()
		if !ok {
			return fmt.Errorf("expected a Level arg")
		}
		bw.WriteBits(uint32(fl), 17)
		return nil
	case argStation:
		bw.WriteBytes(padStation(args[0].AsText()))
		return nil
	case argStationFrequency:
		bw.WriteBytes(padStation(args[0].AsText()))
		var f float64
		if _, err := fmt.Sscanf(string(args[1].Value), "%g", &f); err != nil {
			return fmt.Errorf("expected a Frequency arg: %w", err)
		}
		bw.WriteBits(uint32(f*1000.0), 24)
		return nil
	case argText:
		text := args[0].AsText()
		bw.WriteLength(len(text))
		bw.WriteBytes([]byte(text))
		return nil
	default:
		return fmt.Errorf("unknown arg layout %d", layout)
	}
}

func padStation(callsign string) []byte {
	out := make([]byte, 8)
	copy(out, strings.ToUpper(callsign))
	return out
}
