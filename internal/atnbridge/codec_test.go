package atnbridge

import (
	"testing"

	"openlink/internal/protocol"
)

func TestEncodeDecodeRoundTripNoArgs(t *testing.T) {
	msg := protocol.CpdlcApplicationMessage{
		Min:      5,
		Elements: []protocol.MessageElement{{Id: "UM161"}},
	}
	raw, err := Encode(protocol.Uplink, msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := NewDecoder(raw, protocol.Uplink).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Min != msg.Min {
		t.Fatalf("min: got %d want %d", got.Min, msg.Min)
	}
	if len(got.Elements) != 1 || got.Elements[0].Id != "UM161" {
		t.Fatalf("unexpected elements: %+v", got.Elements)
	}
}

func TestEncodeDecodeRoundTripWithMrn(t *testing.T) {
	mrn := 3
	msg := protocol.CpdlcApplicationMessage{
		Min:      12,
		Mrn:      &mrn,
		Elements: []protocol.MessageElement{{Id: "DM100"}},
	}
	raw, err := Encode(protocol.Downlink, msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := NewDecoder(raw, protocol.Downlink).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Mrn == nil || *got.Mrn != mrn {
		t.Fatalf("mrn: got %v want %d", got.Mrn, mrn)
	}
	if got.Elements[0].Id != "DM100" {
		t.Fatalf("got element %s want DM100", got.Elements[0].Id)
	}
}

func TestEncodeDecodeRoundTripLevelArg(t *testing.T) {
	msg := protocol.CpdlcApplicationMessage{
		Min:      1,
		Elements: []protocol.MessageElement{{Id: "UM20", Args: []protocol.Arg{protocol.LevelArg(350)}}},
	}
	raw, err := Encode(protocol.Uplink, msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := NewDecoder(raw, protocol.Uplink).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	fl, ok := got.Elements[0].Args[0].AsFlightLevel()
	if !ok || fl != 350 {
		t.Fatalf("level: got %v ok=%v want 350", fl, ok)
	}
}

func TestEncodeDecodeRoundTripStationFrequency(t *testing.T) {
	msg := protocol.CpdlcApplicationMessage{
		Min: 2,
		Elements: []protocol.MessageElement{{
			Id:   "UM117",
			Args: []protocol.Arg{protocol.StationArg("KZAK"), protocol.FrequencyArg(128.450)},
		}},
	}
	raw, err := Encode(protocol.Uplink, msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := NewDecoder(raw, protocol.Uplink).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Elements[0].Args[0].AsText() != "KZAK" {
		t.Fatalf("station: got %q want KZAK", got.Elements[0].Args[0].AsText())
	}
}

func TestEncodeDecodeRoundTripText(t *testing.T) {
	msg := protocol.CpdlcApplicationMessage{
		Min:      9,
		Elements: []protocol.MessageElement{{Id: "DM62", Args: []protocol.Arg{protocol.TextArg("DIVERTING DUE WEATHER")}}},
	}
	raw, err := Encode(protocol.Downlink, msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := NewDecoder(raw, protocol.Downlink).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Elements[0].Args[0].AsText() != "DIVERTING DUE WEATHER" {
		t.Fatalf("text: got %q", got.Elements[0].Args[0].AsText())
	}
}

func TestEncodeUnknownElement(t *testing.T) {
	msg := protocol.CpdlcApplicationMessage{
		Min:      1,
		Elements: []protocol.MessageElement{{Id: "UM9999"}},
	}
	if _, err := Encode(protocol.Uplink, msg); err == nil {
		t.Fatal("expected error encoding an element outside the curated catalog subset")
	}
}

func TestEncodeNoElements(t *testing.T) {
	msg := protocol.CpdlcApplicationMessage{Min: 1}
	if _, err := Encode(protocol.Uplink, msg); err == nil {
		t.Fatal("expected error encoding a message with no elements")
	}
}
