package atnbridge

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"openlink/internal/protocol"
)

func TestFlexMinUnmarshalNumber(t *testing.T) {
	var f FlexMin
	if err := f.UnmarshalJSON([]byte("17")); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if f != 17 {
		t.Fatalf("got %d want 17", f)
	}
}

func TestFlexMinUnmarshalString(t *testing.T) {
	var f FlexMin
	if err := f.UnmarshalJSON([]byte(`"22"`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if f != 22 {
		t.Fatalf("got %d want 22", f)
	}
}

func TestFlexMinUnmarshalEmptyString(t *testing.T) {
	var f FlexMin
	f = 9
	if err := f.UnmarshalJSON([]byte(`""`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if f != 0 {
		t.Fatalf("got %d want 0", f)
	}
}

func TestFlexMinUnmarshalGarbage(t *testing.T) {
	var f FlexMin
	f = 9
	if err := f.UnmarshalJSON([]byte(`"not-a-number"`)); err != nil {
		t.Fatalf("UnmarshalJSON should silently ignore unparseable values: %v", err)
	}
	if f != 0 {
		t.Fatalf("got %d want 0", f)
	}
}

func TestLoadRecordsAndDecode(t *testing.T) {
	msg := protocol.CpdlcApplicationMessage{
		Min:      4,
		Elements: []protocol.MessageElement{{Id: "UM20", Args: []protocol.Arg{protocol.LevelArg(330)}}},
	}
	raw, err := Encode(protocol.Uplink, msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	fixture := `[{
		"direction": "Uplink",
		"octets_hex": "` + hex.EncodeToString(raw) + `",
		"aircraft_callsign": "UAL123",
		"aircraft_address": "A1B2C3",
		"station_callsign": "KZAK",
		"min_override": "9"
	}]`
	path := filepath.Join(t.TempDir(), "replay.json")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	records, err := LoadRecords(path)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records want 1", len(records))
	}

	source := protocol.ServerEndpoint("vatsim")
	env, err := DecodeRecord(records[0], source)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}

	if env.Payload.Kind != "Acars" || env.Payload.Acars == nil {
		t.Fatal("expected an ACARS payload")
	}
	acarsEnv := env.Payload.Acars
	if acarsEnv.Routing.Aircraft.Callsign != "UAL123" {
		t.Fatalf("got callsign %q want UAL123", acarsEnv.Routing.Aircraft.Callsign)
	}
	if acarsEnv.Message.Kind != "CPDLC" || acarsEnv.Message.Cpdlc == nil {
		t.Fatal("expected a CPDLC message body")
	}
	cpdlcEnv := acarsEnv.Message.Cpdlc
	if cpdlcEnv.Message.Kind != "Application" || cpdlcEnv.Message.Application == nil {
		t.Fatal("expected an application message body")
	}
	app := cpdlcEnv.Message.Application
	if app.Min != 9 {
		t.Fatalf("min override not applied: got %d want 9", app.Min)
	}
	if len(app.Elements) != 1 || app.Elements[0].Id != "UM20" {
		t.Fatalf("unexpected elements: %+v", app.Elements)
	}
}
