package catalog

import (
	"encoding/json"
	"os"
	"reflect"
	"testing"

	"openlink/internal/protocol"
)

// TestDefaultMatchesPolyglotFixture checks that the in-process catalog
// literal stays in lockstep with the cross-language fixture other OpenLink
// SDKs conform to.
func TestDefaultMatchesPolyglotFixture(t *testing.T) {
	data, err := os.ReadFile("../../testdata/catalog.v1.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	var fromFixture protocol.Catalog
	if err := json.Unmarshal(data, &fromFixture); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	want := Default()
	if len(fromFixture) != len(want) {
		t.Fatalf("fixture has %d entries, Default() has %d", len(fromFixture), len(want))
	}

	for id, wantEntry := range want {
		gotEntry, ok := fromFixture[id]
		if !ok {
			t.Errorf("fixture missing entry %s", id)
			continue
		}
		// Normalise nil vs empty slices, which differ between a Go literal
		// and JSON decoding, before comparing.
		if len(wantEntry.ArgTypes) == 0 {
			wantEntry.ArgTypes = nil
		}
		if len(gotEntry.ArgTypes) == 0 {
			gotEntry.ArgTypes = nil
		}
		if len(wantEntry.ShortResponseIntents) == 0 {
			wantEntry.ShortResponseIntents = nil
		}
		if len(gotEntry.ShortResponseIntents) == 0 {
			gotEntry.ShortResponseIntents = nil
		}
		if !reflect.DeepEqual(wantEntry, gotEntry) {
			t.Errorf("entry %s mismatch:\n  fixture: %+v\n  literal: %+v", id, gotEntry, wantEntry)
		}
	}
}

func TestLookupUnknownId(t *testing.T) {
	if _, ok := Default().Lookup("UM9999"); ok {
		t.Fatal("expected unknown id to miss")
	}
}
