package protocol

import (
	"encoding/json"
	"os"
	"testing"
)

// testCatalog is a tiny catalog covering only the ids exercised by the
// runtime vectors fixture, independent of the internal/catalog package to
// keep this package free of that dependency.
var testCatalog = Catalog{
	"UM20": {
		Id: "UM20", Direction: Uplink, Template: "MAINTAIN [level]",
		ArgTypes: []ArgType{ArgLevel}, ResponseAttr: RespondWilcoUnable,
		ShortResponseIntents: []ShortResponseIntent{
			{Intent: "WILCO", Label: "WILCO", DownlinkId: "DM0"},
			{Intent: "UNABLE", Label: "UNABLE", DownlinkId: "DM1"},
			{Intent: "STANDBY", Label: "STANDBY", DownlinkId: "DM2"},
		},
	},
	"UM160": {Id: "UM160", Direction: Uplink, Template: "NEXT DATA AUTHORITY [station]", ArgTypes: []ArgType{ArgStation}, ResponseAttr: RespondNotRequired},
	"UM161": {Id: "UM161", Direction: Uplink, Template: "END SERVICE", ResponseAttr: RespondRoger},
	"DM9":   {Id: "DM9", Direction: Downlink, Template: "REQUEST [level]", ArgTypes: []ArgType{ArgLevel}, ResponseAttr: RespondAffirmNegative},
}

type runtimeVectors struct {
	LogicalAck []struct {
		Name     string   `json:"name"`
		Min      int      `json:"min"`
		Elements []string `json:"elements"`
		Expect   bool     `json:"expect"`
	} `json:"logical_ack"`
	ShortResponse []struct {
		Name          string   `json:"name"`
		Elements      []string `json:"elements"`
		ExpectIntents []string `json:"expect_intents"`
	} `json:"short_response"`
	DialogueClose []struct {
		Name     string   `json:"name"`
		Elements []string `json:"elements"`
		Expect   bool     `json:"expect"`
	} `json:"dialogue_close"`
}

func loadVectors(t *testing.T) runtimeVectors {
	t.Helper()
	data, err := os.ReadFile("../../testdata/runtime-vectors.v1.json")
	if err != nil {
		t.Fatalf("read vectors: %v", err)
	}
	var v runtimeVectors
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal vectors: %v", err)
	}
	return v
}

func elementsOf(ids []string) []MessageElement {
	out := make([]MessageElement, len(ids))
	for i, id := range ids {
		out[i] = MessageElement{Id: id}
	}
	return out
}

func TestShouldAutoSendLogicalAckVectors(t *testing.T) {
	v := loadVectors(t)
	for _, c := range v.LogicalAck {
		t.Run(c.Name, func(t *testing.T) {
			got := ShouldAutoSendLogicalAck(elementsOf(c.Elements), c.Min)
			if got != c.Expect {
				t.Errorf("got %v, want %v", got, c.Expect)
			}
		})
	}
}

func TestChooseShortResponseIntentsVectors(t *testing.T) {
	v := loadVectors(t)
	for _, c := range v.ShortResponse {
		t.Run(c.Name, func(t *testing.T) {
			intents := ChooseShortResponseIntents(elementsOf(c.Elements), testCatalog)
			if len(intents) != len(c.ExpectIntents) {
				t.Fatalf("got %d intents, want %d (%v)", len(intents), len(c.ExpectIntents), intents)
			}
			for i, want := range c.ExpectIntents {
				if intents[i].Intent != want {
					t.Errorf("intent[%d] = %s, want %s", i, intents[i].Intent, want)
				}
			}
		})
	}
}

func TestClosesDialogueResponseElementsVectors(t *testing.T) {
	v := loadVectors(t)
	for _, c := range v.DialogueClose {
		t.Run(c.Name, func(t *testing.T) {
			got := ClosesDialogueResponseElements(elementsOf(c.Elements))
			if got != c.Expect {
				t.Errorf("got %v, want %v", got, c.Expect)
			}
		})
	}
}

func TestMinWrapsFromSixtyThreeToOneNeverZero(t *testing.T) {
	min := 63
	next := min + 1
	if next > 63 {
		next = 1
	}
	if next != 1 {
		t.Fatalf("expected wrap to 1, got %d", next)
	}
}

func TestFlightLevelBoundary(t *testing.T) {
	if got := FlightLevel(999).String(); got != "FL999" {
		t.Errorf("FlightLevel(999) = %s, want FL999", got)
	}
	if got := FlightLevel(1000).String(); got != "1000" {
		t.Errorf("FlightLevel(1000) = %s, want 1000", got)
	}
}

func TestRenderElementsPlaceholderSubstitution(t *testing.T) {
	parts := RenderElements([]MessageElement{
		{Id: "UM20", Args: []Arg{LevelArg(350)}},
	}, testCatalog)
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2: %+v", len(parts), parts)
	}
	if parts[0].Text != "MAINTAIN " || parts[0].IsParam {
		t.Errorf("part 0 = %+v", parts[0])
	}
	if parts[1].Text != "FL350" || !parts[1].IsParam {
		t.Errorf("part 1 = %+v", parts[1])
	}
}

func TestRenderElementsMissingArgUppercasesPlaceholder(t *testing.T) {
	parts := RenderElements([]MessageElement{
		{Id: "UM20"}, // no args supplied though template wants [level]
	}, testCatalog)
	last := parts[len(parts)-1]
	if last.Text != "LEVEL" || !last.IsParam {
		t.Errorf("got %+v, want uppercased placeholder", last)
	}
}

func TestValidateElementArgCountMismatch(t *testing.T) {
	err := ValidateElement(MessageElement{Id: "UM20"}, testCatalog)
	var ve *ValidateError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asValidateError(err, &ve) || ve.Kind != ArgCountMismatch {
		t.Fatalf("got %v, want ArgCountMismatch", err)
	}
}

func TestValidateElementUnknownId(t *testing.T) {
	err := ValidateElement(MessageElement{Id: "XX999"}, testCatalog)
	var ve *ValidateError
	if !asValidateError(err, &ve) || ve.Kind != UnknownId {
		t.Fatalf("got %v, want UnknownId", err)
	}
}

func TestValidateElementWrongDirection(t *testing.T) {
	err := ValidateElementDirection(MessageElement{Id: "DM9", Args: []Arg{LevelArg(350)}}, testCatalog, Uplink)
	var ve *ValidateError
	if !asValidateError(err, &ve) || ve.Kind != WrongDirection {
		t.Fatalf("got %v, want WrongDirection", err)
	}
}

func asValidateError(err error, target **ValidateError) bool {
	ve, ok := err.(*ValidateError)
	if ok {
		*target = ve
	}
	return ok
}
