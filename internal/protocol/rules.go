package protocol

import (
	"strconv"
	"strings"
)

// logicalAckIds are the element ids that themselves constitute a logical
// acknowledgement: DM100 (aircraft-sent) and UM227 (station-sent).
var logicalAckIds = map[string]bool{
	"DM100": true,
	"UM227": true,
}

// IsLogicalAckElementId reports whether id is DM100 or UM227.
func IsLogicalAckElementId(id string) bool {
	return logicalAckIds[id]
}

// MessageContainsLogicalAck reports whether any element in elements is a
// logical acknowledgement.
func MessageContainsLogicalAck(elements []MessageElement) bool {
	for _, e := range elements {
		if IsLogicalAckElementId(e.Id) {
			return true
		}
	}
	return false
}

// ShouldAutoSendLogicalAck implements §4.1: a logical ack is warranted iff
// min is a real (non-placeholder) MIN and the message does not already
// carry its own logical ack.
func ShouldAutoSendLogicalAck(elements []MessageElement, min int) bool {
	return min > 0 && !MessageContainsLogicalAck(elements)
}

// ResponseAttrToIntents returns the canonical ordered short-response
// intents for a response attribute, per §4.1.
func ResponseAttrToIntents(attr ResponseAttr) []ShortResponseIntent {
	switch attr {
	case RespondWilcoUnable:
		return []ShortResponseIntent{
			{Intent: "WILCO", Label: "WILCO", DownlinkId: "DM0"},
			{Intent: "UNABLE", Label: "UNABLE", DownlinkId: "DM1"},
			{Intent: "STANDBY", Label: "STANDBY", DownlinkId: "DM2"},
		}
	case RespondAffirmNegative:
		return []ShortResponseIntent{
			{Intent: "AFFIRM", Label: "AFFIRM", DownlinkId: "DM4"},
			{Intent: "NEGATIVE", Label: "NEGATIVE", DownlinkId: "DM5"},
			{Intent: "STANDBY", Label: "STANDBY", DownlinkId: "DM2"},
		}
	case RespondRoger:
		return []ShortResponseIntent{
			{Intent: "ROGER", Label: "ROGER", DownlinkId: "DM3"},
			{Intent: "STANDBY", Label: "STANDBY", DownlinkId: "DM2"},
		}
	default: // Y, N, NE
		return nil
	}
}

// ChooseShortResponseIntents implements §4.1: scan elements for the one
// whose response_attr has the highest WU>AN>R>Y>N priority (NE treated as
// N), and return its pre-computed short_response_intents if non-empty, else
// the canonical list for that attribute. If no catalog entry matched at
// all, fall back to the WU intent list.
func ChooseShortResponseIntents(elements []MessageElement, catalog Catalog) []ShortResponseIntent {
	var best *CatalogEntry
	for _, e := range elements {
		entry, ok := catalog.Lookup(e.Id)
		if !ok {
			continue
		}
		if best == nil || entry.ResponseAttr.priority() > best.ResponseAttr.priority() {
			cp := entry
			best = &cp
		}
	}
	if best == nil {
		return ResponseAttrToIntents(RespondWilcoUnable)
	}
	if len(best.ShortResponseIntents) > 0 {
		return best.ShortResponseIntents
	}
	return ResponseAttrToIntents(best.ResponseAttr)
}

// standbyIds suspend a dialogue rather than closing it.
var standbyIds = map[string]bool{
	"DM2": true,
	"UM1": true,
	"UM2": true,
}

// closingIds close a dialogue when present, unless a standby id is also
// present.
var closingIds = map[string]bool{
	"DM0": true, "DM1": true, "DM3": true, "DM4": true, "DM5": true,
	"UM0": true, "UM3": true, "UM4": true, "UM5": true,
}

// ClosesDialogueResponseElements implements §4.1: true iff some element
// closes the dialogue and none of the elements is a standby.
func ClosesDialogueResponseElements(elements []MessageElement) bool {
	closes := false
	for _, e := range elements {
		if standbyIds[e.Id] {
			return false
		}
		if closingIds[e.Id] {
			closes = true
		}
	}
	return closes
}

// ValidateElement checks an element against the catalog: the id must
// exist, and args must match the catalog's arg-type sequence in length and
// type.
func ValidateElement(e MessageElement, catalog Catalog) error {
	entry, ok := catalog.Lookup(e.Id)
	if !ok {
		return newValidateError(UnknownId, e.Id, "element id not present in catalog")
	}
	if len(e.Args) != len(entry.ArgTypes) {
		return newValidateError(ArgCountMismatch, e.Id, "expected arg count does not match catalog template")
	}
	for i, arg := range e.Args {
		if arg.Type != entry.ArgTypes[i] {
			return newValidateError(ArgTypeMismatch, e.Id, "arg type does not match catalog at position "+strconv.Itoa(i))
		}
	}
	return nil
}

// ValidateElementDirection additionally checks that the element is declared
// for the given wire direction, returning WrongDirection if not.
func ValidateElementDirection(e MessageElement, catalog Catalog, want Direction) error {
	if err := ValidateElement(e, catalog); err != nil {
		return err
	}
	entry, _ := catalog.Lookup(e.Id)
	if entry.Direction != want {
		return newValidateError(WrongDirection, e.Id, "element direction "+string(entry.Direction)+" does not match required "+string(want))
	}
	return nil
}

// RenderElements renders a sequence of elements to text parts, substituting
// catalog [placeholder] tokens with formatted arg values. Fewer args than
// placeholders leaves the placeholder upper-cased; extra args are ignored.
func RenderElements(elements []MessageElement, catalog Catalog) []TextPart {
	var parts []TextPart
	for _, e := range elements {
		entry, ok := catalog.Lookup(e.Id)
		if !ok {
			parts = append(parts, TextPart{Text: e.Id, IsParam: false})
			continue
		}
		parts = append(parts, renderTemplate(entry.Template, e.Args)...)
	}
	return parts
}

// renderTemplate splits a template like "CLIMB TO AND MAINTAIN [level]" into
// static and parameter TextParts.
func renderTemplate(template string, args []Arg) []TextPart {
	var parts []TextPart
	argIdx := 0
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			parts = append(parts, TextPart{Text: buf.String(), IsParam: false})
			buf.Reset()
		}
	}

	i := 0
	for i < len(template) {
		if template[i] == '[' {
			end := strings.IndexByte(template[i:], ']')
			if end < 0 {
				buf.WriteByte(template[i])
				i++
				continue
			}
			flush()
			placeholder := template[i+1 : i+end]
			if argIdx < len(args) {
				parts = append(parts, TextPart{Text: renderArg(args[argIdx]), IsParam: true})
				argIdx++
			} else {
				parts = append(parts, TextPart{Text: strings.ToUpper(placeholder), IsParam: true})
			}
			i += end + 1
			continue
		}
		buf.WriteByte(template[i])
		i++
	}
	flush()
	return parts
}

func renderArg(a Arg) string {
	if a.Type == ArgLevel {
		if fl, ok := a.AsFlightLevel(); ok {
			return fl.String()
		}
	}
	return a.AsText()
}
