package atnbridge

import "openlink/internal/protocol"

// elementCode pairs a catalog element id with the numeric FANS-1/A element
// identifier it occupies on the wire, plus how to decode/encode its args.
// Only the element ids the canonical catalog (internal/catalog) defines are
// represented; a full ATN/FANS-1/A implementation carries uM0-uM182 and
// dM0-dM128, which is out of scope for this reference bridge (§12).
type elementCode struct {
	id     string
	code   int
	argLen argLayout
}

// argLayout names how an element's argument bits are shaped, independent
// of the catalog's ArgTypes (which only constrain the *wire JSON* shape).
type argLayout int

const (
	argNone argLayout = iota
	argLevel
	argStation
	argStationFrequency
	argText
)

var uplinkCodes = []elementCode{
	{"UM0", 0, argNone},
	{"UM1", 1, argNone},
	{"UM2", 2, argNone},
	{"UM3", 3, argNone},
	{"UM4", 4, argNone},
	{"UM5", 5, argNone},
	{"UM20", 20, argLevel},
	{"UM117", 117, argStationFrequency},
	{"UM160", 160, argStation},
	{"UM161", 161, argNone},
	{"UM227", 227, argNone},
}

var downlinkCodes = []elementCode{
	{"DM0", 0, argNone},
	{"DM1", 1, argNone},
	{"DM2", 2, argNone},
	{"DM3", 3, argNone},
	{"DM4", 4, argNone},
	{"DM5", 5, argNone},
	{"DM9", 9, argLevel},
	{"DM62", 62, argText},
	{"DM63", 63, argNone},
	{"DM89", 89, argStationFrequency},
	{"DM100", 100, argNone},
	{"DM107", 107, argNone},
}

func codesFor(dir protocol.Direction) []elementCode {
	if dir == protocol.Uplink {
		return uplinkCodes
	}
	return downlinkCodes
}

func lookupByID(dir protocol.Direction, id string) (elementCode, bool) {
	for _, c := range codesFor(dir) {
		if c.id == id {
			return c, true
		}
	}
	return elementCode{}, false
}

func lookupByCode(dir protocol.Direction, code int) (elementCode, bool) {
	for _, c := range codesFor(dir) {
		if c.code == code {
			return c, true
		}
	}
	return elementCode{}, false
}

// maxElementCode bounds the CHOICE width read for an unknown element: the
// real protocol allows uM0-uM182 / dM0-dM128, so decoding a recognised
// octet stream from a peer that uses an element outside this bridge's
// curated set still advances the bit cursor correctly for the id itself,
// even though the code lookup then fails and no arguments are decoded.
func maxElementCode(dir protocol.Direction) int {
	if dir == protocol.Uplink {
		return 182
	}
	return 128
}
