package protocol

// Direction says whether a catalog element travels ground-to-air (Uplink)
// or air-to-ground (Downlink).
type Direction string

const (
	Uplink   Direction = "Uplink"
	Downlink Direction = "Downlink"
)

// ResponseAttr is the GOLD response-attribute code carried by a catalog
// entry.
type ResponseAttr string

const (
	RespondWilcoUnable    ResponseAttr = "WU"
	RespondAffirmNegative ResponseAttr = "AN"
	RespondRoger          ResponseAttr = "R"
	RespondRequired       ResponseAttr = "Y"
	RespondNotRequired    ResponseAttr = "N"
	RespondNoExplicit     ResponseAttr = "NE"
)

// priority implements the WU(5) > AN(4) > R(3) > Y(2) > N(1) ordering used
// by ChooseShortResponseIntents. NE is treated as N.
func (a ResponseAttr) priority() int {
	switch a {
	case RespondWilcoUnable:
		return 5
	case RespondAffirmNegative:
		return 4
	case RespondRoger:
		return 3
	case RespondRequired:
		return 2
	case RespondNotRequired, RespondNoExplicit:
		return 1
	default:
		return 0
	}
}

// ShortResponseIntent names one canonical short-response choice, e.g. WILCO.
type ShortResponseIntent struct {
	Intent     string `json:"intent"`
	Label      string `json:"label"`
	UplinkId   string `json:"uplink_id"`
	DownlinkId string `json:"downlink_id"`
}

// CatalogEntry is one immutable row of the message catalog, keyed by
// element id (e.g. "UM20").
type CatalogEntry struct {
	Id                   string                `json:"id"`
	Direction            Direction             `json:"direction"`
	Template             string                `json:"template"`
	ArgTypes             []ArgType             `json:"arg_types"`
	ResponseAttr         ResponseAttr          `json:"response_attr"`
	ShortResponseIntents []ShortResponseIntent `json:"short_response_intents"`
	Closes               bool                  `json:"closes"`
	Standby              bool                  `json:"standby"`
	Fans                 bool                  `json:"fans"`
	AtnB1                bool                  `json:"atn_b1"`
}

// Catalog is the immutable table of catalog entries keyed by element id.
type Catalog map[string]CatalogEntry

// Lookup returns the entry for id, or false if unknown.
func (c Catalog) Lookup(id string) (CatalogEntry, bool) {
	e, ok := c[id]
	return e, ok
}

// TextPart is one rendered fragment of a message element: a static template
// segment (IsParam == false) or a substituted placeholder (IsParam == true).
type TextPart struct {
	Text    string `json:"text"`
	IsParam bool   `json:"is_param"`
}
