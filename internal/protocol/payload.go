package protocol

import "encoding/json"

// StationPresence is the online/offline state carried by a StationStatus
// meta payload.
type StationPresence string

const (
	StationOnline  StationPresence = "Online"
	StationOffline StationPresence = "Offline"
)

// StationMeta identifies a station for presence purposes.
type StationMeta struct {
	Callsign     Callsign             `json:"callsign"`
	AcarsAddress AcarsEndpointAddress `json:"acars_address,omitempty"`
}

// StationStatus is the (StationMeta, StationPresence) tuple carried by the
// outer envelope's Meta payload variant.
type StationStatus struct {
	Station StationMeta     `json:"station"`
	Status  StationPresence `json:"status"`
}

// Payload is the outer envelope's payload: either Acars(AcarsEnvelope) or
// Meta(StationStatus).
type Payload struct {
	Kind  string
	Acars *AcarsEnvelope
	Meta  *StationStatus
}

// NewAcarsPayload wraps an AcarsEnvelope as the outer payload.
func NewAcarsPayload(m AcarsEnvelope) Payload {
	return Payload{Kind: "Acars", Acars: &m}
}

// NewMetaPayload wraps a StationStatus as the outer payload.
func NewMetaPayload(m StationStatus) Payload {
	return Payload{Kind: "Meta", Meta: &m}
}

func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case "Acars":
		return json.Marshal(struct {
			Type string         `json:"type"`
			Data *AcarsEnvelope `json:"data"`
		}{Type: p.Kind, Data: p.Acars})
	case "Meta":
		return json.Marshal(struct {
			Type string         `json:"type"`
			Data *StationStatus `json:"data"`
		}{Type: p.Kind, Data: p.Meta})
	default:
		return nil, newParseError(InvalidField, "payload", "outer payload has unset kind", nil)
	}
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return newParseError(MalformedJSON, "payload", "could not decode outer payload", err)
	}
	switch tagged.Type {
	case "Acars":
		var v AcarsEnvelope
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return err
		}
		*p = Payload{Kind: tagged.Type, Acars: &v}
	case "Meta":
		var v StationStatus
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return newParseError(InvalidField, "payload.data", "invalid station status", err)
		}
		*p = Payload{Kind: tagged.Type, Meta: &v}
	default:
		return newParseError(UnknownVariant, "payload.type", "unrecognised payload type "+tagged.Type, nil)
	}
	return nil
}
