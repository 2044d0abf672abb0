package protocol

import "encoding/json"

// AircraftRouting identifies the aircraft an AcarsEnvelope concerns.
type AircraftRouting struct {
	Callsign Callsign             `json:"callsign"`
	Address  AcarsEndpointAddress `json:"address"`
}

// AcarsEnvelope is the middle layer of the nested wire envelope.
type AcarsEnvelope struct {
	Routing struct {
		Aircraft AircraftRouting `json:"aircraft"`
	} `json:"routing"`
	Message AcarsMessageBody `json:"message"`
}

// AcarsMessageBody carries the single defined ACARS application message
// kind, CPDLC, as an externally-tagged sum type so the wire format stays
// extensible to future ACARS applications (e.g. ADS-C).
type AcarsMessageBody struct {
	Kind  string
	Cpdlc *CpdlcEnvelope
}

// NewCpdlcBody wraps a CpdlcEnvelope as the ACARS message body.
func NewCpdlcBody(m CpdlcEnvelope) AcarsMessageBody {
	return AcarsMessageBody{Kind: "CPDLC", Cpdlc: &m}
}

func (b AcarsMessageBody) MarshalJSON() ([]byte, error) {
	if b.Kind != "CPDLC" || b.Cpdlc == nil {
		return nil, newParseError(InvalidField, "message", "acars message body has unset kind", nil)
	}
	return json.Marshal(struct {
		Type string         `json:"type"`
		Data *CpdlcEnvelope `json:"data"`
	}{Type: "CPDLC", Data: b.Cpdlc})
}

func (b *AcarsMessageBody) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return newParseError(MalformedJSON, "payload.data.message", "could not decode acars message body", err)
	}
	if tagged.Type != "CPDLC" {
		return newParseError(UnknownVariant, "payload.data.message.type", "unrecognised acars message type "+tagged.Type, nil)
	}
	var v CpdlcEnvelope
	if err := json.Unmarshal(tagged.Data, &v); err != nil {
		return err
	}
	*b = AcarsMessageBody{Kind: "CPDLC", Cpdlc: &v}
	return nil
}
