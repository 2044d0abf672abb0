package protocol

import (
	"encoding/json"
	"time"
)

// CpdlcApplicationMessage is a dialogued operational CPDLC message. MIN is
// in 0..=63 where 0 is the outbound-client placeholder the server MUST
// replace before forwarding (§3). MRN, when present, equals the MIN of the
// message being answered in the same connection.
type CpdlcApplicationMessage struct {
	Min       int              `json:"min"`
	Mrn       *int             `json:"mrn"`
	Elements  []MessageElement `json:"elements"`
	Timestamp time.Time        `json:"timestamp"`
}

// CpdlcMessageBody is either an Application message or a Meta message,
// serialised as an externally-tagged sum type.
type CpdlcMessageBody struct {
	Kind        string
	Application *CpdlcApplicationMessage
	Meta        *CpdlcMetaMessage
}

// NewApplicationBody wraps an application message.
func NewApplicationBody(m CpdlcApplicationMessage) CpdlcMessageBody {
	return CpdlcMessageBody{Kind: "Application", Application: &m}
}

// NewMetaBody wraps a meta message.
func NewMetaBody(m CpdlcMetaMessage) CpdlcMessageBody {
	return CpdlcMessageBody{Kind: "Meta", Meta: &m}
}

func (b CpdlcMessageBody) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case "Application":
		return json.Marshal(struct {
			Type string                   `json:"type"`
			Data *CpdlcApplicationMessage `json:"data"`
		}{Type: b.Kind, Data: b.Application})
	case "Meta":
		return json.Marshal(struct {
			Type string            `json:"type"`
			Data *CpdlcMetaMessage `json:"data"`
		}{Type: b.Kind, Data: b.Meta})
	default:
		return nil, newParseError(InvalidField, "message", "cpdlc message body has unset kind", nil)
	}
}

func (b *CpdlcMessageBody) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return newParseError(MalformedJSON, "message", "could not decode cpdlc message body", err)
	}
	switch tagged.Type {
	case "Application":
		var v CpdlcApplicationMessage
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return newParseError(InvalidField, "message.data", "invalid application message", err)
		}
		*b = CpdlcMessageBody{Kind: tagged.Type, Application: &v}
	case "Meta":
		var v CpdlcMetaMessage
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return err
		}
		*b = CpdlcMessageBody{Kind: tagged.Type, Meta: &v}
	default:
		return newParseError(UnknownVariant, "message.type", "unrecognised cpdlc message type "+tagged.Type, nil)
	}
	return nil
}
