package protocol

import (
	"encoding/json"
	"fmt"
)

// CpdlcMetaMessage is a protocol-only message that is never dialogued
// (never carries a MIN/MRN): LogonRequest, LogonResponse, ConnectionRequest,
// ConnectionResponse, LogonForward, or SessionUpdate.
type CpdlcMetaMessage struct {
	Kind string

	LogonRequest      *LogonRequest
	LogonResponse     *LogonResponse
	ConnectionRequest *ConnectionRequest
	ConnectionResponse *ConnectionResponse
	LogonForward      *LogonForward
	SessionUpdate     *SessionUpdate
}

type LogonRequest struct {
	Station     Callsign        `json:"station"`
	Origin      ICAOAirportCode `json:"origin"`
	Destination ICAOAirportCode `json:"destination"`
}

type LogonResponse struct {
	Accepted bool `json:"accepted"`
}

type ConnectionRequest struct{}

type ConnectionResponse struct {
	Accepted bool `json:"accepted"`
}

type LogonForward struct {
	Flight      Callsign        `json:"flight"`
	Origin      ICAOAirportCode `json:"origin"`
	Destination ICAOAirportCode `json:"destination"`
	NewStation  Callsign        `json:"new_station"`
}

type SessionUpdate struct {
	Session CpdlcSessionView `json:"session"`
}

// NewLogonRequestMeta wraps a LogonRequest.
func NewLogonRequestMeta(m LogonRequest) CpdlcMetaMessage {
	return CpdlcMetaMessage{Kind: "LogonRequest", LogonRequest: &m}
}

// NewLogonResponseMeta wraps a LogonResponse.
func NewLogonResponseMeta(m LogonResponse) CpdlcMetaMessage {
	return CpdlcMetaMessage{Kind: "LogonResponse", LogonResponse: &m}
}

// NewConnectionRequestMeta wraps a ConnectionRequest.
func NewConnectionRequestMeta() CpdlcMetaMessage {
	return CpdlcMetaMessage{Kind: "ConnectionRequest", ConnectionRequest: &ConnectionRequest{}}
}

// NewConnectionResponseMeta wraps a ConnectionResponse.
func NewConnectionResponseMeta(m ConnectionResponse) CpdlcMetaMessage {
	return CpdlcMetaMessage{Kind: "ConnectionResponse", ConnectionResponse: &m}
}

// NewLogonForwardMeta wraps a LogonForward.
func NewLogonForwardMeta(m LogonForward) CpdlcMetaMessage {
	return CpdlcMetaMessage{Kind: "LogonForward", LogonForward: &m}
}

// NewSessionUpdateMeta wraps a SessionUpdate.
func NewSessionUpdateMeta(view CpdlcSessionView) CpdlcMetaMessage {
	return CpdlcMetaMessage{Kind: "SessionUpdate", SessionUpdate: &SessionUpdate{Session: view}}
}

func (m CpdlcMetaMessage) MarshalJSON() ([]byte, error) {
	var data any
	switch m.Kind {
	case "LogonRequest":
		data = m.LogonRequest
	case "LogonResponse":
		data = m.LogonResponse
	case "ConnectionRequest":
		data = m.ConnectionRequest
	case "ConnectionResponse":
		data = m.ConnectionResponse
	case "LogonForward":
		data = m.LogonForward
	case "SessionUpdate":
		data = m.SessionUpdate
	default:
		return nil, fmt.Errorf("protocol: meta message has unset kind")
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{Type: m.Kind, Data: data})
}

func (m *CpdlcMetaMessage) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	switch tagged.Type {
	case "LogonRequest":
		var v LogonRequest
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return err
		}
		*m = CpdlcMetaMessage{Kind: tagged.Type, LogonRequest: &v}
	case "LogonResponse":
		var v LogonResponse
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return err
		}
		*m = CpdlcMetaMessage{Kind: tagged.Type, LogonResponse: &v}
	case "ConnectionRequest":
		*m = CpdlcMetaMessage{Kind: tagged.Type, ConnectionRequest: &ConnectionRequest{}}
	case "ConnectionResponse":
		var v ConnectionResponse
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return err
		}
		*m = CpdlcMetaMessage{Kind: tagged.Type, ConnectionResponse: &v}
	case "LogonForward":
		var v LogonForward
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return err
		}
		*m = CpdlcMetaMessage{Kind: tagged.Type, LogonForward: &v}
	case "SessionUpdate":
		var v SessionUpdate
		if err := json.Unmarshal(tagged.Data, &v); err != nil {
			return err
		}
		*m = CpdlcMetaMessage{Kind: tagged.Type, SessionUpdate: &v}
	default:
		return newParseError(UnknownVariant, "message.meta.type", "unrecognised meta message type "+tagged.Type, nil)
	}
	return nil
}
