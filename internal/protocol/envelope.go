package protocol

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OpenLinkEnvelope is the outer layer of the wire format: the unit that
// travels over a single publish to a subject.
type OpenLinkEnvelope struct {
	Id            uuid.UUID  `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	CorrelationId *uuid.UUID `json:"correlation_id,omitempty"`
	Routing       Routing    `json:"routing"`
	Payload       Payload    `json:"payload"`
	Token         string     `json:"token"`
}

// NewEnvelope stamps a fresh id and UTC timestamp onto a new envelope.
func NewEnvelope(routing Routing, payload Payload, token string) OpenLinkEnvelope {
	return OpenLinkEnvelope{
		Id:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Routing:   routing,
		Payload:   payload,
		Token:     token,
	}
}

// ParseEnvelope decodes a wire-format envelope. Failures are always typed
// *ParseError; this function never panics.
func ParseEnvelope(data []byte) (OpenLinkEnvelope, error) {
	var raw struct {
		Id            string          `json:"id"`
		Timestamp     string          `json:"timestamp"`
		CorrelationId *string         `json:"correlation_id,omitempty"`
		Routing       Routing         `json:"routing"`
		Payload       json.RawMessage `json:"payload"`
		Token         string          `json:"token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return OpenLinkEnvelope{}, newParseError(MalformedJSON, "", "invalid envelope JSON", err)
	}

	id, err := uuid.Parse(raw.Id)
	if err != nil {
		return OpenLinkEnvelope{}, newParseError(InvalidField, "id", "not a valid UUID", err)
	}

	ts, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		return OpenLinkEnvelope{}, newParseError(InvalidField, "timestamp", "not a valid RFC3339 timestamp", err)
	}

	var corr *uuid.UUID
	if raw.CorrelationId != nil {
		c, err := uuid.Parse(*raw.CorrelationId)
		if err != nil {
			return OpenLinkEnvelope{}, newParseError(InvalidField, "correlation_id", "not a valid UUID", err)
		}
		corr = &c
	}

	var payload Payload
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return OpenLinkEnvelope{}, err
		}
		return OpenLinkEnvelope{}, newParseError(InvalidField, "payload", "invalid payload", err)
	}

	return OpenLinkEnvelope{
		Id:            id,
		Timestamp:     ts.UTC(),
		CorrelationId: corr,
		Routing:       raw.Routing,
		Payload:       payload,
		Token:         raw.Token,
	}, nil
}

// SerialiseEnvelope encodes an envelope to its wire-format JSON bytes.
// parse(serialise(env)) is semantically equal to env for all valid
// envelopes (ignoring object-key order), per §8.
func SerialiseEnvelope(env OpenLinkEnvelope) ([]byte, error) {
	aux := struct {
		Id            string     `json:"id"`
		Timestamp     string     `json:"timestamp"`
		CorrelationId *string    `json:"correlation_id,omitempty"`
		Routing       Routing    `json:"routing"`
		Payload       Payload    `json:"payload"`
		Token         string     `json:"token"`
	}{
		Id:        env.Id.String(),
		Timestamp: env.Timestamp.UTC().Format(time.RFC3339),
		Routing:   env.Routing,
		Payload:   env.Payload,
		Token:     env.Token,
	}
	if env.CorrelationId != nil {
		s := env.CorrelationId.String()
		aux.CorrelationId = &s
	}
	return json.Marshal(aux)
}
