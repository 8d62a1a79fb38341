package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope versions written into every header.
const (
	PayloadVersion   = 2
	SignatureVersion = 1
)

// Type is the payload "type" field.
type Type string

// Payload types.
const (
	TypeRequest  Type = "request"
	TypeResponse Type = "response"
	TypeEvent    Type = "event"
)

// Cause explains why an event was raised.
type Cause string

// Event causes understood by the cloud.
const (
	CausePhysicalInteraction Cause = "PHYSICAL_INTERACTION"
	CausePeriodicPoll        Cause = "PERIODIC_POLL"
	CauseAlert               Cause = "ALERT"
)

// Message is a verified inbound payload.
type Message struct {
	Action     string          `json:"action"`
	ClientID   string          `json:"clientId,omitempty"`
	CreatedAt  int64           `json:"createdAt,omitempty"`
	DeviceID   string          `json:"deviceId"`
	ReplyToken string          `json:"replyToken,omitempty"`
	Type       Type            `json:"type"`
	Value      json.RawMessage `json:"value,omitempty"`
}

// DecodeValue unmarshals the request value into v.
func (m *Message) DecodeValue(v any) error {
	if len(m.Value) == 0 {
		return fmt.Errorf("%w: no value for action %q", ErrInvalidValue, m.Action)
	}
	if err := json.Unmarshal(m.Value, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return nil
}

// Response answers a request. Build it with Codec.NewResponse.
//
// Field order is the serialisation order.
type Response struct {
	Action     string `json:"action"`
	ClientID   string `json:"clientId"`
	CreatedAt  int64  `json:"createdAt"`
	DeviceID   string `json:"deviceId"`
	MessageID  string `json:"message"`
	ReplyToken string `json:"replyToken"`
	Success    bool   `json:"success"`
	Type       Type   `json:"type"`
	Value      any    `json:"value"`
}

// EventCause is the nested cause object of an event.
type EventCause struct {
	Type Cause `json:"type"`
}

// Event is an unsolicited device report. Build it with Codec.NewEvent.
type Event struct {
	Action     string     `json:"action"`
	Cause      EventCause `json:"cause"`
	CreatedAt  int64      `json:"createdAt"`
	DeviceID   string     `json:"deviceId"`
	ReplyToken string     `json:"replyToken"`
	Type       Type       `json:"type"`
	Value      any        `json:"value"`
}

// emptyValue is serialised when a response or event carries no value.
var emptyValue = json.RawMessage(`{}`)

func valueOrEmpty(v any) any {
	if v == nil {
		return emptyValue
	}
	return v
}
