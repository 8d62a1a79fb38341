package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Codec builds, signs and verifies envelopes for one set of credentials.
//
// Thread Safety:
//   - All methods are safe for concurrent use; credentials are read-only.
type Codec struct {
	appKey string
	secret string
	clock  *Clock
	newID  func() string
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock sets the clock used for createdAt stamps.
func WithClock(clock *Clock) CodecOption {
	return func(c *Codec) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithIDGenerator replaces the UUIDv4 generator used for message ids and
// reply tokens.
func WithIDGenerator(gen func() string) CodecOption {
	return func(c *Codec) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// NewCodec creates a codec for the given app credentials.
func NewCodec(appKey, appSecret string, opts ...CodecOption) *Codec {
	c := &Codec{
		appKey: appKey,
		secret: appSecret,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = NewClock(nil)
	}
	return c
}

// AppKey returns the app key sent in the handshake.
func (c *Codec) AppKey() string {
	return c.appKey
}

// Clock returns the codec's timestamp source.
func (c *Codec) Clock() *Clock {
	return c.clock
}

// NewResponse builds the response to req. The request's correlation fields
// are copied; createdAt and a fresh message id are stamped.
func (c *Codec) NewResponse(req *Message, success bool, value any) *Response {
	return &Response{
		Action:     req.Action,
		ClientID:   req.ClientID,
		CreatedAt:  c.clock.Unix(),
		DeviceID:   req.DeviceID,
		MessageID:  c.newID(),
		ReplyToken: req.ReplyToken,
		Success:    success,
		Type:       TypeResponse,
		Value:      valueOrEmpty(value),
	}
}

// NewEvent builds an event for deviceID. An empty cause defaults to
// CausePhysicalInteraction.
func (c *Codec) NewEvent(deviceID, action string, value any, cause Cause) *Event {
	if cause == "" {
		cause = CausePhysicalInteraction
	}
	return &Event{
		Action:     action,
		Cause:      EventCause{Type: cause},
		CreatedAt:  c.clock.Unix(),
		DeviceID:   deviceID,
		ReplyToken: c.newID(),
		Type:       TypeEvent,
		Value:      valueOrEmpty(value),
	}
}

// Seal serialises payload, signs the serialised bytes and returns the
// complete envelope. The signature is written last, after the payload
// bytes are final.
func (c *Codec) Seal(payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	signature := Sign(c.secret, p)

	var buf bytes.Buffer
	buf.Grow(len(p) + len(signature) + 96) //nolint:mnd // envelope overhead
	buf.WriteString(`{"header":{"payloadVersion":`)
	buf.WriteString(strconv.Itoa(PayloadVersion))
	buf.WriteString(`,"signatureVersion":`)
	buf.WriteString(strconv.Itoa(SignatureVersion))
	buf.WriteString(`},"payload":`)
	buf.Write(p)
	buf.WriteString(`,"signature":{"HMAC":"`)
	buf.WriteString(signature)
	buf.WriteString(`"}}`)
	return buf.Bytes(), nil
}

// envelope is the outer structure, used only to reach the signature.
type envelope struct {
	Header struct {
		PayloadVersion   int `json:"payloadVersion"`
		SignatureVersion int `json:"signatureVersion"`
	} `json:"header"`
	Payload   json.RawMessage `json:"payload"`
	Signature struct {
		HMAC string `json:"HMAC"`
	} `json:"signature"`
}

// Verify checks the envelope signature and decodes the payload.
//
// The payload is decoded from the same byte range the HMAC covered.
func (c *Codec) Verify(raw []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: no payload", ErrMalformedEnvelope)
	}

	if err := VerifySignature(c.secret, raw, env.Signature.HMAC); err != nil {
		return nil, err
	}

	payload, err := ExtractPayload(raw)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrMalformedEnvelope, err)
	}
	return &msg, nil
}
