package protocol

import "errors"

// Domain errors for the protocol package.
var (
	// ErrMalformedEnvelope is returned when a message does not have the
	// header/payload/signature structure.
	ErrMalformedEnvelope = errors.New("protocol: malformed envelope")

	// ErrMissingSignature is returned when the signature HMAC is absent.
	ErrMissingSignature = errors.New("protocol: missing signature")

	// ErrSignatureMismatch is returned when the HMAC does not match the payload.
	ErrSignatureMismatch = errors.New("protocol: signature mismatch")

	// ErrInvalidValue is returned when a payload value cannot be decoded
	// into the requested type.
	ErrInvalidValue = errors.New("protocol: invalid value")

	// ErrEncodingFailed is returned when a payload cannot be serialised.
	ErrEncodingFailed = errors.New("protocol: encoding failed")
)
