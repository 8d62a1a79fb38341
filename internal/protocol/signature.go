package protocol

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

var (
	payloadMarker   = []byte(`"payload":`)
	signatureMarker = []byte(`,"signature"`)
)

// Sign returns base64(HMAC-SHA256(secret, payload)).
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ExtractPayload returns the exact bytes between `"payload":` and the first
// following `,"signature"`. The result aliases raw.
func ExtractPayload(raw []byte) ([]byte, error) {
	start := bytes.Index(raw, payloadMarker)
	if start < 0 {
		return nil, fmt.Errorf("%w: no payload key", ErrMalformedEnvelope)
	}
	start += len(payloadMarker)

	end := bytes.Index(raw[start:], signatureMarker)
	if end <= 0 {
		return nil, fmt.Errorf("%w: no signature after payload", ErrMalformedEnvelope)
	}
	return raw[start : start+end], nil
}

// VerifySignature checks signature against the payload substring of raw
// using a constant-time comparison.
func VerifySignature(secret string, raw []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	payload, err := ExtractPayload(raw)
	if err != nil {
		return err
	}

	expected := Sign(secret, payload)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}
