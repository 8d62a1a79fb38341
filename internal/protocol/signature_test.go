package protocol

import (
	"errors"
	"testing"
)

func TestSign_KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	want := "W9zBRr9gdU5qBCQmCJV1x1oAPwidJzmDnexYuWTsOEM="
	if got != want {
		t.Errorf("Sign() = %q, want %q", got, want)
	}
}

func TestSign_Deterministic(t *testing.T) {
	payload := []byte(`{"action":"setPowerState","deviceId":"5dc1564130xxxxxxxxxxxxxx"}`)

	first := Sign("secret", payload)
	second := Sign("secret", payload)
	if first != second {
		t.Errorf("Sign() not deterministic: %q != %q", first, second)
	}
}

func TestSign_FlippedByteChangesSignature(t *testing.T) {
	payload := []byte(`{"action":"setPowerState","value":{"state":"On"}}`)
	base := Sign("secret", payload)

	for i := range payload {
		mutated := append([]byte(nil), payload...)
		mutated[i] ^= 0x01
		if Sign("secret", mutated) == base {
			t.Fatalf("flipping byte %d did not change the signature", i)
		}
	}
}

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "standard envelope",
			raw:  `{"header":{"payloadVersion":2,"signatureVersion":1},"payload":{"a":1},"signature":{"HMAC":"x"}}`,
			want: `{"a":1}`,
		},
		{
			name: "whitespace preserved",
			raw:  `{"payload":{ "a" : 1 },"signature":{"HMAC":"x"}}`,
			want: `{ "a" : 1 }`,
		},
		{
			name:    "no payload key",
			raw:     `{"header":{},"signature":{"HMAC":"x"}}`,
			wantErr: true,
		},
		{
			name:    "no signature key",
			raw:     `{"payload":{"a":1}}`,
			wantErr: true,
		},
		{
			name:    "signature before payload",
			raw:     `{"signature":{"HMAC":"x"},"payload":{"a":1}}`,
			wantErr: true,
		},
		{
			name:    "spaced signature key",
			raw:     `{"payload":{"a":1}, "signature":{"HMAC":"x"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPayload([]byte(tt.raw))

			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEnvelope) {
					t.Errorf("ExtractPayload() error = %v, want %v", err, ErrMalformedEnvelope)
				}
				return
			}

			if err != nil {
				t.Fatalf("ExtractPayload() unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ExtractPayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	payload := `{"action":"setPowerState","value":{"state":"On"}}`
	sig := Sign("secret", []byte(payload))
	raw := []byte(`{"header":{},"payload":` + payload + `,"signature":{"HMAC":"` + sig + `"}}`)

	tests := []struct {
		name    string
		secret  string
		raw     []byte
		sig     string
		wantErr error
	}{
		{name: "valid", secret: "secret", raw: raw, sig: sig},
		{name: "wrong secret", secret: "other", raw: raw, sig: sig, wantErr: ErrSignatureMismatch},
		{name: "missing signature", secret: "secret", raw: raw, sig: "", wantErr: ErrMissingSignature},
		{
			name:    "tampered payload",
			secret:  "secret",
			raw:     []byte(`{"header":{},"payload":{"action":"setPowerState","value":{"state":"Off"}},"signature":{"HMAC":"` + sig + `"}}`),
			sig:     sig,
			wantErr: ErrSignatureMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.secret, tt.raw, tt.sig)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("VerifySignature() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifySignature() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
