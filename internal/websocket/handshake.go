package websocket

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // SHA-1 is mandated by RFC 6455 for the accept key
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// acceptGUID is the RFC 6455 magic value appended to the client key.
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

var headerTerminator = []byte("\r\n\r\n")

// GenerateKey returns a fresh base64-encoded 16-byte handshake key.
func GenerateKey() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generating handshake key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// AcceptKey returns the Sec-WebSocket-Accept value the server must send
// for key: base64(SHA-1(key + GUID)).
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(key + acceptGUID)) //nolint:gosec // RFC 6455
	return base64.StdEncoding.EncodeToString(sum[:])
}

// UpgradeRequest holds the values sent in the upgrade request.
type UpgradeRequest struct {
	Host       string
	Port       int
	TLS        bool
	Path       string
	Key        string
	AppKey     string
	DeviceIDs  []string
	Platform   string
	SDKVersion string
}

// Bytes renders the HTTP/1.1 upgrade request.
//
// Besides the standard headers it carries the cloud's custom headers:
// appkey, deviceids (semicolon-joined), restoredevicestates (always
// false), platform and SDKVersion.
func (r UpgradeRequest) Bytes() []byte {
	path := r.Path
	if path == "" {
		path = "/"
	}

	host := r.Host
	if (r.TLS && r.Port != 443) || (!r.TLS && r.Port != 80) {
		host = net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
	}

	var b strings.Builder
	b.WriteString("GET " + path + " HTTP/1.1\r\n")
	b.WriteString("Host: " + host + "\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Key: " + r.Key + "\r\n")
	b.WriteString("Sec-WebSocket-Version: 13\r\n")
	b.WriteString("appkey: " + r.AppKey + "\r\n")
	b.WriteString("deviceids: " + strings.Join(r.DeviceIDs, ";") + "\r\n")
	b.WriteString("restoredevicestates: false\r\n")
	b.WriteString("platform: " + r.Platform + "\r\n")
	b.WriteString("SDKVersion: " + r.SDKVersion + "\r\n")
	b.WriteString("\r\n")
	return []byte(b.String())
}

// UpgradeResponse is an accepted upgrade response.
type UpgradeResponse struct {
	StatusCode int
	Header     http.Header

	// ServerTime is the parsed Date header, zero if absent.
	ServerTime time.Time
}

// ParseUpgradeResponse parses the response header block at the start of b
// and checks it against the key that was sent. It returns the number of
// bytes consumed; anything after that belongs to the frame stream.
//
// ErrIncompleteHandshake means the header terminator has not arrived yet.
func ParseUpgradeResponse(b []byte, key string) (*UpgradeResponse, int, error) {
	end := bytes.Index(b, headerTerminator)
	if end < 0 {
		return nil, 0, ErrIncompleteHandshake
	}
	consumed := end + len(headerTerminator)

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(b[:consumed])), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		return nil, 0, fmt.Errorf("%w: status %q", ErrHandshakeFailed, resp.Status)
	}

	if got, want := resp.Header.Get("Sec-WebSocket-Accept"), AcceptKey(key); got != want {
		return nil, 0, fmt.Errorf("%w: accept key mismatch", ErrHandshakeFailed)
	}

	out := &UpgradeResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}
	if date := resp.Header.Get("Date"); date != "" {
		if t, err := http.ParseTime(date); err == nil {
			out.ServerTime = t
		}
	}
	return out, consumed, nil
}
