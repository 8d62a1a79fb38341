package websocket

import "errors"

// Domain errors for the websocket package.
var (
	// ErrNotConnected is returned by Send and SendPing outside the
	// connected state.
	ErrNotConnected = errors.New("websocket: not connected")

	// ErrAlreadyConnecting is returned by Connect unless the client is
	// disconnected or in the error state.
	ErrAlreadyConnecting = errors.New("websocket: connection already in progress")

	// ErrInvalidConfig is returned when the connection configuration is unusable.
	ErrInvalidConfig = errors.New("websocket: invalid configuration")

	// ErrDNSFailed is returned when the server name cannot be resolved.
	ErrDNSFailed = errors.New("websocket: dns lookup failed")

	// ErrConnectionFailed is returned when the TCP connection cannot be opened.
	ErrConnectionFailed = errors.New("websocket: connection failed")

	// ErrTLSFailed is returned when the TLS handshake fails.
	ErrTLSFailed = errors.New("websocket: tls handshake failed")

	// ErrHandshakeFailed is returned when the server rejects or mangles the
	// protocol upgrade.
	ErrHandshakeFailed = errors.New("websocket: upgrade handshake failed")

	// ErrIncompleteHandshake signals that more bytes are needed to parse the
	// upgrade response.
	ErrIncompleteHandshake = errors.New("websocket: incomplete handshake response")

	// ErrIncompleteFrame signals that more bytes are needed to parse a frame.
	ErrIncompleteFrame = errors.New("websocket: incomplete frame")

	// ErrInvalidFrame is returned for frames this client cannot accept.
	ErrInvalidFrame = errors.New("websocket: invalid frame")

	// ErrProtocolDesync is returned when a frame cannot fit the receive
	// buffer. The stream can no longer be framed and is closed.
	ErrProtocolDesync = errors.New("websocket: protocol desync")

	// ErrPingTimeout is returned when the server stops answering pings.
	ErrPingTimeout = errors.New("websocket: ping timeout")

	// ErrClosedByPeer is returned when the server sends a close frame.
	ErrClosedByPeer = errors.New("websocket: closed by peer")

	// ErrSendFailed is returned when a frame cannot be written.
	ErrSendFailed = errors.New("websocket: send failed")
)
