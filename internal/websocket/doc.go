// Package websocket is a minimal RFC 6455 client for the cloud link.
//
// It is deliberately small: one outstanding connection, client role only,
// text frames in both directions, no extensions or compression. The
// connection is opened asynchronously and driven by the application's
// polling loop:
//
//	disconnected -> dns_lookup -> tcp_connecting -> tls_handshake (TLS only)
//	    -> ws_handshake -> connected -> closing | error -> disconnected
//
// Connect returns immediately; a dial goroutine resolves, dials and
// upgrades, then becomes the reader for the connection. Handle, called
// from the polling loop, keeps the link alive with pings and schedules
// reconnects a fixed delay after every failure or disconnect. Failures in
// any phase land in the error state and are only retried by Handle, never
// synchronously.
//
// # Goroutines
//
//   - dial/reader: one per connection attempt. Parses frames out of a
//     single reusable receive buffer and invokes the message callback for
//     every complete text message. The callback must copy what it keeps.
//   - caller: Connect, Handle, Send, SendPing, Disconnect.
//
// Writes from both goroutines (pongs from the reader, text and pings from
// the caller) are serialised by a write mutex.
//
// # Framing
//
// EncodeFrame and ParseFrame are exported for tests and tools. Outbound
// frames are always final and masked with a fresh random key; lengths use
// the shortest of the 7, 16 and 64-bit encodings.
package websocket
