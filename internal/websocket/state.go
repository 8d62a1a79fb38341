package websocket

// State is the connection life-cycle state.
type State int32

// Connection states.
const (
	StateDisconnected State = iota
	StateDNSLookup
	StateTCPConnecting
	StateTLSHandshake
	StateWSHandshake
	StateConnected
	StateClosing
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateDNSLookup:
		return "dns_lookup"
	case StateTCPConnecting:
		return "tcp_connecting"
	case StateTLSHandshake:
		return "tls_handshake"
	case StateWSHandshake:
		return "ws_handshake"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Connecting reports whether s is one of the connection-establishment phases.
func (s State) Connecting() bool {
	return s >= StateDNSLookup && s <= StateWSHandshake
}

// idle reports whether a new connection attempt may start from s.
func (s State) idle() bool {
	return s == StateDisconnected || s == StateError
}
