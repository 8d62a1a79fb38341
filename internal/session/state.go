package session

// State is the session connection state.
type State int32

// Session states.
const (
	StateDisconnected State = iota
	StateWiFiConnecting
	StateWiFiConnected
	StateWSConnecting
	StateConnected
	StateError
)

var stateNames = [...]string{
	StateDisconnected:   "disconnected",
	StateWiFiConnecting: "wifi_connecting",
	StateWiFiConnected:  "wifi_connected",
	StateWSConnecting:   "ws_connecting",
	StateConnected:      "connected",
	StateError:          "error",
}

// String returns the state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// active reports whether Begin has started a connection that is not yet
// over.
func (s State) active() bool {
	return s == StateWiFiConnecting || s == StateWSConnecting || s == StateConnected
}
