package session

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/sinric-link/internal/protocol"
)

// ActivityKind distinguishes handled requests from emitted events.
type ActivityKind string

// Activity kinds.
const (
	ActivityRequest ActivityKind = "request"
	ActivityEvent   ActivityKind = "event"
)

// Activity describes one request answered or one event queued.
type Activity struct {
	Kind     ActivityKind
	DeviceID string
	Action   string

	// Success is the response success flag for requests. Events are only
	// reported once queued, so it is always true for them.
	Success bool

	// Cause is set for events.
	Cause protocol.Cause

	// Value is the JSON response or event value.
	Value json.RawMessage

	At time.Time
}

// Observer receives session activity. Implementations must not block and
// must not call back into the session; they run on the goroutine calling
// Handle, SendEvent, Begin, Disconnect or Stop, or on the transport reader.
type Observer interface {
	StateChanged(state State)
	Activity(a Activity)
}
