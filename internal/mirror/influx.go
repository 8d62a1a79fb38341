package mirror

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nerrad567/sinric-link/internal/session"
)

// PointWriter is the subset of *influxdb.Client the telemetry mirror needs.
type PointWriter interface {
	WriteDeviceEvent(deviceID, action, kind string, fields map[string]any, at time.Time)
	WriteLinkState(state string, connected bool, at time.Time)
}

// Telemetry records session activity as InfluxDB points.
type Telemetry struct {
	w    PointWriter
	opts options
}

var _ session.Observer = (*Telemetry)(nil)

// NewTelemetry creates a telemetry mirror writing through w.
func NewTelemetry(w PointWriter, opts ...Option) *Telemetry {
	return &Telemetry{w: w, opts: buildOptions(opts)}
}

// StateChanged records a link state point.
func (t *Telemetry) StateChanged(state session.State) {
	t.w.WriteLinkState(state.String(), state == session.StateConnected, t.opts.now())
}

// Activity records the numeric parts of an event or response value.
// Requests also carry a 0/1 success field.
func (t *Telemetry) Activity(a session.Activity) {
	fields := NumericFields(a.Value)
	if a.Kind == session.ActivityRequest {
		if fields == nil {
			fields = make(map[string]any, 1)
		}
		fields["success"] = boolToFloat(a.Success)
	}
	at := a.At
	if at.IsZero() {
		at = t.opts.now()
	}
	t.w.WriteDeviceEvent(a.DeviceID, a.Action, string(a.Kind), fields, at)
}

// stateLevels maps capability state words to numbers so they can be
// graphed. JAMMED has no level and is skipped.
var stateLevels = map[string]float64{
	"on":          1,
	"off":         0,
	"locked":      1,
	"unlocked":    0,
	"lock":        1,
	"unlock":      0,
	"open":        1,
	"closed":      0,
	"detected":    1,
	"notdetected": 0,
	"pressed":     1,
}

// NumericFields extracts the top-level numeric members of a JSON object
// value. Booleans become 0/1 and known state words their level; anything
// else is ignored. It returns nil when nothing numeric is found.
func NumericFields(value json.RawMessage) map[string]any {
	if len(value) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(value, &obj); err != nil {
		return nil
	}

	var fields map[string]any
	set := func(k string, v float64) {
		if fields == nil {
			fields = make(map[string]any, len(obj))
		}
		fields[k] = v
	}
	for k, v := range obj {
		switch x := v.(type) {
		case float64:
			set(k, x)
		case bool:
			set(k, boolToFloat(x))
		case string:
			if level, ok := stateLevels[strings.ToLower(x)]; ok {
				set(k, level)
			}
		}
	}
	return fields
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
