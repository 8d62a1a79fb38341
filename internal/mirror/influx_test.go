package mirror

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/nerrad567/sinric-link/internal/session"
)

type point struct {
	deviceID  string
	action    string
	kind      string
	fields    map[string]any
	state     string
	connected bool
	at        time.Time
}

type fakeWriter struct {
	points []point
}

func (f *fakeWriter) WriteDeviceEvent(deviceID, action, kind string, fields map[string]any, at time.Time) {
	f.points = append(f.points, point{deviceID: deviceID, action: action, kind: kind, fields: fields, at: at})
}

func (f *fakeWriter) WriteLinkState(state string, connected bool, at time.Time) {
	f.points = append(f.points, point{state: state, connected: connected, at: at})
}

func TestTelemetry_StateChanged(t *testing.T) {
	w := &fakeWriter{}
	tel := NewTelemetry(w, WithClock(func() time.Time { return testTime }))

	tel.StateChanged(session.StateConnected)
	tel.StateChanged(session.StateError)

	want := []point{
		{state: "connected", connected: true, at: testTime},
		{state: "error", connected: false, at: testTime},
	}
	if !reflect.DeepEqual(w.points, want) {
		t.Errorf("points = %+v, want %+v", w.points, want)
	}
}

func TestTelemetry_Activity(t *testing.T) {
	w := &fakeWriter{}
	tel := NewTelemetry(w, WithClock(func() time.Time { return testTime }))
	at := testTime.Add(-time.Minute)

	tel.Activity(session.Activity{
		Kind: session.ActivityEvent, DeviceID: testDeviceID, Action: "currentTemperature",
		Success: true, Value: json.RawMessage(`{"temperature":21.5,"humidity":40}`), At: at,
	})
	tel.Activity(session.Activity{
		Kind: session.ActivityRequest, DeviceID: testDeviceID, Action: "setColor",
		Success: false, Value: json.RawMessage(`{}`),
	})

	if len(w.points) != 2 {
		t.Fatalf("points = %d, want 2", len(w.points))
	}
	ev := w.points[0]
	if ev.kind != "event" || ev.action != "currentTemperature" || !ev.at.Equal(at) {
		t.Errorf("event point = %+v", ev)
	}
	if !reflect.DeepEqual(ev.fields, map[string]any{"temperature": 21.5, "humidity": 40.0}) {
		t.Errorf("event fields = %v", ev.fields)
	}

	req := w.points[1]
	if req.kind != "request" || !req.at.Equal(testTime) {
		t.Errorf("request point = %+v", req)
	}
	if !reflect.DeepEqual(req.fields, map[string]any{"success": 0.0}) {
		t.Errorf("request fields = %v", req.fields)
	}
}

func TestNumericFields(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  map[string]any
	}{
		{"empty", ``, nil},
		{"not an object", `[1,2]`, nil},
		{"invalid", `{`, nil},
		{"no numbers", `{"color":"red"}`, nil},
		{"numbers", `{"brightness":40}`, map[string]any{"brightness": 40.0}},
		{"power on", `{"state":"On"}`, map[string]any{"state": 1.0}},
		{"power off", `{"state":"Off"}`, map[string]any{"state": 0.0}},
		{"locked", `{"state":"LOCKED"}`, map[string]any{"state": 1.0}},
		{"jammed", `{"state":"JAMMED"}`, nil},
		{"contact", `{"state":"closed"}`, map[string]any{"state": 0.0}},
		{"motion", `{"state":"notDetected"}`, map[string]any{"state": 0.0}},
		{"doorbell", `{"state":"pressed"}`, map[string]any{"state": 1.0}},
		{"bool", `{"online":true}`, map[string]any{"online": 1.0}},
		{"nested ignored", `{"color":{"r":1},"level":2}`, map[string]any{"level": 2.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NumericFields(json.RawMessage(tt.value))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NumericFields(%s) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
