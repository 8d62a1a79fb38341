package session

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/sinric-link/internal/device"
	"github.com/nerrad567/sinric-link/internal/protocol"
)

// panicDevice panics on every request.
type panicDevice struct{}

func (panicDevice) ID() string { return testDeviceID }

func (panicDevice) Type() device.Type { return device.TypeSwitch }

func (panicDevice) HandleRequest(*protocol.Message) (any, bool) { panic("handler bug") }

func TestDispatch_SetPowerStateProducesOneSignedResponse(t *testing.T) {
	obs := &recordingObserver{}
	s, _ := newTestSession(t, testConfig(), WithObserver(obs))
	if err := s.AddDevice(newSwitch(t, testDeviceID)); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}

	s.receive(sealedRequest(t, testDeviceID, device.ActionSetPowerState, `{"state":"On"}`))
	s.Handle()

	sent := drainTx(t, s)
	if len(sent) != 1 {
		t.Fatalf("tx entries = %d, want 1", len(sent))
	}
	p := openSent(t, sent[0])
	if !p.Success || string(p.Value) != `{"state":"On"}` {
		t.Errorf("response success=%v value=%s, want true {\"state\":\"On\"}", p.Success, p.Value)
	}
	if !strings.Contains(string(sent[0]), `"success":true`) || !strings.Contains(string(sent[0]), `"value":{"state":"On"}`) {
		t.Errorf("envelope = %s", sent[0])
	}

	acts := obs.seenActivities()
	if len(acts) != 1 || acts[0].Kind != ActivityRequest || !acts[0].Success || string(acts[0].Value) != `{"state":"On"}` {
		t.Errorf("activities = %+v", acts)
	}
}

func TestDispatch_Drops(t *testing.T) {
	tampered := sealedRequest(t, testDeviceID, device.ActionSetPowerState, `{"state":"On"}`)
	tampered = []byte(strings.Replace(string(tampered), `"On"`, `"Off"`, 1))

	otherSecret, err := protocol.NewCodec(testAppKey, "another-secret").Seal(&protocol.Message{
		Action: device.ActionSetPowerState, DeviceID: testDeviceID, Type: protocol.TypeRequest,
	})
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	response, err := cloudCodec().Seal(&protocol.Message{
		Action: device.ActionSetPowerState, DeviceID: testDeviceID, Type: protocol.TypeResponse,
	})
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	tests := []struct {
		name        string
		raw         []byte
		wantInvalid uint64
		wantUnknown uint64
	}{
		{"not json", []byte("hello"), 1, 0},
		{"tampered payload", tampered, 1, 0},
		{"wrong secret", otherSecret, 1, 0},
		{"unknown device", sealedRequest(t, otherDeviceID, device.ActionSetPowerState, `{"state":"On"}`), 0, 1},
		{"missing action", sealedRequest(t, testDeviceID, "", `{}`), 1, 0},
		{"not a request", response, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, testConfig())
			if err := s.AddDevice(newSwitch(t, testDeviceID)); err != nil {
				t.Fatalf("AddDevice() error = %v", err)
			}

			s.receive(tt.raw)
			s.Handle()

			if n := s.tx.Len(); n != 0 {
				t.Errorf("tx entries = %d, want 0", n)
			}
			stats := s.Stats()
			if stats.InvalidMessages != tt.wantInvalid || stats.UnknownDevices != tt.wantUnknown {
				t.Errorf("invalid=%d unknown=%d, want %d and %d",
					stats.InvalidMessages, stats.UnknownDevices, tt.wantInvalid, tt.wantUnknown)
			}
			if s.rx.Len() != 0 {
				t.Error("rx queue not drained")
			}
		})
	}
}

func TestDispatch_FailedRequestStillAnswered(t *testing.T) {
	s, _ := newTestSession(t, testConfig())
	sw := newSwitch(t, testDeviceID)
	sw.OnPowerState(func(string, bool) (bool, error) { return false, errors.New("relay stuck") })
	if err := s.AddDevice(sw); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}

	s.receive(sealedRequest(t, testDeviceID, device.ActionSetPowerState, `{"state":"On"}`))
	s.receive(sealedRequest(t, testDeviceID, "setColor", `{"color":{"r":1,"g":2,"b":3}}`))
	s.Handle()

	sent := drainTx(t, s)
	if len(sent) != 2 {
		t.Fatalf("tx entries = %d, want 2", len(sent))
	}
	for i, raw := range sent {
		if p := openSent(t, raw); p.Success {
			t.Errorf("response %d success = true, want false", i)
		}
	}
	if got := openSent(t, sent[1]).Value; string(got) != `{}` {
		t.Errorf("unsupported action value = %s, want {}", got)
	}
	if stats := s.Stats(); stats.RequestsHandled != 2 || stats.RequestsFailed != 2 {
		t.Errorf("handled=%d failed=%d, want 2 and 2", stats.RequestsHandled, stats.RequestsFailed)
	}
}

func TestDispatch_HandlerPanicFailsRequest(t *testing.T) {
	s, _ := newTestSession(t, testConfig())
	if err := s.AddDevice(panicDevice{}); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}

	s.receive(sealedRequest(t, testDeviceID, device.ActionSetPowerState, `{"state":"On"}`))
	s.Handle()

	sent := drainTx(t, s)
	if len(sent) != 1 {
		t.Fatalf("tx entries = %d, want 1", len(sent))
	}
	if p := openSent(t, sent[0]); p.Success {
		t.Error("response success = true after handler panic")
	}
}

func TestDispatch_ProcessesInArrivalOrder(t *testing.T) {
	s, _ := newTestSession(t, testConfig())
	d, err := device.NewDimSwitch(testDeviceID)
	if err != nil {
		t.Fatalf("NewDimSwitch() error = %v", err)
	}
	if err := s.AddDevice(d); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}

	s.receive(sealedRequest(t, testDeviceID, device.ActionSetBrightness, `{"brightness":50}`))
	s.receive(sealedRequest(t, testDeviceID, device.ActionAdjustBrightness, `{"brightnessDelta":-20}`))
	s.receive(sealedRequest(t, testDeviceID, device.ActionAdjustBrightness, `{"brightnessDelta":5}`))
	s.Handle()

	want := []string{`{"brightness":50}`, `{"brightness":30}`, `{"brightness":35}`}
	sent := drainTx(t, s)
	if len(sent) != len(want) {
		t.Fatalf("tx entries = %d, want %d", len(sent), len(want))
	}
	for i, raw := range sent {
		if got := string(openSent(t, raw).Value); got != want[i] {
			t.Errorf("response %d value = %s, want %s", i, got, want[i])
		}
	}
}

func TestReceive_RxOverflowDropsNewest(t *testing.T) {
	s, _ := newTestSession(t, testConfig())
	for i := 0; i < 9; i++ {
		s.receive([]byte(`{"n":` + string(rune('0'+i)) + `}`))
	}
	if s.rx.Len() != 8 {
		t.Errorf("rx length = %d, want 8", s.rx.Len())
	}
	if got := s.Stats().RxDropped; got != 1 {
		t.Errorf("RxDropped = %d, want 1", got)
	}

	s.receive(make([]byte, 4096))
	if got := s.Stats().RxDropped; got != 2 {
		t.Errorf("RxDropped after oversized = %d, want 2", got)
	}
}

// ============================================================================
// SendEvent
// ============================================================================

func TestSendEvent(t *testing.T) {
	obs := &recordingObserver{}
	s, _ := newTestSession(t, testConfig(), WithObserver(obs))

	value := map[string]any{"temperature": 21.5, "humidity": 40}
	if err := s.SendEvent(testDeviceID, device.ActionCurrentTemperature, value, protocol.CausePeriodicPoll); err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}

	sent := drainTx(t, s)
	if len(sent) != 1 {
		t.Fatalf("tx entries = %d, want 1", len(sent))
	}
	p := openSent(t, sent[0])
	if p.Type != "event" || p.Action != device.ActionCurrentTemperature || p.Cause.Type != "PERIODIC_POLL" {
		t.Errorf("event = %+v", p)
	}
	var got map[string]float64
	if err := json.Unmarshal(p.Value, &got); err != nil || got["temperature"] != 21.5 || got["humidity"] != 40 {
		t.Errorf("event value = %s (%v)", p.Value, err)
	}

	acts := obs.seenActivities()
	if len(acts) != 1 || acts[0].Kind != ActivityEvent || acts[0].Cause != protocol.CausePeriodicPoll {
		t.Errorf("activities = %+v", acts)
	}
}

func TestSendEvent_QueueFull(t *testing.T) {
	s, _ := newTestSession(t, testConfig())
	for i := 0; i < 8; i++ {
		if err := s.SendEvent(testDeviceID, device.ActionSetPowerState, map[string]string{"state": "On"}, ""); err != nil {
			t.Fatalf("SendEvent() #%d error = %v", i, err)
		}
	}
	err := s.SendEvent(testDeviceID, device.ActionSetPowerState, map[string]string{"state": "On"}, "")
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("SendEvent() on full queue error = %v, want %v", err, ErrQueueFull)
	}
	if got := s.Stats().EventsQueued; got != 8 {
		t.Errorf("EventsQueued = %d, want 8", got)
	}
}

func TestSendEvent_TooLarge(t *testing.T) {
	s, _ := newTestSession(t, testConfig())
	big := map[string]string{"blob": strings.Repeat("x", 2048)}
	if err := s.SendEvent(testDeviceID, "setMode", big, ""); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("SendEvent() error = %v, want %v", err, ErrMessageTooLarge)
	}
	if s.tx.Len() != 0 {
		t.Error("oversized event reached the queue")
	}
}
