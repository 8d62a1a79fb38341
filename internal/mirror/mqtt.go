package mirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/sinric-link/internal/infrastructure/mqtt"
	"github.com/nerrad567/sinric-link/internal/protocol"
	"github.com/nerrad567/sinric-link/internal/session"
)

// Publisher is the subset of *mqtt.Client the mirror needs.
type Publisher interface {
	Topics() mqtt.Topics
	PublishRetained(topic string, payload []byte) error
	PublishEvent(topic string, payload []byte) error
}

// MQTT mirrors session state and device activity onto a broker.
//
//   - Session state is published retained on <prefix>/session/state.
//   - Events go to <prefix>/device/<id>/event/<action>.
//   - Responses go to <prefix>/device/<id>/response/<action>.
//   - Successful values are also kept retained on
//     <prefix>/device/<id>/state/<action>.
type MQTT struct {
	pub    Publisher
	topics mqtt.Topics
	opts   options
	w      *worker
}

var _ session.Observer = (*MQTT)(nil)

// StatePayload is published on the session state topic.
type StatePayload struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`
	Timestamp string `json:"timestamp"`
}

// ActivityPayload is published on device event and response topics.
type ActivityPayload struct {
	DeviceID  string          `json:"device_id"`
	Action    string          `json:"action"`
	Success   bool            `json:"success"`
	Cause     protocol.Cause  `json:"cause,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// NewMQTT creates a mirror publishing through pub. Call Run to start it.
func NewMQTT(pub Publisher, opts ...Option) *MQTT {
	o := buildOptions(opts)
	return &MQTT{
		pub:    pub,
		topics: pub.Topics(),
		opts:   o,
		w:      newWorker(o.bufferSize),
	}
}

// Run publishes queued messages until ctx is done.
func (m *MQTT) Run(ctx context.Context) {
	m.w.run(ctx)
}

// Wait blocks until Run has returned.
func (m *MQTT) Wait() {
	m.w.wait()
}

// Dropped reports publishes discarded because the queue was full.
func (m *MQTT) Dropped() uint64 {
	return m.w.dropped.Load()
}

// StateChanged publishes the new session state.
func (m *MQTT) StateChanged(state session.State) {
	payload, err := json.Marshal(StatePayload{
		State:     state.String(),
		Connected: state == session.StateConnected,
		Timestamp: formatTime(m.opts.now()),
	})
	if err != nil {
		return
	}
	topic := m.topics.SessionState()
	m.w.offer(func() { m.publish(topic, payload, true) })
}

// Activity publishes a handled request or queued event.
func (m *MQTT) Activity(a session.Activity) {
	at := a.At
	if at.IsZero() {
		at = m.opts.now()
	}
	payload, err := json.Marshal(ActivityPayload{
		DeviceID:  a.DeviceID,
		Action:    a.Action,
		Success:   a.Success,
		Cause:     a.Cause,
		Value:     a.Value,
		Timestamp: formatTime(at),
	})
	if err != nil {
		m.opts.logger.Warn("mirror payload encode failed", "action", a.Action, "error", err)
		return
	}

	topic := m.topics.DeviceResponse(a.DeviceID, a.Action)
	if a.Kind == session.ActivityEvent {
		topic = m.topics.DeviceEvent(a.DeviceID, a.Action)
	}

	var stateTopic string
	var stateValue []byte
	if a.Success && len(a.Value) > 0 {
		stateTopic = m.topics.DeviceState(a.DeviceID, a.Action)
		stateValue = a.Value
	}

	m.w.offer(func() {
		m.publish(topic, payload, false)
		if stateTopic != "" {
			m.publish(stateTopic, stateValue, true)
		}
	})
}

func (m *MQTT) publish(topic string, payload []byte, retained bool) {
	var err error
	if retained {
		err = m.pub.PublishRetained(topic, payload)
	} else {
		err = m.pub.PublishEvent(topic, payload)
	}
	if err != nil {
		m.opts.logger.Warn("mirror publish failed", "topic", topic, "error", err)
		return
	}
	m.opts.logger.Debug("mirror published", "topic", topic, "retained", retained)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
