package device

import (
	"sync"
	"time"

	"github.com/nerrad567/sinric-link/internal/protocol"
	"github.com/nerrad567/sinric-link/internal/ratelimit"
)

// Type classifies a device.
type Type string

// Device types.
const (
	TypeSwitch            Type = "switch"
	TypeDimSwitch         Type = "dimswitch"
	TypeLock              Type = "lock"
	TypeTemperatureSensor Type = "temperature_sensor"
	TypeContactSensor     Type = "contact_sensor"
	TypeMotionSensor      Type = "motion_sensor"
	TypeDoorbell          Type = "doorbell"
)

// AllTypes returns every supported device type.
func AllTypes() []Type {
	return []Type{
		TypeSwitch,
		TypeDimSwitch,
		TypeLock,
		TypeTemperatureSensor,
		TypeContactSensor,
		TypeMotionSensor,
		TypeDoorbell,
	}
}

// Device is a virtual device registered with a session.
type Device interface {
	// ID returns the 24-character cloud device ID.
	ID() string

	// Type returns the device type.
	Type() Type

	// HandleRequest answers a verified request addressed to this device.
	// The returned value becomes the response "value"; ok becomes "success".
	HandleRequest(req *protocol.Message) (value any, ok bool)
}

// EventSender queues a signed event for delivery. Implemented by the session.
type EventSender interface {
	SendEvent(deviceID, action string, value any, cause protocol.Cause) error
}

// Binder is implemented by devices that emit events. The session binds
// itself when the device is added and unbinds on removal.
type Binder interface {
	Bind(sender EventSender)
}

// Logger defines the logging interface used by devices.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a device at construction.
type Option func(*Base)

// WithLogger sets the device logger.
func WithLogger(logger Logger) Option {
	return func(b *Base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithName sets a display name used in logs and the status API.
func WithName(name string) Option {
	return func(b *Base) {
		b.name = name
	}
}

// WithClock sets the time source for the event limiters.
func WithClock(now func() time.Time) Option {
	return func(b *Base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithEventIntervals overrides the minimum event spacing for state
// capabilities (power, brightness, lock, contact) and sensor readings.
// Zero keeps the default profile.
func WithEventIntervals(state, sensor time.Duration) Option {
	return func(b *Base) {
		if state > 0 {
			b.stateInterval = state
		}
		if sensor > 0 {
			b.sensorInterval = sensor
		}
	}
}

// Base holds the identity and event plumbing shared by all device types.
type Base struct {
	id     string
	typ    Type
	name   string
	logger Logger
	now    func() time.Time

	stateInterval  time.Duration
	sensorInterval time.Duration

	mu     sync.RWMutex
	sender EventSender
}

// NewBase validates id and typ and applies opts.
func NewBase(id string, typ Type, opts ...Option) (*Base, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ValidateType(typ); err != nil {
		return nil, err
	}

	b := &Base{
		id:     id,
		typ:    typ,
		logger: noopLogger{},
		now:    time.Now,

		stateInterval:  ratelimit.ProfileState,
		sensorInterval: ratelimit.ProfileSensor,
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := ValidateName(b.name); err != nil {
		return nil, err
	}
	b.logger = &deviceLogger{Logger: b.logger, id: id, typ: typ}
	return b, nil
}

// ID returns the cloud device ID.
func (b *Base) ID() string {
	return b.id
}

// Type returns the device type.
func (b *Base) Type() Type {
	return b.typ
}

// Name returns the display name, empty if none was set.
func (b *Base) Name() string {
	return b.name
}

// Bind attaches the event sender. A nil sender detaches it.
func (b *Base) Bind(sender EventSender) {
	b.mu.Lock()
	b.sender = sender
	b.mu.Unlock()
}

// SendEvent emits an event for this device through the bound sender.
func (b *Base) SendEvent(action string, value any, cause protocol.Cause) error {
	b.mu.RLock()
	sender := b.sender
	b.mu.RUnlock()

	if sender == nil {
		return ErrNotBound
	}
	return sender.SendEvent(b.id, action, value, cause)
}

// unsupported logs and rejects a request for an unknown action.
func (b *Base) unsupported(req *protocol.Message) (any, bool) {
	b.logger.Warn("unsupported action", "action", req.Action)
	return nil, false
}

// deviceLogger tags every line with the device identity.
type deviceLogger struct {
	Logger
	id  string
	typ Type
}

func (l *deviceLogger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, l.tag(args)...)
}

func (l *deviceLogger) Info(msg string, args ...any) {
	l.Logger.Info(msg, l.tag(args)...)
}

func (l *deviceLogger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, l.tag(args)...)
}

func (l *deviceLogger) Error(msg string, args ...any) {
	l.Logger.Error(msg, l.tag(args)...)
}

func (l *deviceLogger) tag(args []any) []any {
	return append([]any{"device_id", l.id, "device_type", string(l.typ)}, args...)
}
