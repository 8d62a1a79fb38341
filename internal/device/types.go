package device

import (
	"fmt"

	"github.com/nerrad567/sinric-link/internal/protocol"
)

// ============================================================================
// Switch
// ============================================================================

// Switch is an on/off device.
type Switch struct {
	*Base
	power *powerState
}

// NewSwitch creates a switch.
func NewSwitch(id string, opts ...Option) (*Switch, error) {
	b, err := NewBase(id, TypeSwitch, opts...)
	if err != nil {
		return nil, err
	}
	return &Switch{Base: b, power: newPowerState(b)}, nil
}

// OnPowerState sets the setPowerState handler. Without one, requests are
// accepted and only the stored state changes.
func (s *Switch) OnPowerState(fn PowerStateFunc) {
	s.power.setHandler(fn)
}

// PowerState returns the last known power state.
func (s *Switch) PowerState() bool {
	return s.power.state()
}

// SendPowerStateEvent reports a local power change.
func (s *Switch) SendPowerStateEvent(on bool, cause protocol.Cause) error {
	return s.power.sendEvent(on, cause)
}

// HandleRequest implements Device.
func (s *Switch) HandleRequest(req *protocol.Message) (any, bool) {
	if req.Action == ActionSetPowerState {
		return s.power.handle(req)
	}
	return s.unsupported(req)
}

// ============================================================================
// DimSwitch
// ============================================================================

// DimSwitch is a switch with brightness control.
type DimSwitch struct {
	*Base
	power      *powerState
	brightness *brightness
}

// NewDimSwitch creates a dimmable switch.
func NewDimSwitch(id string, opts ...Option) (*DimSwitch, error) {
	b, err := NewBase(id, TypeDimSwitch, opts...)
	if err != nil {
		return nil, err
	}
	return &DimSwitch{Base: b, power: newPowerState(b), brightness: newBrightness(b)}, nil
}

// OnPowerState sets the setPowerState handler.
func (d *DimSwitch) OnPowerState(fn PowerStateFunc) {
	d.power.setHandler(fn)
}

// OnBrightness sets the setBrightness handler.
func (d *DimSwitch) OnBrightness(fn BrightnessFunc) {
	d.brightness.mu.Lock()
	d.brightness.onSet = fn
	d.brightness.mu.Unlock()
}

// OnAdjustBrightness sets the adjustBrightness handler. Without one the
// delta is applied to the stored brightness.
func (d *DimSwitch) OnAdjustBrightness(fn AdjustBrightnessFunc) {
	d.brightness.mu.Lock()
	d.brightness.onAdjust = fn
	d.brightness.mu.Unlock()
}

// PowerState returns the last known power state.
func (d *DimSwitch) PowerState() bool {
	return d.power.state()
}

// Brightness returns the last known brightness (0-100).
func (d *DimSwitch) Brightness() int {
	return d.brightness.current()
}

// SendPowerStateEvent reports a local power change.
func (d *DimSwitch) SendPowerStateEvent(on bool, cause protocol.Cause) error {
	return d.power.sendEvent(on, cause)
}

// SendBrightnessEvent reports a local brightness change. level is clamped to 0-100.
func (d *DimSwitch) SendBrightnessEvent(level int, cause protocol.Cause) error {
	return d.brightness.sendEvent(level, cause)
}

// HandleRequest implements Device.
func (d *DimSwitch) HandleRequest(req *protocol.Message) (any, bool) {
	switch req.Action {
	case ActionSetPowerState:
		return d.power.handle(req)
	case ActionSetBrightness:
		return d.brightness.handleSet(req)
	case ActionAdjustBrightness:
		return d.brightness.handleAdjust(req)
	default:
		return d.unsupported(req)
	}
}

// ============================================================================
// Lock
// ============================================================================

// Lock is a smart lock.
type Lock struct {
	*Base
	lock *lockController
}

// NewLock creates a lock.
func NewLock(id string, opts ...Option) (*Lock, error) {
	b, err := NewBase(id, TypeLock, opts...)
	if err != nil {
		return nil, err
	}
	return &Lock{Base: b, lock: newLockController(b)}, nil
}

// OnLockState sets the setLockState handler. Requests fail until one is set.
func (l *Lock) OnLockState(fn LockStateFunc) {
	l.lock.mu.Lock()
	l.lock.handler = fn
	l.lock.mu.Unlock()
}

// IsLocked returns the last known lock state.
func (l *Lock) IsLocked() bool {
	return l.lock.isLocked()
}

// SendLockStateEvent reports a local lock change.
func (l *Lock) SendLockStateEvent(locked bool, cause protocol.Cause) error {
	return l.lock.sendEvent(locked, cause)
}

// HandleRequest implements Device.
func (l *Lock) HandleRequest(req *protocol.Message) (any, bool) {
	if req.Action == ActionSetLockState {
		return l.lock.handle(req)
	}
	return l.unsupported(req)
}

// ============================================================================
// Sensors
// ============================================================================

// TemperatureSensor reports temperature and humidity. It accepts no requests.
type TemperatureSensor struct {
	*Base
	temperature *temperature
}

// NewTemperatureSensor creates a temperature sensor.
func NewTemperatureSensor(id string, opts ...Option) (*TemperatureSensor, error) {
	b, err := NewBase(id, TypeTemperatureSensor, opts...)
	if err != nil {
		return nil, err
	}
	return &TemperatureSensor{Base: b, temperature: newTemperature(b)}, nil
}

// Reading returns the last reading sent.
func (t *TemperatureSensor) Reading() Reading {
	return t.temperature.reading()
}

// SendTemperatureEvent reports a reading. Readings are limited to one per minute.
func (t *TemperatureSensor) SendTemperatureEvent(r Reading, cause protocol.Cause) error {
	return t.temperature.sendEvent(r, cause)
}

// HandleRequest implements Device.
func (t *TemperatureSensor) HandleRequest(req *protocol.Message) (any, bool) {
	return t.unsupported(req)
}

// ContactSensor reports a door or window contact.
type ContactSensor struct {
	*Base
	contact *contact
}

// NewContactSensor creates a contact sensor.
func NewContactSensor(id string, opts ...Option) (*ContactSensor, error) {
	b, err := NewBase(id, TypeContactSensor, opts...)
	if err != nil {
		return nil, err
	}
	return &ContactSensor{Base: b, contact: newContact(b)}, nil
}

// IsOpen returns the last reported contact state.
func (c *ContactSensor) IsOpen() bool {
	return c.contact.isOpen()
}

// SendContactEvent reports the contact opening or closing.
func (c *ContactSensor) SendContactEvent(open bool, cause protocol.Cause) error {
	return c.contact.sendEvent(open, cause)
}

// HandleRequest implements Device.
func (c *ContactSensor) HandleRequest(req *protocol.Message) (any, bool) {
	return c.unsupported(req)
}

// MotionSensor reports motion detection.
type MotionSensor struct {
	*Base
	motion *motion
}

// NewMotionSensor creates a motion sensor.
func NewMotionSensor(id string, opts ...Option) (*MotionSensor, error) {
	b, err := NewBase(id, TypeMotionSensor, opts...)
	if err != nil {
		return nil, err
	}
	return &MotionSensor{Base: b, motion: newMotion(b)}, nil
}

// IsDetected returns the last reported motion state.
func (m *MotionSensor) IsDetected() bool {
	return m.motion.isDetected()
}

// SendMotionEvent reports motion starting or stopping.
func (m *MotionSensor) SendMotionEvent(detected bool, cause protocol.Cause) error {
	return m.motion.sendEvent(detected, cause)
}

// HandleRequest implements Device.
func (m *MotionSensor) HandleRequest(req *protocol.Message) (any, bool) {
	return m.unsupported(req)
}

// Doorbell reports button presses.
type Doorbell struct {
	*Base
	bell *doorbell
}

// NewDoorbell creates a doorbell.
func NewDoorbell(id string, opts ...Option) (*Doorbell, error) {
	b, err := NewBase(id, TypeDoorbell, opts...)
	if err != nil {
		return nil, err
	}
	return &Doorbell{Base: b, bell: newDoorbell(b)}, nil
}

// SendPressEvent reports a press.
func (d *Doorbell) SendPressEvent() error {
	return d.bell.press()
}

// HandleRequest implements Device.
func (d *Doorbell) HandleRequest(req *protocol.Message) (any, bool) {
	return d.unsupported(req)
}

// ============================================================================
// Construction from configuration
// ============================================================================

// Spec declares a device by ID and type, as read from the config file.
type Spec struct {
	ID   string
	Type Type
	Name string
}

// FromConfig builds a device of the declared type.
func FromConfig(spec Spec, opts ...Option) (Device, error) {
	if spec.Name != "" {
		opts = append([]Option{WithName(spec.Name)}, opts...)
	}

	var (
		d   Device
		err error
	)
	switch spec.Type {
	case TypeSwitch:
		d, err = NewSwitch(spec.ID, opts...)
	case TypeDimSwitch:
		d, err = NewDimSwitch(spec.ID, opts...)
	case TypeLock:
		d, err = NewLock(spec.ID, opts...)
	case TypeTemperatureSensor:
		d, err = NewTemperatureSensor(spec.ID, opts...)
	case TypeContactSensor:
		d, err = NewContactSensor(spec.ID, opts...)
	case TypeMotionSensor:
		d, err = NewMotionSensor(spec.ID, opts...)
	case TypeDoorbell:
		d, err = NewDoorbell(spec.ID, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, spec.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", spec.ID, err)
	}
	return d, nil
}
