package device

import (
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/sinric-link/internal/protocol"
	"github.com/nerrad567/sinric-link/internal/ratelimit"
)

// Cloud actions handled or emitted by the capabilities.
const (
	ActionSetPowerState      = "setPowerState"
	ActionSetBrightness      = "setBrightness"
	ActionAdjustBrightness   = "adjustBrightness"
	ActionSetLockState       = "setLockState"
	ActionCurrentTemperature = "currentTemperature"
	ActionSetContactState    = "setContactState"
	ActionMotionDetection    = "setMotionDetection"
	ActionDoorbellPress      = "DoorbellPress"
)

// Wire values.
const (
	powerOn  = "On"
	powerOff = "Off"

	lockRequest   = "lock"
	lockLocked    = "LOCKED"
	lockUnlocked  = "UNLOCKED"
	lockJammed    = "JAMMED"
	contactOpen   = "open"
	contactClosed = "closed"
	motionOn      = "detected"
	motionOff     = "notDetected"
	bellPressed   = "pressed"

	minBrightness = 0
	maxBrightness = 100
)

// Handler signatures. A handler returns the state actually reached; a
// non-nil error fails the request (success=false).
type (
	// PowerStateFunc switches the device on or off.
	PowerStateFunc func(deviceID string, on bool) (bool, error)

	// BrightnessFunc sets an absolute brightness (0-100).
	BrightnessFunc func(deviceID string, level int) (int, error)

	// AdjustBrightnessFunc applies a relative change and returns the
	// resulting absolute brightness.
	AdjustBrightnessFunc func(deviceID string, delta int) (int, error)

	// LockStateFunc locks (true) or unlocks the device and returns the
	// resulting lock state. An error reports the lock as jammed.
	LockStateFunc func(deviceID string, lock bool) (bool, error)
)

func newLimiter(b *Base, interval time.Duration, action string) *ratelimit.Limiter {
	return ratelimit.New(interval,
		ratelimit.WithClock(b.now),
		ratelimit.WithLogger(b.logger),
		ratelimit.WithName(b.id+"/"+action),
	)
}

// ============================================================================
// PowerState
// ============================================================================

type powerStateValue struct {
	State string `json:"state"`
}

func onOff(on bool) string {
	if on {
		return powerOn
	}
	return powerOff
}

type powerState struct {
	base    *Base
	limiter *ratelimit.Limiter

	mu      sync.Mutex
	on      bool
	handler PowerStateFunc
}

func newPowerState(b *Base) *powerState {
	return &powerState{base: b, limiter: newLimiter(b, b.stateInterval, ActionSetPowerState)}
}

func (p *powerState) setHandler(fn PowerStateFunc) {
	p.mu.Lock()
	p.handler = fn
	p.mu.Unlock()
}

func (p *powerState) state() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

func (p *powerState) handle(req *protocol.Message) (any, bool) {
	var v powerStateValue
	if err := req.DecodeValue(&v); err != nil || v.State == "" {
		p.base.logger.Warn("setPowerState without state", "error", err)
		return nil, false
	}
	on := strings.EqualFold(v.State, powerOn)
	p.base.logger.Debug("setPowerState", "state", onOff(on))

	p.mu.Lock()
	handler := p.handler
	p.mu.Unlock()

	success := true
	if handler != nil {
		reached, err := handler(p.base.id, on)
		if err != nil {
			p.base.logger.Warn("setPowerState failed", "error", err)
			success = false
		} else {
			on = reached
		}
	}

	if success {
		p.mu.Lock()
		p.on = on
		p.mu.Unlock()
	}
	return powerStateValue{State: onOff(on)}, success
}

func (p *powerState) sendEvent(on bool, cause protocol.Cause) error {
	if !p.limiter.Allow() {
		p.base.logger.Debug("setPowerState event rate limited")
		return ErrRateLimited
	}
	if err := p.base.SendEvent(ActionSetPowerState, powerStateValue{State: onOff(on)}, cause); err != nil {
		return err
	}
	p.mu.Lock()
	p.on = on
	p.mu.Unlock()
	return nil
}

// ============================================================================
// Brightness
// ============================================================================

type brightnessValue struct {
	Brightness int `json:"brightness"`
}

type brightnessRequest struct {
	Brightness *int `json:"brightness"`
}

type adjustBrightnessRequest struct {
	BrightnessDelta int `json:"brightnessDelta"`
}

func clampBrightness(level int) int {
	return min(max(level, minBrightness), maxBrightness)
}

type brightness struct {
	base    *Base
	limiter *ratelimit.Limiter

	mu       sync.Mutex
	level    int
	onSet    BrightnessFunc
	onAdjust AdjustBrightnessFunc
}

func newBrightness(b *Base) *brightness {
	return &brightness{base: b, limiter: newLimiter(b, b.stateInterval, ActionSetBrightness)}
}

func (c *brightness) current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

func (c *brightness) handleSet(req *protocol.Message) (any, bool) {
	var v brightnessRequest
	if err := req.DecodeValue(&v); err != nil || v.Brightness == nil || *v.Brightness < 0 {
		c.base.logger.Warn("setBrightness without brightness", "error", err)
		return nil, false
	}
	level := clampBrightness(*v.Brightness)
	c.base.logger.Debug("setBrightness", "brightness", level)

	c.mu.Lock()
	handler := c.onSet
	c.mu.Unlock()

	success := true
	if handler != nil {
		reached, err := handler(c.base.id, level)
		if err != nil {
			c.base.logger.Warn("setBrightness failed", "error", err)
			success = false
		} else {
			level = clampBrightness(reached)
		}
	}

	if success {
		c.mu.Lock()
		c.level = level
		c.mu.Unlock()
	}
	return brightnessValue{Brightness: level}, success
}

func (c *brightness) handleAdjust(req *protocol.Message) (any, bool) {
	var v adjustBrightnessRequest
	if err := req.DecodeValue(&v); err != nil {
		c.base.logger.Warn("adjustBrightness without delta", "error", err)
		return nil, false
	}
	c.base.logger.Debug("adjustBrightness", "delta", v.BrightnessDelta)

	c.mu.Lock()
	handler := c.onAdjust
	level := c.level + v.BrightnessDelta
	c.mu.Unlock()

	success := true
	if handler != nil {
		reached, err := handler(c.base.id, v.BrightnessDelta)
		if err != nil {
			c.base.logger.Warn("adjustBrightness failed", "error", err)
			success = false
		} else {
			level = reached
		}
	}
	level = clampBrightness(level)

	if success {
		c.mu.Lock()
		c.level = level
		c.mu.Unlock()
	}
	return brightnessValue{Brightness: level}, success
}

func (c *brightness) sendEvent(level int, cause protocol.Cause) error {
	level = clampBrightness(level)
	if !c.limiter.Allow() {
		c.base.logger.Debug("setBrightness event rate limited")
		return ErrRateLimited
	}
	if err := c.base.SendEvent(ActionSetBrightness, brightnessValue{Brightness: level}, cause); err != nil {
		return err
	}
	c.mu.Lock()
	c.level = level
	c.mu.Unlock()
	return nil
}

// ============================================================================
// Lock
// ============================================================================

type lockValue struct {
	State string `json:"state"`
}

func lockedState(locked bool) string {
	if locked {
		return lockLocked
	}
	return lockUnlocked
}

type lockController struct {
	base    *Base
	limiter *ratelimit.Limiter

	mu      sync.Mutex
	locked  bool
	handler LockStateFunc
}

func newLockController(b *Base) *lockController {
	return &lockController{base: b, limiter: newLimiter(b, b.stateInterval, ActionSetLockState)}
}

func (l *lockController) isLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked
}

func (l *lockController) handle(req *protocol.Message) (any, bool) {
	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()

	if handler == nil {
		l.base.logger.Warn("setLockState without handler")
		return nil, false
	}

	var v lockValue
	if err := req.DecodeValue(&v); err != nil || v.State == "" {
		l.base.logger.Warn("setLockState without state", "error", err)
		return nil, false
	}
	lock := v.State == lockRequest

	locked, err := handler(l.base.id, lock)
	if err != nil {
		l.base.logger.Warn("lock jammed", "error", err)
		return lockValue{State: lockJammed}, false
	}

	l.mu.Lock()
	l.locked = locked
	l.mu.Unlock()
	l.base.logger.Debug("setLockState", "state", lockedState(locked))
	return lockValue{State: lockedState(locked)}, true
}

func (l *lockController) sendEvent(locked bool, cause protocol.Cause) error {
	if !l.limiter.Allow() {
		l.base.logger.Debug("setLockState event rate limited")
		return ErrRateLimited
	}
	if err := l.base.SendEvent(ActionSetLockState, lockValue{State: lockedState(locked)}, cause); err != nil {
		return err
	}
	l.mu.Lock()
	l.locked = locked
	l.mu.Unlock()
	return nil
}

// ============================================================================
// Temperature
// ============================================================================

// Reading is a temperature and humidity sample.
type Reading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

type temperature struct {
	base    *Base
	limiter *ratelimit.Limiter

	mu   sync.Mutex
	last Reading
}

func newTemperature(b *Base) *temperature {
	return &temperature{base: b, limiter: newLimiter(b, b.sensorInterval, ActionCurrentTemperature)}
}

func (t *temperature) reading() Reading {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *temperature) sendEvent(r Reading, cause protocol.Cause) error {
	if !t.limiter.Allow() {
		t.base.logger.Debug("currentTemperature event rate limited")
		return ErrRateLimited
	}
	if err := t.base.SendEvent(ActionCurrentTemperature, r, cause); err != nil {
		return err
	}
	t.mu.Lock()
	t.last = r
	t.mu.Unlock()
	return nil
}

// ============================================================================
// Contact
// ============================================================================

type contactValue struct {
	State string `json:"state"`
}

func contactState(open bool) string {
	if open {
		return contactOpen
	}
	return contactClosed
}

type contact struct {
	base    *Base
	limiter *ratelimit.Limiter

	mu   sync.Mutex
	open bool
}

func newContact(b *Base) *contact {
	return &contact{base: b, limiter: newLimiter(b, b.stateInterval, ActionSetContactState)}
}

func (c *contact) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *contact) sendEvent(open bool, cause protocol.Cause) error {
	if !c.limiter.Allow() {
		c.base.logger.Debug("setContactState event rate limited")
		return ErrRateLimited
	}
	if err := c.base.SendEvent(ActionSetContactState, contactValue{State: contactState(open)}, cause); err != nil {
		return err
	}
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
	return nil
}

// ============================================================================
// Motion
// ============================================================================

type motionValue struct {
	State string `json:"state"`
}

type motion struct {
	base    *Base
	limiter *ratelimit.Limiter

	mu       sync.Mutex
	detected bool
}

func newMotion(b *Base) *motion {
	return &motion{base: b, limiter: newLimiter(b, b.stateInterval, ActionMotionDetection)}
}

func (m *motion) isDetected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detected
}

func (m *motion) sendEvent(detected bool, cause protocol.Cause) error {
	if !m.limiter.Allow() {
		m.base.logger.Debug("setMotionDetection event rate limited")
		return ErrRateLimited
	}
	state := motionOff
	if detected {
		state = motionOn
	}
	if err := m.base.SendEvent(ActionMotionDetection, motionValue{State: state}, cause); err != nil {
		return err
	}
	m.mu.Lock()
	m.detected = detected
	m.mu.Unlock()
	return nil
}

// ============================================================================
// Doorbell
// ============================================================================

type doorbellValue struct {
	State string `json:"state"`
}

type doorbell struct {
	base    *Base
	limiter *ratelimit.Limiter
}

func newDoorbell(b *Base) *doorbell {
	return &doorbell{base: b, limiter: newLimiter(b, b.stateInterval, ActionDoorbellPress)}
}

// press always reports a physical interaction.
func (d *doorbell) press() error {
	if !d.limiter.Allow() {
		d.base.logger.Debug("DoorbellPress event rate limited")
		return ErrRateLimited
	}
	return d.base.SendEvent(ActionDoorbellPress, doorbellValue{State: bellPressed}, protocol.CausePhysicalInteraction)
}
