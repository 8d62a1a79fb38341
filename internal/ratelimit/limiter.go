package ratelimit

import (
	"sync"
	"time"
)

// Default minimum intervals.
const (
	// ProfileState is the spacing for state-change events.
	ProfileState = time.Second

	// ProfileSensor is the spacing for periodic sensor readings.
	ProfileSensor = 60 * time.Second
)

// Logger is the subset of logging.Logger the limiter uses.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Limiter enforces a minimum distance between events with adaptive backoff.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Limiter struct {
	mu sync.Mutex

	name        string
	minInterval time.Duration
	threshold   int

	next     time.Time
	extra    time.Duration
	failures int

	now    func() time.Time
	logger Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger used for excessive-event warnings.
func WithLogger(logger Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithName labels warnings, typically "<deviceID>/<capability>".
func WithName(name string) Option {
	return func(l *Limiter) {
		l.name = name
	}
}

// New creates a Limiter. A non-positive minInterval falls back to ProfileState.
func New(minInterval time.Duration, opts ...Option) *Limiter {
	if minInterval <= 0 {
		minInterval = ProfileState
	}

	l := &Limiter{
		minInterval: minInterval,
		threshold:   int(minInterval.Milliseconds() / 4), //nolint:mnd // a quarter of the interval
		now:         time.Now,
		logger:      noopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether an event may be sent now, updating the schedule.
//
// An allowed call sets the next allowed instant to now + interval + backoff.
// A blocked call only increments the violation counter.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !now.Before(l.next) {
		if l.failures > l.threshold {
			l.extra += l.minInterval
			l.failures = 0
		} else {
			l.extra = 0
		}
		l.next = now.Add(l.minInterval + l.extra)
		return true
	}

	l.failures++
	if l.failures == l.threshold {
		l.logger.Warn("excessive events detected, adding backoff",
			"limiter", l.name,
			"interval", l.minInterval.String(),
			"backoff", (l.extra + l.minInterval).String(),
		)
	}
	return false
}

// Remaining returns how long until the next event would be allowed.
func (l *Limiter) Remaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !now.Before(l.next) {
		return 0
	}
	return l.next.Sub(now)
}

// Reset forgets all history so the next call is allowed.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next = time.Time{}
	l.extra = 0
	l.failures = 0
}

// Backoff returns the extra distance currently added to the interval.
func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.extra
}

// Interval returns the configured minimum interval.
func (l *Limiter) Interval() time.Duration {
	return l.minInterval
}
