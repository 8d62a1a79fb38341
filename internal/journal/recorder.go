package journal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/sinric-link/internal/session"
)

const (
	defaultBufferSize   = 64
	defaultWriteTimeout = 2 * time.Second
)

// Logger is the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the recorder logger.
func WithLogger(logger Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBufferSize sets how many entries may wait for the writer.
func WithBufferSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.bufferSize = n
		}
	}
}

// WithRetention prunes entries older than d once per interval.
// Zero disables pruning.
func WithRetention(d, interval time.Duration) Option {
	return func(r *Recorder) {
		r.retention = d
		r.pruneInterval = interval
	}
}

// Recorder journals session activity. It implements session.Observer.
type Recorder struct {
	repo          Repository
	logger        Logger
	bufferSize    int
	retention     time.Duration
	pruneInterval time.Duration
	now           func() time.Time

	entries chan Entry
	dropped atomic.Uint64
	done    chan struct{}
}

var _ session.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to repo. Call Run to start the
// writer.
func NewRecorder(repo Repository, opts ...Option) *Recorder {
	r := &Recorder{
		repo:       repo,
		logger:     noopLogger{},
		bufferSize: defaultBufferSize,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.entries = make(chan Entry, r.bufferSize)
	return r
}

// StateChanged journals a session state transition.
func (r *Recorder) StateChanged(state session.State) {
	r.offer(Entry{
		Kind:      KindState,
		Success:   true,
		State:     state.String(),
		CreatedAt: r.now(),
	})
}

// Activity journals a handled request or queued event.
func (r *Recorder) Activity(a session.Activity) {
	kind := KindRequest
	if a.Kind == session.ActivityEvent {
		kind = KindEvent
	}
	at := a.At
	if at.IsZero() {
		at = r.now()
	}
	r.offer(Entry{
		Kind:      kind,
		DeviceID:  a.DeviceID,
		Action:    a.Action,
		Success:   a.Success,
		Cause:     string(a.Cause),
		Value:     a.Value,
		CreatedAt: at,
	})
}

// Dropped reports entries discarded because the buffer was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) offer(e Entry) {
	select {
	case r.entries <- e:
	default:
		r.dropped.Add(1)
	}
}

// Run writes buffered entries until ctx is cancelled, then drains what is
// left and returns. It must be called at most once.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)

	var prune <-chan time.Time
	if r.retention > 0 && r.pruneInterval > 0 {
		ticker := time.NewTicker(r.pruneInterval)
		defer ticker.Stop()
		prune = ticker.C
	}

	for {
		select {
		case e := <-r.entries:
			r.write(e)
		case <-prune:
			r.prune()
		case <-ctx.Done():
			for {
				select {
				case e := <-r.entries:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() {
	<-r.done
}

func (r *Recorder) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()
	if err := r.repo.Record(ctx, &e); err != nil {
		r.logger.Error("journal write failed", "kind", e.Kind, "error", err)
	}
}

func (r *Recorder) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()
	if _, err := r.repo.Prune(ctx, r.now().Add(-r.retention)); err != nil {
		r.logger.Warn("journal prune failed", "error", err)
	}
}
