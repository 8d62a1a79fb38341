package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/sinric-link/internal/device"
	"github.com/nerrad567/sinric-link/internal/protocol"
	"github.com/nerrad567/sinric-link/internal/queue"
	"github.com/nerrad567/sinric-link/internal/websocket"
)

// Logger defines the logging interface used by the session.
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

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The transport logs through it too.
func WithLogger(logger Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNetwork replaces the host network joiner.
func WithNetwork(n Network) Option {
	return func(s *Session) {
		if n != nil {
			s.network = n
		}
	}
}

// WithClock sets the time source for the transport, the codec clock and
// activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTransportOptions passes options to the WebSocket client.
func WithTransportOptions(opts ...websocket.Option) Option {
	return func(s *Session) {
		s.transportOpts = append(s.transportOpts, opts...)
	}
}

// WithCodecOptions passes options to the protocol codec.
func WithCodecOptions(opts ...protocol.CodecOption) Option {
	return func(s *Session) {
		s.codecOpts = append(s.codecOpts, opts...)
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Stats holds operational statistics.
type Stats struct {
	State           State
	Devices         int
	RequestsHandled uint64
	RequestsFailed  uint64 // handled with success=false
	EventsQueued    uint64
	InvalidMessages uint64 // failed verification or malformed
	UnknownDevices  uint64
	RxDropped       uint64 // RX queue full or oversized
	TxSent          uint64
	TxSendFailures  uint64
	RxQueue         queue.Stats
	TxQueue         queue.Stats
	Transport       websocket.Stats
}

// Session is one device-side cloud session.
//
// Thread Safety:
//   - Handle must be called from a single goroutine.
//   - All other methods are safe for concurrent use.
//   - The state callback and observers must not call Begin, Disconnect or Stop.
type Session struct {
	cfg           Config
	logger        Logger
	now           func() time.Time
	network       Network
	transport     *websocket.Client
	codec         *protocol.Codec
	rx            *queue.Queue
	tx            *queue.Queue
	observers     []Observer
	transportOpts []websocket.Option
	codecOpts     []protocol.CodecOption

	mu      sync.Mutex
	state   State
	devices []device.Device
	frozen  bool

	callbackMu sync.RWMutex
	onState    func(State)

	requestsHandled atomic.Uint64
	requestsFailed  atomic.Uint64
	eventsQueued    atomic.Uint64
	invalid         atomic.Uint64
	unknownDevices  atomic.Uint64
	rxDropped       atomic.Uint64
	txSent          atomic.Uint64
	txFailures      atomic.Uint64
}

// New validates cfg and builds a disconnected session with empty queues.
func New(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	s := &Session{
		cfg:    cfg,
		logger: noopLogger{},
		now:    time.Now,
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.network == nil {
		s.network = NewHostNetwork()
	}

	s.rx = queue.New(cfg.RxQueueSize, cfg.MaxMessageSize)
	s.tx = queue.New(cfg.TxQueueSize, cfg.MaxMessageSize)

	codecOpts := append([]protocol.CodecOption{protocol.WithClock(protocol.NewClock(s.now))}, s.codecOpts...)
	s.codec = protocol.NewCodec(cfg.AppKey, cfg.AppSecret, codecOpts...)

	transportOpts := append([]websocket.Option{
		websocket.WithLogger(s.logger),
		websocket.WithClock(s.now),
	}, s.transportOpts...)
	s.transport = websocket.New(transportOpts...)
	s.transport.OnMessage(s.receive)
	s.transport.OnStateChange(s.transportStateChanged)

	return s, nil
}

// Begin freezes the registry, joins the network and starts connecting.
// It returns once the connection attempt is under way; progress is
// reported through state changes.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	if s.state.active() {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(s.devices) == 0 {
		s.mu.Unlock()
		return ErrNoDevices
	}
	ids := make([]string, len(s.devices))
	for i, d := range s.devices {
		ids[i] = d.ID()
	}
	s.frozen = true
	prev := s.state
	s.state = StateWiFiConnecting
	s.mu.Unlock()

	s.notify(prev, StateWiFiConnecting)
	s.logger.Info("joining network", "devices", len(ids))

	joinCtx, cancel := context.WithTimeout(ctx, s.cfg.JoinTimeout)
	defer cancel()
	if err := s.network.Join(joinCtx); err != nil {
		s.unfreeze()
		s.setState(StateError)
		return fmt.Errorf("%w: %w", ErrNetworkJoin, err)
	}
	s.setState(StateWiFiConnected)

	s.setState(StateWSConnecting)
	err := s.transport.Connect(s.cfg.transportConfig(ids))
	if errors.Is(err, websocket.ErrAlreadyConnecting) {
		// The transport's own reconnect is under way; follow its state.
		s.transportStateChanged(s.transport.State())
		return nil
	}
	if err != nil {
		s.unfreeze()
		s.setState(StateError)
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return nil
}

// Handle services the transport, processes received messages and, while
// connected, sends queued messages. It never blocks on the network.
func (s *Session) Handle() {
	s.transport.Handle()

	for {
		msg, err := s.rx.Pop()
		if err != nil {
			break
		}
		s.process(msg.Data)
	}

	if s.transport.IsConnected() {
		s.flush()
	}
}

// flush sends TX entries in order. An entry is removed only after it was
// written; the first failure leaves it queued for the next Handle.
func (s *Session) flush() {
	for {
		msg, err := s.tx.Peek()
		if err != nil {
			return
		}
		if err := s.transport.Send(msg.Data); err != nil {
			s.txFailures.Add(1)
			s.logger.Warn("send failed, keeping message queued", "error", err)
			return
		}
		if _, err := s.tx.Pop(); err != nil {
			return
		}
		s.txSent.Add(1)
	}
}

// Disconnect closes the cloud connection and keeps the network joined.
func (s *Session) Disconnect() {
	s.transport.Disconnect()
	if s.network.Up() {
		s.setState(StateWiFiConnected)
	} else {
		s.setState(StateDisconnected)
	}
}

// SetAutoReconnect changes the transport reconnect policy for the current
// and later connections. A zero delay keeps the current one.
func (s *Session) SetAutoReconnect(enabled bool, delay time.Duration) {
	s.transport.SetAutoReconnect(enabled, delay)
}

// Stop closes the connection, waits for the transport goroutines, leaves
// the network and unfreezes the registry.
func (s *Session) Stop() {
	if err := s.transport.Close(); err != nil {
		s.logger.Warn("closing transport", "error", err)
	}
	if err := s.network.Leave(); err != nil {
		s.logger.Warn("leaving network", "error", err)
	}
	s.unfreeze()
	s.setState(StateDisconnected)
}

// SendEvent seals an event and queues it for transmission. It implements
// device.EventSender.
func (s *Session) SendEvent(deviceID, action string, value any, cause protocol.Cause) error {
	event := s.codec.NewEvent(deviceID, action, value, cause)
	if err := s.enqueue(event); err != nil {
		s.logger.Warn("event not queued", "device_id", deviceID, "action", action, "error", err)
		return err
	}
	s.eventsQueued.Add(1)
	s.logger.Debug("event queued", "device_id", deviceID, "action", action, "cause", string(event.Cause.Type))

	s.emitActivity(Activity{
		Kind:     ActivityEvent,
		DeviceID: deviceID,
		Action:   action,
		Success:  true,
		Cause:    event.Cause.Type,
		Value:    s.rawValue(event.Value),
		At:       s.now(),
	})
	return nil
}

// enqueue seals payload and pushes it on the TX queue.
func (s *Session) enqueue(payload any) error {
	sealed, err := s.codec.Seal(payload)
	if err != nil {
		return err
	}
	if len(sealed) >= s.tx.MaxSize() {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, len(sealed), s.tx.MaxSize()-1)
	}
	if err := s.tx.Push(queue.InterfaceWebSocket, sealed); err != nil {
		return fmt.Errorf("%w: %w", ErrQueueFull, err)
	}
	return nil
}

// receive runs on the transport reader goroutine.
func (s *Session) receive(payload []byte) {
	if len(payload) >= s.rx.MaxSize() {
		s.rxDropped.Add(1)
		s.logger.Warn("received message too large, dropping", "bytes", len(payload))
		return
	}
	if err := s.rx.Push(queue.InterfaceWebSocket, payload); err != nil {
		s.rxDropped.Add(1)
		s.logger.Warn("rx queue full, dropping message", "error", err)
	}
}

// transportStateChanged maps transport states onto session states.
func (s *Session) transportStateChanged(st websocket.State) {
	switch {
	case st == websocket.StateConnected:
		if t := s.transport.ServerTime(); !t.IsZero() {
			s.codec.Clock().SyncTime(t.Unix())
		}
		s.setState(StateConnected)
	case st.Connecting():
		s.setState(StateWSConnecting)
	case st == websocket.StateDisconnected || st == websocket.StateError:
		if s.network.Up() {
			s.setState(StateWiFiConnected)
		} else {
			s.setState(StateDisconnected)
		}
	}
}

// setState records st and notifies the callback and observers when it changed.
func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()

	s.notify(prev, st)
}

func (s *Session) notify(prev, st State) {
	if prev == st {
		return
	}
	s.logger.Info("session state changed", "from", prev.String(), "to", st.String())

	s.callbackMu.RLock()
	fn := s.onState
	s.callbackMu.RUnlock()
	if fn != nil {
		s.safely("state callback", func() { fn(st) })
	}
	for _, o := range s.observers {
		s.safely("observer", func() { o.StateChanged(st) })
	}
}

func (s *Session) emitActivity(a Activity) {
	for _, o := range s.observers {
		s.safely("observer", func() { o.Activity(a) })
	}
}

// rawValue renders v for observers. Encoding already succeeded in Seal.
func (s *Session) rawValue(v any) []byte {
	if len(s.observers) == 0 {
		return nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// safely runs fn, logging instead of propagating a panic.
func (s *Session) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(what+" panic", "panic", r)
		}
	}()
	fn()
}

func (s *Session) unfreeze() {
	s.mu.Lock()
	s.frozen = false
	s.mu.Unlock()
}

// OnStateChange sets the callback invoked after every session state change.
func (s *Session) OnStateChange(fn func(State)) {
	s.callbackMu.Lock()
	s.onState = fn
	s.callbackMu.Unlock()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the session is connected to the cloud.
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	state, n := s.state, len(s.devices)
	s.mu.Unlock()

	return Stats{
		State:           state,
		Devices:         n,
		RequestsHandled: s.requestsHandled.Load(),
		RequestsFailed:  s.requestsFailed.Load(),
		EventsQueued:    s.eventsQueued.Load(),
		InvalidMessages: s.invalid.Load(),
		UnknownDevices:  s.unknownDevices.Load(),
		RxDropped:       s.rxDropped.Load(),
		TxSent:          s.txSent.Load(),
		TxSendFailures:  s.txFailures.Load(),
		RxQueue:         s.rx.Stats(),
		TxQueue:         s.tx.Stats(),
		Transport:       s.transport.Stats(),
	}
}
