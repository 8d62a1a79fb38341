package websocket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// closeWriteTimeout bounds the best-effort close frame on Disconnect.
const closeWriteTimeout = time.Second

// errStale marks work belonging to a superseded connection attempt.
var errStale = errors.New("websocket: stale connection attempt")

// Resolver resolves host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats holds operational statistics.
type Stats struct {
	State           State
	FramesRx        uint64
	FramesTx        uint64
	BytesRx         uint64
	BytesTx         uint64
	MessagesRx      uint64
	MessagesTx      uint64
	PingsSent       uint64
	PongsRx         uint64
	ConnectsTotal   uint64 // successful upgrades
	ReconnectsTotal uint64 // reconnect attempts started by Handle
	ErrorsTotal     uint64
	DroppedTotal    uint64 // fragmented messages discarded as oversized
	LastPong        time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithResolver replaces net.DefaultResolver.
func WithResolver(r Resolver) Option {
	return func(c *Client) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithDialer replaces the default net.Dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithClock replaces time.Now for liveness and reconnect timing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is a single-connection WebSocket client.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Message and state callbacks run on the reader goroutine or on the
//     goroutine calling Connect, Handle or Disconnect. They must not block
//     and must not call Close.
type Client struct {
	resolver Resolver
	dialer   Dialer
	now      func() time.Time
	logger   Logger

	// Connection state, guarded by mu.
	mu             sync.Mutex
	cfg            Config
	configured     bool
	halted         bool // set by Disconnect, cleared by Connect
	state          State
	gen            uint64 // bumped to invalidate running goroutines
	conn           net.Conn
	cancelDial     context.CancelFunc
	lastPingSent   time.Time
	lastPong       time.Time
	lastDisconnect time.Time
	pingPending    bool
	serverTime     time.Time

	// Reconnect policy. Connect takes it from Config until
	// SetAutoReconnect pins it.
	autoReconnect  bool
	reconnectDelay time.Duration
	reconnectSet   bool

	// Outbound frame assembly, guarded by writeMu.
	writeMu sync.Mutex
	txBuf   []byte

	callbackMu sync.RWMutex
	onMessage  func([]byte)
	onState    func(State)

	wg sync.WaitGroup

	framesRx    atomic.Uint64
	framesTx    atomic.Uint64
	bytesRx     atomic.Uint64
	bytesTx     atomic.Uint64
	messagesRx  atomic.Uint64
	messagesTx  atomic.Uint64
	pingsSent   atomic.Uint64
	pongsRx     atomic.Uint64
	connects    atomic.Uint64
	reconnects  atomic.Uint64
	errorsTotal atomic.Uint64
	dropped     atomic.Uint64
}

// New creates a disconnected client.
func New(opts ...Option) *Client {
	c := &Client{
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{},
		now:      time.Now,
		logger:   noopLogger{},
		state:    StateDisconnected,

		autoReconnect:  true,
		reconnectDelay: defaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnMessage sets the callback for complete text messages. The slice is
// only valid for the duration of the call.
func (c *Client) OnMessage(fn func([]byte)) {
	c.callbackMu.Lock()
	c.onMessage = fn
	c.callbackMu.Unlock()
}

// OnStateChange sets the callback invoked after every state transition.
func (c *Client) OnStateChange(fn func(State)) {
	c.callbackMu.Lock()
	c.onState = fn
	c.callbackMu.Unlock()
}

// Connect starts a connection attempt with cfg and returns immediately.
//
// It is rejected with ErrAlreadyConnecting unless the client is
// disconnected or in the error state. Progress is reported through state
// callbacks; failures end in StateError and are retried by Handle.
func (c *Client) Connect(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	key, err := GenerateKey()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)

	c.mu.Lock()
	if !c.state.idle() {
		c.mu.Unlock()
		cancel()
		return ErrAlreadyConnecting
	}
	c.cfg = cfg
	if !c.reconnectSet {
		c.autoReconnect = !cfg.DisableAutoReconnect
		c.reconnectDelay = cfg.ReconnectDelay
	}
	c.configured = true
	c.halted = false
	c.gen++
	gen := c.gen
	c.cancelDial = cancel
	c.pingPending = false
	c.state = StateDNSLookup
	c.mu.Unlock()

	c.logger.Debug("connecting", "host", cfg.Host, "port", cfg.Port, "tls", cfg.TLS)
	c.notifyState(StateDNSLookup)

	c.wg.Add(1)
	go c.run(ctx, cancel, gen, cfg, key)
	return nil
}

// run performs one connection attempt and then reads until the
// connection ends.
func (c *Client) run(ctx context.Context, cancel context.CancelFunc, gen uint64, cfg Config, key string) {
	defer c.wg.Done()
	defer cancel()

	conn, err := c.open(ctx, gen, cfg)
	if err != nil {
		if !errors.Is(err, errStale) {
			c.fail(gen, nil, err)
		}
		return
	}

	if err := c.sendUpgrade(ctx, conn, cfg, key); err != nil {
		c.fail(gen, conn, err)
		return
	}

	// The upgrade response must arrive within the connect timeout.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline) //nolint:errcheck // a failing deadline surfaces as a read error
	}

	c.readLoop(gen, conn, cfg, key)
}

// open resolves, dials and, for TLS, performs the TLS handshake.
func (c *Client) open(ctx context.Context, gen uint64, cfg Config) (net.Conn, error) {
	addrs, err := c.resolver.LookupHost(ctx, cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDNSFailed, cfg.Host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s: no addresses", ErrDNSFailed, cfg.Host)
	}

	if !c.transition(gen, StateTCPConnecting) {
		return nil, errStale
	}

	address := net.JoinHostPort(addrs[0], strconv.Itoa(cfg.Port))
	conn, err := c.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, address, err)
	}

	if cfg.TLS {
		if !c.transition(gen, StateTLSHandshake) {
			conn.Close()
			return nil, errStale
		}
		tlsConn := tls.Client(conn, cfg.tlsConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %w", ErrTLSFailed, err)
		}
		conn = tlsConn
	}

	if !c.attach(gen, conn) {
		conn.Close()
		return nil, errStale
	}
	return conn, nil
}

// attach records conn as the current connection and enters ws_handshake.
func (c *Client) attach(gen uint64, conn net.Conn) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.conn = conn
	c.state = StateWSHandshake
	c.mu.Unlock()

	c.notifyState(StateWSHandshake)
	return true
}

// sendUpgrade writes the HTTP upgrade request.
func (c *Client) sendUpgrade(ctx context.Context, conn net.Conn, cfg Config, key string) error {
	req := UpgradeRequest{
		Host:       cfg.Host,
		Port:       cfg.Port,
		TLS:        cfg.TLS,
		Key:        key,
		AppKey:     cfg.AppKey,
		DeviceIDs:  cfg.DeviceIDs,
		Platform:   cfg.Platform,
		SDKVersion: cfg.SDKVersion,
	}

	deadline := time.Now().Add(cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set write deadline: %w", ErrHandshakeFailed, err)
	}

	data := req.Bytes()
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("%w: write request: %w", ErrHandshakeFailed, err)
	}
	c.bytesTx.Add(uint64(len(data)))
	return nil
}

// receiver owns the receive-assembly state of one connection. Only the
// reader goroutine touches it.
type receiver struct {
	buf         []byte
	n           int
	upgraded    bool
	fragment    []byte
	fragmenting bool
}

// readLoop reads until the connection fails, closes or is superseded.
func (c *Client) readLoop(gen uint64, conn net.Conn, cfg Config, key string) {
	rx := &receiver{buf: make([]byte, cfg.BufferSize)}

	for {
		if rx.n == len(rx.buf) {
			if !rx.upgraded {
				c.fail(gen, conn, fmt.Errorf("%w: response header exceeds %d bytes", ErrHandshakeFailed, len(rx.buf)))
			} else {
				c.fail(gen, conn, fmt.Errorf("%w: frame exceeds %d byte buffer", ErrProtocolDesync, len(rx.buf)))
			}
			return
		}

		m, readErr := conn.Read(rx.buf[rx.n:])
		if m > 0 {
			rx.n += m
			c.bytesRx.Add(uint64(m))

			if err := c.consume(gen, conn, cfg, key, rx); err != nil {
				if errors.Is(err, ErrClosedByPeer) {
					c.lost(gen, conn, err)
				} else if !errors.Is(err, errStale) {
					c.fail(gen, conn, err)
				}
				return
			}
		}

		if readErr != nil {
			if !rx.upgraded {
				c.fail(gen, conn, fmt.Errorf("%w: %w", ErrHandshakeFailed, readErr))
			} else {
				c.lost(gen, conn, readErr)
			}
			return
		}
	}
}

// consume processes everything buffered so far.
func (c *Client) consume(gen uint64, conn net.Conn, cfg Config, key string, rx *receiver) error {
	if !rx.upgraded {
		resp, used, err := ParseUpgradeResponse(rx.buf[:rx.n], key)
		if errors.Is(err, ErrIncompleteHandshake) {
			return nil
		}
		if err != nil {
			return err
		}

		rx.n = copy(rx.buf, rx.buf[used:rx.n])
		rx.upgraded = true
		_ = conn.SetReadDeadline(time.Time{}) //nolint:errcheck // liveness is handled by pings

		if !c.upgraded(gen, resp) {
			return errStale
		}
	}

	off := 0
	for off < rx.n {
		f, used, err := ParseFrame(rx.buf[off:rx.n])
		if errors.Is(err, ErrIncompleteFrame) {
			break
		}
		if err != nil {
			return err
		}
		off += used
		c.framesRx.Add(1)

		if err := c.handleFrame(conn, cfg, rx, f); err != nil {
			return err
		}
	}

	// Keep the unconsumed tail for the next read.
	rx.n = copy(rx.buf, rx.buf[off:rx.n])
	return nil
}

// handleFrame acts on one inbound frame.
func (c *Client) handleFrame(conn net.Conn, cfg Config, rx *receiver, f Frame) error {
	switch f.Opcode {
	case OpText:
		if f.Fin {
			rx.fragmenting = false
			c.deliver(f.Payload)
			return nil
		}
		rx.fragment = append(rx.fragment[:0], f.Payload...)
		rx.fragmenting = true

	case OpContinuation:
		if !rx.fragmenting {
			return nil
		}
		if len(rx.fragment)+len(f.Payload) > cfg.BufferSize {
			c.logger.Warn("dropping oversized fragmented message", "limit", cfg.BufferSize)
			c.dropped.Add(1)
			rx.fragmenting = false
			rx.fragment = rx.fragment[:0]
			return nil
		}
		rx.fragment = append(rx.fragment, f.Payload...)
		if f.Fin {
			rx.fragmenting = false
			c.deliver(rx.fragment)
		}

	case OpPing:
		if err := c.writeFrame(conn, cfg, OpPong, f.Payload); err != nil {
			return fmt.Errorf("pong: %w", err)
		}

	case OpPong:
		c.mu.Lock()
		c.pingPending = false
		c.lastPong = c.now()
		c.mu.Unlock()
		c.pongsRx.Add(1)

	case OpClose:
		// Echo the status code before closing.
		payload := f.Payload
		if len(payload) > 2 { //nolint:mnd // status code only
			payload = payload[:2]
		}
		_ = c.writeFrame(conn, cfg, OpClose, payload) //nolint:errcheck // best effort
		return ErrClosedByPeer

	default:
		c.logger.Debug("ignoring frame", "opcode", f.Opcode.String())
	}
	return nil
}

// deliver hands a complete text message to the callback.
func (c *Client) deliver(payload []byte) {
	c.messagesRx.Add(1)

	c.callbackMu.RLock()
	fn := c.onMessage
	c.callbackMu.RUnlock()
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message callback panic", "panic", r)
		}
	}()
	fn(payload)
}

// upgraded moves to connected after an accepted handshake.
func (c *Client) upgraded(gen uint64, resp *UpgradeResponse) bool {
	now := c.now()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.state = StateConnected
	c.lastPong = now
	c.lastPingSent = now
	c.pingPending = false
	c.serverTime = resp.ServerTime
	c.mu.Unlock()

	c.connects.Add(1)
	c.logger.Info("websocket connected")
	c.notifyState(StateConnected)
	return true
}

// transition moves to st if gen is still current.
func (c *Client) transition(gen uint64, st State) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	changed := c.state != st
	c.state = st
	c.mu.Unlock()

	if changed {
		c.notifyState(st)
	}
	return true
}

// fail ends a connection attempt or connection in the error state.
func (c *Client) fail(gen uint64, conn net.Conn, err error) {
	c.end(gen, conn, StateError, err)
}

// lost ends an established connection in the disconnected state.
func (c *Client) lost(gen uint64, conn net.Conn, err error) {
	c.end(gen, conn, StateDisconnected, err)
}

func (c *Client) end(gen uint64, conn net.Conn, st State, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	// Invalidate the reader before closing so its read error is stale.
	c.gen++
	c.conn = nil
	c.cancelDial = nil
	c.state = st
	c.pingPending = false
	c.lastDisconnect = c.now()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if st == StateError {
		c.errorsTotal.Add(1)
		c.logger.Error("websocket failed", "error", err)
	} else {
		c.logger.Warn("websocket connection lost", "error", err)
	}
	c.notifyState(st)
}

// Handle services liveness and reconnects. Call it from the polling loop.
//
// While connected it sends a ping once PingInterval has passed since the
// last one, and disconnects when an outstanding ping has gone unanswered
// for longer than PingTimeout. While disconnected or failed, and unless
// reconnect is disabled, it starts a new connection once the reconnect
// delay has passed since the last disconnect.
func (c *Client) Handle() {
	now := c.now()

	c.mu.Lock()
	cfg := c.cfg
	gen := c.gen
	conn := c.conn
	delay := c.reconnectDelay
	var sendPing, timedOut, reconnect bool

	switch {
	case c.state == StateConnected:
		if c.pingPending {
			timedOut = now.Sub(c.lastPingSent) > cfg.PingTimeout && now.Sub(c.lastPong) > cfg.PingTimeout
		} else {
			sendPing = now.Sub(c.lastPingSent) >= cfg.PingInterval
		}
	case c.state.idle():
		reconnect = c.configured && !c.halted && c.autoReconnect &&
			now.Sub(c.lastDisconnect) >= delay
	}
	c.mu.Unlock()

	switch {
	case timedOut:
		c.lost(gen, conn, ErrPingTimeout)
	case sendPing:
		if err := c.SendPing(); err != nil {
			c.logger.Warn("ping failed", "error", err)
		}
	case reconnect:
		c.reconnects.Add(1)
		c.logger.Info("reconnecting", "delay", delay.String())
		if err := c.Connect(cfg); err != nil && !errors.Is(err, ErrAlreadyConnecting) {
			c.logger.Error("reconnect failed", "error", err)
		}
	}
}

// Send writes payload as one text frame. It fails with ErrNotConnected
// outside the connected state; nothing is queued. A failed write ends the
// connection in the error state.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn, cfg, gen := c.conn, c.cfg, c.gen
	c.mu.Unlock()

	if err := c.writeFrame(conn, cfg, OpText, payload); err != nil {
		c.fail(gen, conn, err)
		return err
	}
	c.messagesTx.Add(1)
	return nil
}

// SendPing writes a ping and marks it outstanding.
func (c *Client) SendPing() error {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn, cfg, gen := c.conn, c.cfg, c.gen
	c.mu.Unlock()

	if err := c.writeFrame(conn, cfg, OpPing, nil); err != nil {
		c.fail(gen, conn, err)
		return err
	}

	c.mu.Lock()
	c.lastPingSent = c.now()
	c.pingPending = true
	c.mu.Unlock()
	c.pingsSent.Add(1)
	return nil
}

// writeFrame masks and writes one frame. After an error part of the frame
// may already be on the wire, so callers must drop the connection.
func (c *Client) writeFrame(conn net.Conn, cfg Config, op Opcode, payload []byte) error {
	mask, err := NewMask()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.txBuf = AppendFrame(c.txBuf[:0], op, payload, mask)

	if err := conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("%w: set write deadline: %w", ErrSendFailed, err)
	}
	if _, err := conn.Write(c.txBuf); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	c.framesTx.Add(1)
	c.bytesTx.Add(uint64(len(c.txBuf)))
	return nil
}

// Disconnect closes the connection (sending a close frame when connected)
// and stays disconnected until the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	prev := c.state
	conn := c.conn
	cancel := c.cancelDial
	cfg := c.cfg
	c.gen++
	c.halted = true
	c.conn = nil
	c.cancelDial = nil
	c.pingPending = false
	c.lastDisconnect = c.now()
	if prev == StateConnected {
		c.state = StateClosing
	} else {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if prev == StateConnected {
		c.notifyState(StateClosing)
		if conn != nil {
			closeCfg := cfg
			closeCfg.WriteTimeout = closeWriteTimeout
			_ = c.writeFrame(conn, closeCfg, OpClose, []byte{0x03, 0xE8}) //nolint:errcheck,mnd // 1000 normal closure, best effort
		}
		c.mu.Lock()
		if c.state == StateClosing {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
	}

	if conn != nil {
		conn.Close()
	}

	if prev != StateDisconnected {
		c.logger.Info("websocket disconnected")
		c.notifyState(StateDisconnected)
	}
}

// Close disconnects and waits for the connection goroutine to exit.
// It must not be called from a callback.
func (c *Client) Close() error {
	c.Disconnect()
	c.wg.Wait()
	return nil
}

// SetAutoReconnect changes reconnect behaviour for the current and all
// later connections. A zero delay keeps the current one. Later Connect
// calls do not override it.
func (c *Client) SetAutoReconnect(enabled bool, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoReconnect = enabled
	c.reconnectSet = true
	if delay > 0 {
		c.reconnectDelay = delay
	}
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether Send is currently possible.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// ServerTime returns the server's Date header from the last upgrade, zero
// if it sent none.
func (c *Client) ServerTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverTime
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	state, lastPong := c.state, c.lastPong
	c.mu.Unlock()

	return Stats{
		State:           state,
		FramesRx:        c.framesRx.Load(),
		FramesTx:        c.framesTx.Load(),
		BytesRx:         c.bytesRx.Load(),
		BytesTx:         c.bytesTx.Load(),
		MessagesRx:      c.messagesRx.Load(),
		MessagesTx:      c.messagesTx.Load(),
		PingsSent:       c.pingsSent.Load(),
		PongsRx:         c.pongsRx.Load(),
		ConnectsTotal:   c.connects.Load(),
		ReconnectsTotal: c.reconnects.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
		DroppedTotal:    c.dropped.Load(),
		LastPong:        lastPong,
	}
}

// notifyState invokes the state callback outside all locks.
func (c *Client) notifyState(st State) {
	c.callbackMu.RLock()
	fn := c.onState
	c.callbackMu.RUnlock()
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("state callback panic", "panic", r)
		}
	}()
	fn(st)
}
