package session

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/nerrad567/sinric-link/internal/queue"
	"github.com/nerrad567/sinric-link/internal/websocket"
)

// Default session parameters.
const (
	// MaxDevices is the default registry capacity.
	MaxDevices = 8

	// defaultJoinTimeout bounds Network.Join.
	defaultJoinTimeout = 30 * time.Second
)

// Config holds the session settings. It is copied by New.
type Config struct {
	// AppKey and AppSecret are the pre-shared cloud credentials. Required.
	AppKey    string
	AppSecret string

	// ServerHost and ServerPort select the cloud endpoint.
	// Default: ws.sinric.pro, port 443 with TLS and 80 without.
	ServerHost string
	ServerPort int

	// TLS enables wss. TLSConfig overrides root CAs and ServerName.
	TLS       bool
	TLSConfig *tls.Config

	// Platform and SDKVersion are reported in the handshake.
	Platform   string
	SDKVersion string

	// Transport timing. Zero values take the transport defaults
	// (30s, 5m, 10s, 5s).
	ConnectTimeout time.Duration
	PingInterval   time.Duration
	PingTimeout    time.Duration
	ReconnectDelay time.Duration

	// DisableAutoReconnect turns off reconnecting after a lost connection.
	DisableAutoReconnect bool

	// JoinTimeout bounds the network join in Begin. Default: 30s.
	JoinTimeout time.Duration

	// Queue sizing. Default: 8 slots of 2048 bytes each way.
	RxQueueSize    int
	TxQueueSize    int
	MaxMessageSize int

	// MaxDevices caps the registry. Default: 8.
	MaxDevices int
}

func (c Config) withDefaults() Config {
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = defaultJoinTimeout
	}
	if c.RxQueueSize <= 0 {
		c.RxQueueSize = queue.DefaultCapacity
	}
	if c.TxQueueSize <= 0 {
		c.TxQueueSize = queue.DefaultCapacity
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = queue.DefaultMaxSize
	}
	if c.MaxDevices <= 0 {
		c.MaxDevices = MaxDevices
	}
	return c
}

func (c Config) validate() error {
	if c.AppKey == "" {
		return fmt.Errorf("%w: app key is required", ErrInvalidConfig)
	}
	if c.AppSecret == "" {
		return fmt.Errorf("%w: app secret is required", ErrInvalidConfig)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.ServerPort)
	}
	return nil
}

// transportConfig builds the transport settings for the given device IDs.
func (c Config) transportConfig(deviceIDs []string) websocket.Config {
	return websocket.Config{
		Host:           c.ServerHost,
		Port:           c.ServerPort,
		TLS:            c.TLS,
		TLSConfig:      c.TLSConfig,
		AppKey:         c.AppKey,
		DeviceIDs:      deviceIDs,
		Platform:       c.Platform,
		SDKVersion:     c.SDKVersion,
		ConnectTimeout:       c.ConnectTimeout,
		PingInterval:         c.PingInterval,
		PingTimeout:          c.PingTimeout,
		ReconnectDelay:       c.ReconnectDelay,
		DisableAutoReconnect: c.DisableAutoReconnect,
		BufferSize:           c.MaxMessageSize,
	}
}
