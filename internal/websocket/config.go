package websocket

import (
	"crypto/tls"
	"fmt"
	"time"
)

// Default connection parameters.
const (
	// DefaultHost is the cloud WebSocket endpoint.
	DefaultHost = "ws.sinric.pro"

	// defaultTLSPort and defaultPlainPort are used when Config.Port is zero.
	defaultTLSPort   = 443
	defaultPlainPort = 80

	// defaultConnectTimeout bounds DNS, TCP, TLS and the upgrade exchange together.
	defaultConnectTimeout = 30 * time.Second

	// defaultPingInterval is how often an idle link is probed.
	defaultPingInterval = 5 * time.Minute

	// defaultPingTimeout is how long an outstanding ping may go unanswered.
	defaultPingTimeout = 10 * time.Second

	// defaultReconnectDelay is the fixed wait before every reconnect attempt.
	defaultReconnectDelay = 5 * time.Second

	// defaultWriteTimeout bounds a single frame write.
	defaultWriteTimeout = 10 * time.Second

	// DefaultBufferSize is the receive buffer size; also the largest
	// reassembled message.
	DefaultBufferSize = 2048

	// defaultPlatform and defaultSDKVersion fill the handshake headers.
	defaultPlatform   = "GO"
	defaultSDKVersion = "1.0.0"
)

// Config describes one cloud connection. It is copied by Connect and not
// modified afterwards.
type Config struct {
	// Host is the server name. Default: ws.sinric.pro.
	Host string

	// Port is the server port. Default: 443 with TLS, 80 without.
	Port int

	// TLS enables TLS (wss).
	TLS bool

	// TLSConfig overrides the TLS client settings (root CAs in tests).
	// ServerName defaults to Host.
	TLSConfig *tls.Config

	// AppKey, DeviceIDs, Platform and SDKVersion are sent as handshake headers.
	AppKey     string
	DeviceIDs  []string
	Platform   string
	SDKVersion string

	// ConnectTimeout bounds one connection attempt. Default: 30s.
	ConnectTimeout time.Duration

	// PingInterval is the idle time before a ping is sent. Default: 5m.
	PingInterval time.Duration

	// PingTimeout is how long a ping may stay unanswered. Default: 10s.
	PingTimeout time.Duration

	// ReconnectDelay is the fixed delay before each reconnect. Default: 5s.
	ReconnectDelay time.Duration

	// DisableAutoReconnect stops Handle from reconnecting after a failed
	// or lost connection. Ignored once SetAutoReconnect has been called.
	DisableAutoReconnect bool

	// WriteTimeout bounds a single frame write. Default: 10s.
	WriteTimeout time.Duration

	// BufferSize is the receive buffer size in bytes. Default: 2048.
	BufferSize int
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		if c.TLS {
			c.Port = defaultTLSPort
		} else {
			c.Port = defaultPlainPort
		}
	}
	if c.Platform == "" {
		c.Platform = defaultPlatform
	}
	if c.SDKVersion == "" {
		c.SDKVersion = defaultSDKVersion
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = defaultPingTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	c.DeviceIDs = append([]string(nil), c.DeviceIDs...)
	return c
}

func (c Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.BufferSize < 16 { //nolint:mnd // room for a frame header and some payload
		return fmt.Errorf("%w: buffer size %d too small", ErrInvalidConfig, c.BufferSize)
	}
	return nil
}

func (c Config) tlsConfig() *tls.Config {
	var cfg *tls.Config
	if c.TLSConfig != nil {
		cfg = c.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = c.Host
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	return cfg
}
