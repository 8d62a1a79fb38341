package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/sinric-link/internal/device"
)

// Config is the root configuration structure for sinric-link.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Cloud    CloudConfig    `yaml:"cloud"`
	Network  NetworkConfig  `yaml:"network"`
	Queue    QueueConfig    `yaml:"queue"`
	Events   EventsConfig   `yaml:"events"`
	Devices  []DeviceConfig `yaml:"devices"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CloudConfig contains the cloud endpoint, credentials and link timing.
// Timing values are in seconds.
type CloudConfig struct {
	AppKey         string `yaml:"app_key"`
	AppSecret      string `yaml:"app_secret"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TLS            bool   `yaml:"tls"`
	Platform       string `yaml:"platform"`
	ConnectTimeout int    `yaml:"connect_timeout"`
	PingInterval   int    `yaml:"ping_interval"`
	PingTimeout    int    `yaml:"ping_timeout"`
	ReconnectDelay int    `yaml:"reconnect_delay"`
	AutoReconnect  bool   `yaml:"auto_reconnect"`
}

// NetworkConfig contains link-layer join settings.
type NetworkConfig struct {
	// JoinTimeout bounds the wait for a usable interface, in seconds.
	JoinTimeout int `yaml:"join_timeout"`

	// PollInterval is the session Handle cadence, in milliseconds.
	PollInterval int `yaml:"poll_interval_ms"`
}

// QueueConfig sizes the RX/TX queues and the device registry.
type QueueConfig struct {
	RxSize         int `yaml:"rx_size"`
	TxSize         int `yaml:"tx_size"`
	MaxMessageSize int `yaml:"max_message_size"`
	MaxDevices     int `yaml:"max_devices"`
}

// EventsConfig sets the minimum spacing between events of one capability.
type EventsConfig struct {
	StateInterval  int `yaml:"state_interval_ms"`
	SensorInterval int `yaml:"sensor_interval_s"`
}

// DeviceConfig declares one virtual device.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite settings for the activity journal.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays prunes journal entries older than this. 0 keeps all.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains settings for the local MQTT mirror.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains local status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error. Variables already set are left alone.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SINRICLINK_SECTION_KEY
// For example: SINRICLINK_APP_KEY, SINRICLINK_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Cloud: CloudConfig{
			Host:           "ws.sinric.pro",
			Port:           443,
			TLS:            true,
			Platform:       "linux",
			ConnectTimeout: 30,
			PingInterval:   300,
			PingTimeout:    10,
			ReconnectDelay: 5,
			AutoReconnect:  true,
		},
		Network: NetworkConfig{
			JoinTimeout:  30,
			PollInterval: 10,
		},
		Queue: QueueConfig{
			RxSize:         8,
			TxSize:         8,
			MaxMessageSize: 2048,
			MaxDevices:     8,
		},
		Events: EventsConfig{
			StateInterval:  1000,
			SensorInterval: 60,
		},
		Database: DatabaseConfig{
			Path:          "./data/sinriclink.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sinriclink",
			},
			QoS:         1,
			TopicPrefix: "sinriclink",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "sinriclink",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/sinriclink.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Cloud credentials belong in the environment, not the file.
	if v := os.Getenv("SINRICLINK_APP_KEY"); v != "" {
		cfg.Cloud.AppKey = v
	}
	if v := os.Getenv("SINRICLINK_APP_SECRET"); v != "" {
		cfg.Cloud.AppSecret = v
	}
	if v := os.Getenv("SINRICLINK_SERVER_HOST"); v != "" {
		cfg.Cloud.Host = v
	}
	if v := os.Getenv("SINRICLINK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Cloud.Port = port
		}
	}

	// Database
	if v := os.Getenv("SINRICLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("SINRICLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SINRICLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SINRICLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SINRICLINK_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("SINRICLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("SINRICLINK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Cloud
	if c.Cloud.AppKey == "" {
		errs = append(errs, "cloud.app_key is required (set SINRICLINK_APP_KEY environment variable)")
	}
	if c.Cloud.AppSecret == "" {
		errs = append(errs, "cloud.app_secret is required (set SINRICLINK_APP_SECRET environment variable)")
	}
	if c.Cloud.Host == "" {
		errs = append(errs, "cloud.host is required")
	}
	if c.Cloud.Port < 1 || c.Cloud.Port > 65535 {
		errs = append(errs, "cloud.port must be between 1 and 65535")
	}
	if c.Cloud.PingTimeout >= c.Cloud.PingInterval && c.Cloud.PingInterval > 0 {
		errs = append(errs, "cloud.ping_timeout must be shorter than cloud.ping_interval")
	}

	// Queues
	if c.Queue.RxSize < 1 || c.Queue.TxSize < 1 {
		errs = append(errs, "queue.rx_size and queue.tx_size must be at least 1")
	}
	if c.Queue.MaxMessageSize < 256 {
		errs = append(errs, "queue.max_message_size must be at least 256")
	}
	if c.Queue.MaxDevices < 1 {
		errs = append(errs, "queue.max_devices must be at least 1")
	}

	// Devices
	if len(c.Devices) > c.Queue.MaxDevices && c.Queue.MaxDevices > 0 {
		errs = append(errs, fmt.Sprintf("devices: %d declared, at most %d allowed", len(c.Devices), c.Queue.MaxDevices))
	}
	seen := make(map[string]struct{}, len(c.Devices))
	for i, d := range c.Devices {
		if err := device.ValidateID(d.ID); err != nil {
			errs = append(errs, fmt.Sprintf("devices[%d].id: %v", i, err))
		}
		if err := device.ValidateType(device.Type(d.Type)); err != nil {
			errs = append(errs, fmt.Sprintf("devices[%d].type: %v", i, err))
		}
		if _, dup := seen[d.ID]; dup {
			errs = append(errs, fmt.Sprintf("devices[%d].id %q is declared twice", i, d.ID))
		}
		seen[d.ID] = struct{}{}
	}

	// Optional sinks
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the journal is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when the mirror is enabled")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when telemetry is enabled")
	}

	switch c.Logging.Output {
	case "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required for file output")
		}
	default:
		errs = append(errs, "logging.output must be stdout, stderr, or file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the cloud connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Cloud.ConnectTimeout) * time.Second
}

// GetPingInterval returns the keepalive ping interval as a Duration.
func (c *Config) GetPingInterval() time.Duration {
	return time.Duration(c.Cloud.PingInterval) * time.Second
}

// GetPingTimeout returns the pong deadline as a Duration.
func (c *Config) GetPingTimeout() time.Duration {
	return time.Duration(c.Cloud.PingTimeout) * time.Second
}

// GetReconnectDelay returns the delay between reconnect attempts.
func (c *Config) GetReconnectDelay() time.Duration {
	return time.Duration(c.Cloud.ReconnectDelay) * time.Second
}

// GetJoinTimeout returns the network join bound as a Duration.
func (c *Config) GetJoinTimeout() time.Duration {
	return time.Duration(c.Network.JoinTimeout) * time.Second
}

// GetPollInterval returns the session Handle cadence.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Network.PollInterval) * time.Millisecond
}

// GetStateEventInterval returns the spacing for state-change events.
func (c *Config) GetStateEventInterval() time.Duration {
	return time.Duration(c.Events.StateInterval) * time.Millisecond
}

// GetSensorEventInterval returns the spacing for sensor readings.
func (c *Config) GetSensorEventInterval() time.Duration {
	return time.Duration(c.Events.SensorInterval) * time.Second
}

// GetJournalRetention returns how long journal entries are kept.
// Zero means forever.
func (c *Config) GetJournalRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
