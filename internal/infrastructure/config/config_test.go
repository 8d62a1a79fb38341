package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	testDeviceA = "5dc1564130a1b2c3d4e5f601"
	testDeviceB = "5dc1564130a1b2c3d4e5f602"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Cloud.AppKey = "app-key"
	cfg.Cloud.AppSecret = "app-secret"
	cfg.Devices = []DeviceConfig{{ID: testDeviceA, Type: "switch"}}
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
cloud:
  app_key: "key-from-file"
  app_secret: "secret-from-file"
  host: "testserver.sinric.pro"
  port: 80
  tls: false
devices:
  - id: "`+testDeviceA+`"
    type: "switch"
    name: "Desk lamp"
  - id: "`+testDeviceB+`"
    type: "temperature_sensor"
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
  qos: 1
events:
  state_interval_ms: 500
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cloud.Host != "testserver.sinric.pro" {
		t.Errorf("Cloud.Host = %q, want %q", cfg.Cloud.Host, "testserver.sinric.pro")
	}
	if cfg.Cloud.Port != 80 || cfg.Cloud.TLS {
		t.Errorf("Cloud port/tls = %d/%v, want 80/false", cfg.Cloud.Port, cfg.Cloud.TLS)
	}
	if len(cfg.Devices) != 2 || cfg.Devices[0].Name != "Desk lamp" {
		t.Errorf("Devices = %+v", cfg.Devices)
	}
	if got := cfg.GetStateEventInterval(); got != 500*time.Millisecond {
		t.Errorf("GetStateEventInterval() = %v, want 500ms", got)
	}
	// Untouched sections keep their defaults.
	if got := cfg.GetSensorEventInterval(); got != time.Minute {
		t.Errorf("GetSensorEventInterval() = %v, want 1m", got)
	}
	if cfg.MQTT.TopicPrefix != "sinriclink" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "sinriclink")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_CredentialsFromEnvironment(t *testing.T) {
	path := writeConfig(t, `
devices:
  - id: "`+testDeviceA+`"
    type: "dimswitch"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error without credentials, got nil")
	}

	t.Setenv("SINRICLINK_APP_KEY", "env-key")
	t.Setenv("SINRICLINK_APP_SECRET", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cloud.AppKey != "env-key" || cfg.Cloud.AppSecret != "env-secret" {
		t.Errorf("credentials = %q/%q, want env values", cfg.Cloud.AppKey, cfg.Cloud.AppSecret)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SINRICLINK_TEST_DOTENV=from-file\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("SINRICLINK_TEST_DOTENV", "")
	os.Unsetenv("SINRICLINK_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("SINRICLINK_TEST_DOTENV"); got != "from-file" {
		t.Errorf("SINRICLINK_TEST_DOTENV = %q, want %q", got, "from-file")
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadDotEnv() missing file error = %v, want nil", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:    "missing app key",
			modify:  func(c *Config) { c.Cloud.AppKey = "" },
			wantErr: "cloud.app_key",
		},
		{
			name:    "missing app secret",
			modify:  func(c *Config) { c.Cloud.AppSecret = "" },
			wantErr: "cloud.app_secret",
		},
		{
			name:    "invalid cloud port",
			modify:  func(c *Config) { c.Cloud.Port = 70000 },
			wantErr: "cloud.port",
		},
		{
			name:    "ping timeout not below interval",
			modify:  func(c *Config) { c.Cloud.PingTimeout = c.Cloud.PingInterval },
			wantErr: "cloud.ping_timeout",
		},
		{
			name:    "short device id",
			modify:  func(c *Config) { c.Devices[0].ID = "abc" },
			wantErr: "devices[0].id",
		},
		{
			name:    "unknown device type",
			modify:  func(c *Config) { c.Devices[0].Type = "thermostat" },
			wantErr: "devices[0].type",
		},
		{
			name: "duplicate device",
			modify: func(c *Config) {
				c.Devices = append(c.Devices, DeviceConfig{ID: testDeviceA, Type: "lock"})
			},
			wantErr: "declared twice",
		},
		{
			name: "too many devices",
			modify: func(c *Config) {
				c.Queue.MaxDevices = 1
				c.Devices = append(c.Devices, DeviceConfig{ID: testDeviceB, Type: "lock"})
			},
			wantErr: "at most 1 allowed",
		},
		{
			name:    "small message size",
			modify:  func(c *Config) { c.Queue.MaxMessageSize = 64 },
			wantErr: "queue.max_message_size",
		},
		{
			name:    "invalid QoS",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "negative retention",
			modify:  func(c *Config) { c.Database.RetentionDays = -1 },
			wantErr: "database.retention_days",
		},
		{
			name: "journal without path",
			modify: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name: "api port ignored when disabled",
			modify: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
		{
			name: "api port checked when enabled",
			modify: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 0
			},
			wantErr: "api.port",
		},
		{
			name:    "influxdb incomplete",
			modify:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "unknown log output",
			modify:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: "logging.output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsEveryError(t *testing.T) {
	cfg := defaultConfig()
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"cloud.app_key", "cloud.app_secret", "mqtt.qos"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, want it to mention %q", err, want)
		}
	}
}

func TestConfig_GetDurations(t *testing.T) {
	cfg := &Config{
		Cloud: CloudConfig{
			ConnectTimeout: 30,
			PingInterval:   300,
			PingTimeout:    10,
			ReconnectDelay: 5,
		},
		Network:  NetworkConfig{JoinTimeout: 20, PollInterval: 25},
		Database: DatabaseConfig{RetentionDays: 7},
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
	}

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"connect timeout", cfg.GetConnectTimeout(), 30 * time.Second},
		{"ping interval", cfg.GetPingInterval(), 5 * time.Minute},
		{"ping timeout", cfg.GetPingTimeout(), 10 * time.Second},
		{"reconnect delay", cfg.GetReconnectDelay(), 5 * time.Second},
		{"join timeout", cfg.GetJoinTimeout(), 20 * time.Second},
		{"poll interval", cfg.GetPollInterval(), 25 * time.Millisecond},
		{"journal retention", cfg.GetJournalRetention(), 7 * 24 * time.Hour},
		{"read timeout", cfg.GetReadTimeout(), 30 * time.Second},
		{"write timeout", cfg.GetWriteTimeout(), 45 * time.Second},
		{"idle timeout", cfg.GetIdleTimeout(), 60 * time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("SINRICLINK_APP_KEY", "key")
	t.Setenv("SINRICLINK_APP_SECRET", "secret")
	t.Setenv("SINRICLINK_SERVER_HOST", "testserver.sinric.pro")
	t.Setenv("SINRICLINK_SERVER_PORT", "8443")
	t.Setenv("SINRICLINK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("SINRICLINK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("SINRICLINK_MQTT_USERNAME", "testuser")
	t.Setenv("SINRICLINK_MQTT_PASSWORD", "testpass")
	t.Setenv("SINRICLINK_API_HOST", "192.168.1.1")
	t.Setenv("SINRICLINK_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("SINRICLINK_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Cloud.AppKey", cfg.Cloud.AppKey, "key"},
		{"Cloud.AppSecret", cfg.Cloud.AppSecret, "secret"},
		{"Cloud.Host", cfg.Cloud.Host, "testserver.sinric.pro"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if cfg.Cloud.Port != 8443 {
		t.Errorf("Cloud.Port = %d, want 8443", cfg.Cloud.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Cloud.Host != "ws.sinric.pro" || cfg.Cloud.Port != 443 || !cfg.Cloud.TLS {
		t.Errorf("default cloud endpoint = %s:%d tls=%v", cfg.Cloud.Host, cfg.Cloud.Port, cfg.Cloud.TLS)
	}
	if cfg.Queue.RxSize != 8 || cfg.Queue.TxSize != 8 || cfg.Queue.MaxMessageSize != 2048 {
		t.Errorf("default queues = %+v", cfg.Queue)
	}
	if cfg.Database.Enabled || cfg.MQTT.Enabled || cfg.API.Enabled || cfg.InfluxDB.Enabled {
		t.Error("optional sinks should be disabled by default")
	}
}
