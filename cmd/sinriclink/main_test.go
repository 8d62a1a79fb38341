package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/sinric-link/internal/infrastructure/config"
	"github.com/nerrad567/sinric-link/internal/infrastructure/logging"
	"github.com/nerrad567/sinric-link/internal/session"
)

const (
	testDeviceA = "5dc1564130a1b2c3d4e5f601"
	testDeviceB = "5dc1564130a1b2c3d4e5f602"
)

// writeConfig writes a config file and points SINRICLINK_CONFIG at it.
// The env file is pointed at a path that does not exist.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("SINRICLINK_CONFIG", path)
	t.Setenv("SINRICLINK_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("SINRICLINK_APP_KEY", "")
	t.Setenv("SINRICLINK_APP_SECRET", "")
	return dir
}

func baseConfig(extra string) string {
	return fmt.Sprintf(`
cloud:
  app_key: "de0bxxxx-1x3x-4x3x-ax2x-5dabxxxxxxxx"
  app_secret: "5f36xxxx-x3x7-4x3x-xexe-e86724a9xxxx-4c4axxxx-3x3x-x5xe-x9x3-333d65xxxxxx"
devices:
  - id: %q
    type: switch
    name: Kettle
  - id: %q
    type: lock
logging:
  level: error
  format: text
  output: stdout
%s`, testDeviceA, testDeviceB, extra)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("SINRICLINK_CONFIG", "/nonexistent/path/config.yaml")
	t.Setenv("SINRICLINK_ENV_FILE", "/nonexistent/path/.env")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() error = %v, want loading config failure", err)
	}
}

func TestRun_MissingCredentials(t *testing.T) {
	writeConfig(t, `
devices:
  - id: "5dc1564130a1b2c3d4e5f601"
    type: switch
`)
	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cloud.app_key") {
		t.Fatalf("run() error = %v, want missing app key", err)
	}
}

// occupiedPort returns a port held by a listener for the rest of the test.
func occupiedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRun_CredentialsFromEnvFile(t *testing.T) {
	dir := writeConfig(t, fmt.Sprintf(`
devices:
  - id: "5dc1564130a1b2c3d4e5f601"
    type: switch
logging:
  level: error
api:
  enabled: true
  host: "127.0.0.1"
  port: %d
`, occupiedPort(t)))
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("SINRICLINK_APP_KEY=key\nSINRICLINK_APP_SECRET=secret\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("SINRICLINK_ENV_FILE", envPath)
	// godotenv keeps variables that exist, even when empty.
	os.Unsetenv("SINRICLINK_APP_KEY")
	os.Unsetenv("SINRICLINK_APP_SECRET")

	// Credentials pass validation; the busy API port stops run before the
	// session connects.
	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "starting API server") {
		t.Fatalf("run() error = %v, want API start failure", err)
	}
}

func TestRun_MigratesJournalBeforeSinkFailure(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	writeConfig(t, baseConfig(fmt.Sprintf(`
database:
  enabled: true
  path: %q
influxdb:
  enabled: true
  url: "http://127.0.0.1:1"
  org: test
  bucket: test
`, dbPath)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "connecting to InfluxDB") {
		t.Fatalf("run() error = %v, want InfluxDB failure", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM journal").Scan(&n); err != nil {
		t.Fatalf("journal table missing: %v", err)
	}
}

func TestRun_APIPortInUse(t *testing.T) {
	writeConfig(t, baseConfig(fmt.Sprintf(`
api:
  enabled: true
  host: "127.0.0.1"
  port: %d
`, occupiedPort(t))))

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "starting API server") {
		t.Fatalf("run() error = %v, want API start failure", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("SINRICLINK_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv("SINRICLINK_CONFIG", "/etc/sinriclink/config.yaml")
	if got := getConfigPath(); got != "/etc/sinriclink/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestGetEnvPath(t *testing.T) {
	t.Setenv("SINRICLINK_ENV_FILE", "")
	if got := getEnvPath(); got != defaultEnvPath {
		t.Errorf("getEnvPath() = %q, want %q", got, defaultEnvPath)
	}
	t.Setenv("SINRICLINK_ENV_FILE", "/run/secrets/sinriclink.env")
	if got := getEnvPath(); got != "/run/secrets/sinriclink.env" {
		t.Errorf("getEnvPath() = %q, want env override", got)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Cloud: config.CloudConfig{
			AppKey:         "key",
			AppSecret:      "secret",
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
		Network: config.NetworkConfig{JoinTimeout: 30, PollInterval: 10},
		Queue:   config.QueueConfig{RxSize: 4, TxSize: 6, MaxMessageSize: 1024, MaxDevices: 3},
		Events:  config.EventsConfig{StateInterval: 500, SensorInterval: 30},
		Devices: []config.DeviceConfig{
			{ID: testDeviceA, Type: "switch", Name: "Kettle"},
			{ID: testDeviceB, Type: "temperature_sensor"},
		},
	}
}

func TestSessionConfig(t *testing.T) {
	got := sessionConfig(testConfig())
	want := session.Config{
		AppKey:         "key",
		AppSecret:      "secret",
		ServerHost:     "ws.sinric.pro",
		ServerPort:     443,
		TLS:            true,
		Platform:       "linux",
		SDKVersion:     "1.0.0",
		ConnectTimeout: 30 * time.Second,
		PingInterval:   5 * time.Minute,
		PingTimeout:    10 * time.Second,
		ReconnectDelay: 5 * time.Second,
		JoinTimeout:    30 * time.Second,
		RxQueueSize:    4,
		TxQueueSize:    6,
		MaxMessageSize: 1024,
		MaxDevices:     3,
	}
	if got != want {
		t.Errorf("sessionConfig() = %+v, want %+v", got, want)
	}
}

func TestSessionConfig_ReconnectAndSDKVersion(t *testing.T) {
	cfg := testConfig()
	cfg.Cloud.AutoReconnect = false

	old := version
	version = "2.3.4"
	t.Cleanup(func() { version = old })

	got := sessionConfig(cfg)
	if !got.DisableAutoReconnect {
		t.Error("DisableAutoReconnect = false with auto_reconnect off")
	}
	if got.SDKVersion != "1.0.0" {
		t.Errorf("SDKVersion = %q, want 1.0.0 regardless of build version", got.SDKVersion)
	}
}

func TestNewSession_RegistersDevices(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	sess, err := newSession(testConfig(), log, nil)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	t.Cleanup(sess.Stop)

	devs := sess.Devices()
	if len(devs) != 2 {
		t.Fatalf("Devices() = %d, want 2", len(devs))
	}
	if devs[0].ID() != testDeviceA || devs[1].Type() != "temperature_sensor" {
		t.Errorf("devices = %s/%s, %s/%s", devs[0].ID(), devs[0].Type(), devs[1].ID(), devs[1].Type())
	}
	if sess.State() != session.StateDisconnected {
		t.Errorf("State() = %s, want disconnected", sess.State())
	}
}

func TestNewSession_RegistryFull(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.MaxDevices = 1
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := newSession(cfg, log, nil); err == nil || !errors.Is(err, session.ErrRegistryFull) {
		t.Errorf("newSession() error = %v, want %v", err, session.ErrRegistryFull)
	}
}

func TestPoll_ReturnsOnCancel(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	sess, err := newSession(testConfig(), log, nil)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	t.Cleanup(sess.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		poll(ctx, sess, time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not return after cancel")
	}
}
