// sinriclink runs virtual smart-home devices against the SinricPro cloud.
//
// It holds one signed WebSocket session, answers cloud requests for the
// devices declared in the config file, and optionally mirrors activity to
// a local SQLite journal, an MQTT broker and InfluxDB, with a read-only
// status API on top.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/sinric-link/internal/api"
	"github.com/nerrad567/sinric-link/internal/device"
	"github.com/nerrad567/sinric-link/internal/infrastructure/config"
	"github.com/nerrad567/sinric-link/internal/infrastructure/database"
	"github.com/nerrad567/sinric-link/internal/infrastructure/influxdb"
	"github.com/nerrad567/sinric-link/internal/infrastructure/logging"
	"github.com/nerrad567/sinric-link/internal/infrastructure/mqtt"
	"github.com/nerrad567/sinric-link/internal/journal"
	"github.com/nerrad567/sinric-link/internal/mirror"
	"github.com/nerrad567/sinric-link/internal/session"
	"github.com/nerrad567/sinric-link/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// sdkVersion is the cloud protocol SDK version sent in the handshake. It
// does not follow the build version.
const sdkVersion = "1.0.0"

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvPath    = ".env"

	// journalPruneInterval is how often expired journal entries are removed.
	journalPruneInterval = time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting sinriclink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := config.LoadDotEnv(getEnvPath()); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing useful to do with a log close error at exit
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"devices", len(cfg.Devices),
	)

	// Sink workers outlive the session so its final state transitions are
	// still delivered, and stop before the client they write through.
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	defer stopSinks()

	var (
		observers []session.Observer
		checks    = map[string]api.HealthChecker{}
		repo      journal.Repository
	)

	// Activity journal (optional)
	if cfg.Database.Enabled {
		db, openErr := database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("journal database ready", "path", cfg.Database.Path)

		sqliteRepo := journal.NewSQLiteRepository(db.DB)
		repo = sqliteRepo
		recorder := journal.NewRecorder(sqliteRepo,
			journal.WithLogger(log.With("component", "journal")),
			journal.WithRetention(cfg.GetJournalRetention(), journalPruneInterval),
		)
		go recorder.Run(sinkCtx)
		defer func() {
			stopSinks()
			recorder.Wait()
		}()
		observers = append(observers, recorder)
		checks["database"] = db
	} else {
		log.Info("journal disabled")
	}

	// MQTT mirror (optional)
	if cfg.MQTT.Enabled {
		mqttClient, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"topic_prefix", mqttClient.Topics().Prefix(),
		)

		m := mirror.NewMQTT(mqttClient, mirror.WithLogger(log.With("component", "mirror")))
		go m.Run(sinkCtx)
		defer func() {
			stopSinks()
			m.Wait()
		}()
		observers = append(observers, m)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT mirror disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		observers = append(observers, mirror.NewTelemetry(influxClient))
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	sess, err := newSession(cfg, log, observers)
	if err != nil {
		return err
	}
	sess.OnStateChange(func(st session.State) {
		log.Info("session state changed", "state", st.String())
	})

	// Status API (optional)
	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.With("component", "api"),
			Session: sess,
			Journal: repo,
			Checks:  checks,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := sess.Begin(ctx); err != nil {
		sess.Stop()
		return fmt.Errorf("starting session: %w", err)
	}
	log.Info("session started, waiting for shutdown signal",
		"server", fmt.Sprintf("%s:%d", cfg.Cloud.Host, cfg.Cloud.Port),
	)

	poll(ctx, sess, cfg.GetPollInterval())

	log.Info("shutdown signal received, cleaning up")
	sess.Stop()

	log.Info("sinriclink stopped")
	return nil
}

// newSession builds the session and registers the configured devices.
func newSession(cfg *config.Config, log *logging.Logger, observers []session.Observer) (*session.Session, error) {
	opts := []session.Option{session.WithLogger(log.With("component", "session"))}
	for _, o := range observers {
		opts = append(opts, session.WithObserver(o))
	}

	sess, err := session.New(sessionConfig(cfg), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	for _, dc := range cfg.Devices {
		d, err := device.FromConfig(
			device.Spec{ID: dc.ID, Type: device.Type(dc.Type), Name: dc.Name},
			device.WithLogger(log.With("component", "device")),
			device.WithEventIntervals(cfg.GetStateEventInterval(), cfg.GetSensorEventInterval()),
		)
		if err != nil {
			return nil, fmt.Errorf("building device: %w", err)
		}
		if err := sess.AddDevice(d); err != nil {
			return nil, fmt.Errorf("registering device %s: %w", dc.ID, err)
		}
	}
	return sess, nil
}

// sessionConfig maps the file configuration onto session settings.
func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		AppKey:         cfg.Cloud.AppKey,
		AppSecret:      cfg.Cloud.AppSecret,
		ServerHost:     cfg.Cloud.Host,
		ServerPort:     cfg.Cloud.Port,
		TLS:            cfg.Cloud.TLS,
		Platform:       cfg.Cloud.Platform,
		SDKVersion:     sdkVersion,
		ConnectTimeout: cfg.GetConnectTimeout(),
		PingInterval:   cfg.GetPingInterval(),
		PingTimeout:    cfg.GetPingTimeout(),
		ReconnectDelay: cfg.GetReconnectDelay(),
		JoinTimeout:    cfg.GetJoinTimeout(),
		RxQueueSize:    cfg.Queue.RxSize,
		TxQueueSize:    cfg.Queue.TxSize,
		MaxMessageSize: cfg.Queue.MaxMessageSize,
		MaxDevices:     cfg.Queue.MaxDevices,

		DisableAutoReconnect: !cfg.Cloud.AutoReconnect,
	}
}

// poll calls Handle every interval until ctx is done.
func poll(ctx context.Context, sess *session.Session, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sess.Handle()
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses SINRICLINK_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("SINRICLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// getEnvPath returns the dotenv file path.
// Uses SINRICLINK_ENV_FILE if set, otherwise ".env".
func getEnvPath() string {
	if path := os.Getenv("SINRICLINK_ENV_FILE"); path != "" {
		return path
	}
	return defaultEnvPath
}
