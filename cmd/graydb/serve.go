package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/graydb/internal/api"
	"github.com/nerrad567/graydb/internal/audit"
	"github.com/nerrad567/graydb/internal/auth"
	"github.com/nerrad567/graydb/internal/database"
	"github.com/nerrad567/graydb/internal/drivers"
	"github.com/nerrad567/graydb/internal/infrastructure/auditdb"
	"github.com/nerrad567/graydb/internal/infrastructure/config"
	"github.com/nerrad567/graydb/internal/infrastructure/influxdb"
	"github.com/nerrad567/graydb/internal/infrastructure/logging"
	"github.com/nerrad567/graydb/internal/infrastructure/mqtt"
	"github.com/nerrad567/graydb/internal/infrastructure/tracing"
	"github.com/nerrad567/graydb/internal/metrics"
	"github.com/nerrad567/graydb/internal/observer"
	"github.com/nerrad567/graydb/migrations"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Open configured sessions and serve the admin API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), *configPath)
		},
	}
}

// run is the serve logic, separated from the command for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to the YAML configuration
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting graydb",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing useful to do with a close error at exit
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	tp, err := tracing.New(ctx, cfg.Tracing, version)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			log.Error("error shutting down tracing", "error", shutdownErr)
		}
	}()

	collector := database.NewCollector(database.WithQueryListLimit(cfg.Observer.QueryListLimit))
	promMetrics := metrics.New(cfg.Metrics.Namespace, collector)
	observers := []database.Observer{promMetrics}

	// Audit trail: persistent SQLite store or the in-memory ring.
	var (
		auditLog  database.AuditLog = database.NewRingAudit(cfg.Audit.Capacity)
		auditRepo audit.Repository
		auditDB   *auditdb.DB
	)
	if cfg.Audit.Persist {
		auditDB, err = openAuditStore(ctx, cfg.Audit)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing audit store")
			if closeErr := auditDB.Close(); closeErr != nil {
				log.Error("error closing audit store", "error", closeErr)
			}
		}()
		auditRepo = audit.NewSQLiteRepository(auditDB.DB)
		auditLog = auditRepo
		log.Info("audit store ready", "path", cfg.Audit.Path)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		publisher := observer.NewEventPublisher(mqttClient, mqttClient.Topics(), byte(cfg.MQTT.QoS), 0, log.Component("observer"))
		defer func() {
			if dropped := publisher.Dropped(); dropped > 0 {
				log.Warn("query events dropped", "count", dropped)
			}
			publisher.Close() //nolint:errcheck // always nil
		}()
		observers = append(observers, publisher)
	} else {
		log.Info("MQTT disabled")
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
		observers = append(observers, hub)
	}

	registry := database.NewRegistry(
		database.WithLogger(log.Component("registry")),
		database.WithVerbDetection(cfg.Observer.VerbDetection),
		database.WithTracer(tp.Tracer()),
		database.WithCollector(collector),
		database.WithAudit(auditLog),
		database.WithObserver(observers...),
	)
	if err := registerDatabases(registry, cfg); err != nil {
		return err
	}
	defer func() {
		log.Info("closing sessions")
		if closeErr := registry.Close(); closeErr != nil {
			log.Error("error closing sessions", "error", closeErr)
		}
	}()

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if influxClient != nil || mqttClient != nil {
		exporter := newStatsExporter(cfg, collector, influxClient, mqttClient, log)
		done := make(chan struct{})
		exportCtx, stopExport := context.WithCancel(ctx)
		go func() {
			defer close(done)
			exporter.Run(exportCtx)
		}()
		// Runs before the sinks close so the final export reaches them.
		defer func() {
			stopExport()
			<-done
		}()
	}

	if err := healthCheck(ctx, registry, auditDB, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed", "drivers", registry.Drivers())

	if cfg.API.Enabled {
		srv, err := startAPI(ctx, cfg, log, registry, hub, promMetrics, auditRepo, auditDB, mqttClient)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("admin API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, exporter, InfluxDB, sessions,
	// MQTT, audit store, tracing.
	return nil
}

// registerDatabases registers a driver for every configured databases section.
func registerDatabases(registry *database.Registry, cfg *config.Config) error {
	for _, name := range cfg.DriverNames() {
		drv, err := drivers.Lookup(name)
		if err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
		registry.Register(drv, cfg.Databases[name].SessionConfig())
	}
	return nil
}

func openAuditStore(ctx context.Context, cfg config.AuditConfig) (*auditdb.DB, error) {
	db, err := auditdb.Open(ctx, auditdb.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audit store: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // migration error takes precedence
		return nil, fmt.Errorf("running audit migrations: %w", err)
	}
	return db, nil
}

func newStatsExporter(cfg *config.Config, collector *database.Collector, influxClient *influxdb.Client, mqttClient *mqtt.Client, log *logging.Logger) *observer.StatsExporter {
	scope, err := os.Hostname()
	if err != nil || scope == "" {
		scope = cfg.Tracing.ServiceName
	}

	opts := []observer.ExporterOption{observer.WithExporterLogger(log.Component("exporter"))}
	if influxClient != nil {
		opts = append(opts, observer.WithStatsWriter(influxClient))
	}
	if mqttClient != nil {
		opts = append(opts, observer.WithStatsPublisher(mqttClient, mqttClient.Topics()))
	}
	return observer.NewStatsExporter(collector, scope, cfg.GetExportInterval(), opts...)
}

func startAPI(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	registry *database.Registry,
	hub *api.Hub,
	promMetrics *metrics.PrometheusMetrics,
	auditRepo audit.Repository,
	auditDB *auditdb.DB,
	mqttClient *mqtt.Client,
) (*api.Server, error) {
	accounts, err := auth.NewAccounts(cfg.Security.Admins)
	if err != nil {
		return nil, fmt.Errorf("loading admin accounts: %w", err)
	}
	if accounts.Len() == 0 {
		log.Warn("no admin accounts configured, login is impossible")
	}

	deps := api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log.Component("api"),
		Registry:  registry,
		Accounts:  accounts,
		AuditRepo: auditRepo,
		Metrics:   promMetrics.Handler(),
		Hub:       hub,
		Version:   version,
	}
	// Typed nils would defeat the server's nil checks.
	if auditDB != nil {
		deps.AuditDB = auditDB
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}

	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return srv, nil
}

// healthCheck opens every registered session and verifies all connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - registry: Sessions to open and ping
//   - auditDB: Audit store (may be nil when not persisted)
//   - mqttClient: MQTT client (may be nil if disabled)
//   - influxClient: InfluxDB client (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, registry *database.Registry, auditDB *auditdb.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	for _, name := range registry.Drivers() {
		err := registry.Do(ctx, name, func(s *database.Session) error {
			return s.Ping(ctx)
		})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if auditDB != nil {
		if err := auditDB.HealthCheck(ctx); err != nil {
			return fmt.Errorf("audit store: %w", err)
		}
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
