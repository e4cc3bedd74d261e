// Gray Logic UPnP - network device inventory service.
//
// The service searches the LAN with SSDP, builds the description tree of
// every device that answers and keeps an inventory of what is present.
// Results are served over the REST API, streamed to WebSocket clients,
// published on MQTT and recorded in InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/api"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-upnp/internal/inventory"
	"github.com/nerrad567/gray-logic-upnp/internal/scanner"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/client"
	"github.com/nerrad567/gray-logic-upnp/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Gray Logic UPnP",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Best-effort flush on exit
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database and inventory
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	inv := inventory.NewRegistry(inventory.NewSQLiteRepository(db))
	inv.SetLogger(log)
	if refreshErr := inv.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading inventory: %w", refreshErr)
	}
	log.Info("inventory loaded", "devices", inv.GetStats().TotalDevices)

	// UPnP fetch pipeline
	upnpClient, err := client.New(cfg.Fetch, cfg.Discovery, log)
	if err != nil {
		return fmt.Errorf("creating UPnP client: %w", err)
	}
	defer func() {
		if closeErr := upnpClient.Close(); closeErr != nil {
			log.Error("error closing SSDP socket", "error", closeErr)
		}
	}()

	targets, err := scanner.ResolveTargets(upnpClient.Kinds, cfg.Discovery.Targets)
	if err != nil {
		return fmt.Errorf("resolving discovery targets: %w", err)
	}

	// MQTT (optional)
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	switch {
	case errors.Is(err, mqtt.ErrDisabled):
		log.Info("MQTT disabled")
		mqttClient = nil
	case err != nil:
		return fmt.Errorf("connecting to MQTT: %w", err)
	default:
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	// InfluxDB (optional)
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
		upnpClient.HTTP.SetObserver(influxClient.WriteFetch)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub is shared by the scanner and the API server.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	disc, err := upnpClient.Discoverer()
	if err != nil {
		return fmt.Errorf("opening SSDP searcher: %w", err)
	}

	scanOpts := []scanner.Option{
		scanner.WithLogger(log),
		scanner.WithBroadcaster(hub),
	}
	if mqttClient != nil {
		scanOpts = append(scanOpts, scanner.WithPublisher(mqttClient))
	}
	if influxClient != nil {
		scanOpts = append(scanOpts, scanner.WithMetrics(influxClient))
	}

	scanCfg := scanner.Config{
		Kinds:     targets,
		LostAfter: cfg.Discovery.LostAfter,
	}
	if cfg.Discovery.Enabled {
		scanCfg.Interval = time.Duration(cfg.Discovery.Interval) * time.Second
	} else {
		scanCfg.SkipStartupScan = true
		log.Info("periodic discovery disabled, scans run on request only")
	}
	scan := scanner.New(disc, inv, scanCfg, scanOpts...)

	if mqttClient != nil {
		topic := mqttClient.Topics().AllCommands()
		//nolint:gosec // QoS validated by config.Validate to 0-2
		if subErr := mqttClient.Subscribe(topic, byte(cfg.MQTT.QoS), scan.HandleCommand); subErr != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, subErr)
		}
	}

	srv, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Inventory: inv,
		Scanner:   scan,
		Kinds:     upnpClient.Kinds,
		MQTT:      mqttClient,
		DB:        db,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if startErr := scan.Start(ctx); startErr != nil {
		return fmt.Errorf("starting scanner: %w", startErr)
	}
	defer scan.Stop()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: scanner, API, InfluxDB, MQTT, SSDP, database.
	return nil
}

// loadConfig reads the config file named by GRAYLOGIC_CONFIG, or the
// default path. A missing default file falls back to built-in defaults.
func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()
	if os.Getenv("GRAYLOGIC_CONFIG") == "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), "(defaults)", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections. mqttClient and
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
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
