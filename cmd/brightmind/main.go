// BrightMind backend - IoT device management platform.
//
// This is the main entry point for the BrightMind backend: account
// management with role-based access, installations, rooms, devices with
// value history, live updates over WebSocket, and optional MQTT ingest
// with an InfluxDB history mirror.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/eyamastour/backend-BrightMind/migrations"

	"github.com/eyamastour/backend-BrightMind/internal/api"
	"github.com/eyamastour/backend-BrightMind/internal/audit"
	"github.com/eyamastour/backend-BrightMind/internal/auth"
	"github.com/eyamastour/backend-BrightMind/internal/device"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/config"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/database"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/influxdb"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/logging"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/mqtt"
	"github.com/eyamastour/backend-BrightMind/internal/ingest"
	"github.com/eyamastour/backend-BrightMind/internal/installation"
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

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting BrightMind backend",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and migrate
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	userRepo := auth.NewUserRepository(db.DB)
	accessRepo := auth.NewAccessRepository(db.DB)
	installationRepo := installation.NewRepository(db.DB)
	roomRepo := installation.NewRoomRepository(db.DB)
	deviceRepo := device.NewRepository(db.DB)
	historyRepo := device.NewHistoryRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// InfluxDB history mirror (optional)
	var recorder device.Recorder
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			influxClient.Close()
		}()
		influxClient.OnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Device service: the single mutation path for REST and MQTT.
	// The broadcaster is wired once the API server exists.
	deviceSvc := device.NewService(deviceRepo, historyRepo, recorder, nil, log)

	// MQTT value ingest (optional)
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	switch {
	case errors.Is(err, mqtt.ErrDisabled):
		log.Info("MQTT ingest disabled")
	case err != nil:
		return fmt.Errorf("connecting to MQTT: %w", err)
	default:
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		if _, attachErr := ingest.Attach(mqttClient, deviceSvc, log); attachErr != nil {
			return fmt.Errorf("attaching MQTT ingest: %w", attachErr)
		}
		log.Info("MQTT ingest attached",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)
	}

	// API server
	srv, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WS,
		Security:      cfg.Security,
		Logger:        log,
		Users:         userRepo,
		Access:        accessRepo,
		Mailer:        &auth.LogMailer{Log: log},
		Installations: installationRepo,
		Rooms:         roomRepo,
		Devices:       deviceRepo,
		History:       historyRepo,
		DeviceService: deviceSvc,
		Audit:         auditRepo,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	deviceSvc.SetBroadcaster(srv)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server listening",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
	)

	if err := healthCheck(ctx, db, srv, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BRIGHTMIND_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BRIGHTMIND_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all started components. Optional clients may be nil.
func healthCheck(ctx context.Context, db *database.DB, srv *api.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := srv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
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
