// Command budgetwise serves the BudgetWise HTTP API.
//
// Startup order is config, logger, SQLite (migrated and seeded), the
// optional MQTT and InfluxDB links, then the API listener. Shutdown on
// SIGINT or SIGTERM unwinds the same steps in reverse.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/AtulPatel1221/budgetwise-app/migrations"

	"github.com/AtulPatel1221/budgetwise-app/internal/api"
	"github.com/AtulPatel1221/budgetwise-app/internal/audit"
	"github.com/AtulPatel1221/budgetwise-app/internal/auth"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/config"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/database"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/influxdb"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/logging"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/mqtt"
	"github.com/AtulPatel1221/budgetwise-app/internal/notify"
)

// Stamped by the release build:
//
//	go build -ldflags "-X main.version=1.2.0 -X main.commit=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath    = "configs/config.yaml"
	startupHealthTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "budgetwise: %v\n", err)
		os.Exit(1)
	}
}

// teardown collects release functions as resources come up and runs them
// newest first.
type teardown struct {
	log   *logging.Logger
	steps []probe
}

func (t *teardown) add(what string, release func() error) {
	t.steps = append(t.steps, probe{what, func(context.Context) error { return release() }})
}

func (t *teardown) run() {
	for i := len(t.steps) - 1; i >= 0; i-- {
		step := t.steps[i]
		t.log.Info("releasing " + step.name)
		if err := step.fn(context.Background()); err != nil {
			t.log.Error("release failed", "resource", step.name, "error", err)
		}
	}
}

// run starts every component and blocks until ctx ends. A clean shutdown
// returns nil.
func run(ctx context.Context) error {
	boot := logging.Default()
	boot.Info("BudgetWise starting", "version", version, "commit", commit, "build_date", date)

	path := getConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", path, "log_level", cfg.Logging.Level, "notify_mode", cfg.Notify.Mode)

	td := &teardown{log: log}
	defer td.run()

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	td.add("database", db.Close)
	log.Info("database ready", "path", cfg.Database.Path)

	broker, err := connectBroker(cfg, log)
	if err != nil {
		return err
	}
	if broker != nil {
		td.add("MQTT connection", broker.Close)
	}

	telemetry, err := connectTelemetry(cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if telemetry != nil {
		td.add("InfluxDB writer", telemetry.Close)
	}

	server, err := buildServer(ctx, cfg, db, broker, telemetry, log)
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	// Registered last so it drains the event queue before the links close.
	td.add("API server", server.Close)

	checkCtx, cancel := context.WithTimeout(ctx, startupHealthTimeout)
	defer cancel()
	if err := healthCheck(checkCtx, db, broker, telemetry); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("ready", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port), "tls", cfg.API.TLS.Enabled)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("running migrations: %w", err), db.Close())
	}
	return db, nil
}

// connectBroker dials MQTT when reset mail is relayed through it. In log
// mode there is no broker link and the result is nil.
func connectBroker(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if cfg.Notify.Mode != config.NotifyMQTT {
		return nil, nil
	}
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// connectTelemetry returns nil when InfluxDB is disabled.
func connectTelemetry(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("telemetry disabled")
		return nil, nil
	}
	client, err := influxdb.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("telemetry write failed", "error", err)
	})
	log.Info("telemetry enabled", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return client, nil
}

// buildServer wires the credential flows and seeds the first admin.
func buildServer(ctx context.Context, cfg *config.Config, db *database.DB, broker *mqtt.Client, telemetry *influxdb.Client, log *logging.Logger) (*api.Server, error) {
	users := auth.NewUserRepository(db.DB)
	hasher := auth.NewHasher(auth.PasswordParams{
		Memory:      cfg.Security.Password.Memory,
		Iterations:  cfg.Security.Password.Iterations,
		Parallelism: cfg.Security.Password.Parallelism,
	})

	tokens, err := auth.NewTokenService(cfg.Security.JWT.Secret, cfg.Security.TokenTTL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	svc, err := auth.NewService(auth.ServiceConfig{
		Users:           users,
		Resets:          auth.NewResetRepository(db.DB),
		Hasher:          hasher,
		Tokens:          tokens,
		Notifier:        newNotifier(cfg.Notify, broker, log),
		ResetTTL:        cfg.Security.ResetTTL(),
		FrontendBaseURL: cfg.App.FrontendBaseURL,
		AppName:         cfg.App.Name,
		Logger:          log.With("component", "auth").Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating auth service: %w", err)
	}

	password, err := auth.SeedAdmin(ctx, users, hasher, cfg.Seed.AdminUsername, cfg.Seed.AdminEmail, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("seeding admin: %w", err)
	}
	if password != "" {
		announceSeedPassword(seedNotice, cfg.Seed.AdminUsername, password)
	}

	deps := api.Deps{
		Config:             cfg.API,
		Logger:             log,
		DB:                 db,
		Service:            svc,
		Users:              users,
		Authenticator:      auth.NewAuthenticator(tokens, users, log.Logger),
		AuditRepo:          audit.NewSQLiteRepository(db.DB),
		ResetSweepInterval: cfg.Security.ResetSweepInterval(),
		Version:            version,
	}
	// A nil *Client stored in an interface would not compare equal to nil.
	if broker != nil {
		deps.Events = broker
	}
	if telemetry != nil {
		deps.Telemetry = telemetry
	}

	server, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	return server, nil
}

// newNotifier picks the reset mail transport: the MQTT relay when it is
// both configured and connected, otherwise the log.
func newNotifier(cfg config.NotifyConfig, broker *mqtt.Client, log *logging.Logger) auth.Notifier {
	if cfg.Mode == config.NotifyMQTT && broker != nil {
		log.Info("reset mail via MQTT relay", "topic", cfg.Topic)
		return notify.NewMQTTNotifier(broker, cfg.Topic, cfg.From)
	}
	log.Warn("reset mail is logged only; set notify.mode to mqtt to deliver it")
	return notify.NewLogNotifier(log.With("component", "notify").Logger)
}

// seedNotice receives the one-time seed admin password. It bypasses the
// structured logger so the password never lands in shipped logs.
var seedNotice io.Writer = os.Stderr

func announceSeedPassword(w io.Writer, username, password string) {
	fmt.Fprintf(w, "\nInitial admin account %q created.\nPassword: %s\nChange it after the first login; it will not be shown again.\n\n", username, password)
}

// getConfigPath honours BUDGETWISE_CONFIG.
func getConfigPath() string {
	if p := os.Getenv("BUDGETWISE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// probe is a named step run against a context: a health check, or a
// release function in teardown.
type probe struct {
	name string
	fn   func(context.Context) error
}

// healthCheck probes each component that is up. broker and telemetry may
// be nil.
func healthCheck(ctx context.Context, db *database.DB, broker *mqtt.Client, telemetry *influxdb.Client) error {
	probes := []probe{{"database", db.HealthCheck}}
	if broker != nil {
		probes = append(probes, probe{"mqtt", broker.HealthCheck})
	}
	if telemetry != nil {
		probes = append(probes, probe{"influxdb", telemetry.HealthCheck})
	}

	for _, p := range probes {
		if err := p.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}
