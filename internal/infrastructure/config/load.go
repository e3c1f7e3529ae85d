package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// dotenvPath is the .env file consulted by Load. A missing file is not an error.
var dotenvPath = ".env"

// Load builds the configuration in layers, each overriding the last:
// built-in defaults, the YAML file at path, a local .env file and finally
// BUDGETWISE_* environment variables. The result is validated before it is
// returned.
//
// Unknown YAML keys are rejected so a misspelt setting fails loudly instead
// of silently keeping its default.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	// godotenv.Load never replaces variables the process already has.
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", dotenvPath, err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	const frontend = "http://localhost:5173"

	var cfg Config
	cfg.App.Name = "BudgetWise"
	cfg.App.FrontendBaseURL = frontend

	cfg.Database = DatabaseConfig{Path: "./data/budgetwise.db", WALMode: true, BusyTimeout: 5}

	cfg.API.Host, cfg.API.Port = "0.0.0.0", 8080
	cfg.API.Timeouts = APITimeoutConfig{Read: 30, Write: 30, Idle: 60}
	cfg.API.CORS.AllowedOrigins = []string{frontend}

	cfg.Security.JWT.TokenTTL = 24 * 60
	cfg.Security.Password = PasswordConfig{Memory: 64 * 1024, Iterations: 3, Parallelism: 1}
	cfg.Security.Reset = ResetConfig{TokenTTL: 60, SweepInterval: 15}

	cfg.Notify = NotifyConfig{Mode: NotifyLog, Topic: "budgetwise/notify/email", From: "no-reply@budgetwise.local"}

	cfg.MQTT.Broker = MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "budgetwise-core"}
	cfg.MQTT.QoS = 1
	cfg.MQTT.Reconnect = MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60}

	cfg.Logging = LoggingConfig{Level: "info", Format: "json", Output: "stdout"}
	return &cfg
}
