package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validJWTSecret = "0123456789abcdef0123456789abcdef"

// writeConfig stores content as config.yaml in a fresh directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
app:
  name: "BudgetWise Test"
  frontend_base_url: "https://app.example.com"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "0.0.0.0"
  port: 8080
security:
  jwt:
    secret: "0123456789abcdef0123456789abcdef"
    token_ttl: 30
  reset:
    token_ttl: 10
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.FrontendBaseURL != "https://app.example.com" {
		t.Errorf("App.FrontendBaseURL = %q, want %q", cfg.App.FrontendBaseURL, "https://app.example.com")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if got := cfg.Security.TokenTTL(); got != 30*time.Minute {
		t.Errorf("Security.TokenTTL() = %v, want 30m", got)
	}
	if got := cfg.Security.ResetTTL(); got != 10*time.Minute {
		t.Errorf("Security.ResetTTL() = %v, want 10m", got)
	}

	// Unset sections keep their defaults.
	if cfg.Notify.Mode != "log" {
		t.Errorf("Notify.Mode = %q, want %q", cfg.Notify.Mode, "log")
	}
	if cfg.Security.Password.Iterations != 3 {
		t.Errorf("Security.Password.Iterations = %d, want 3", cfg.Security.Password.Iterations)
	}
}

func TestLoad_Unreadable(t *testing.T) {
	tests := map[string]string{
		"missing file": filepath.Join(t.TempDir(), "absent.yaml"),
		"broken yaml":  writeConfig(t, "api: [port: 1"),
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(path); err == nil {
				t.Errorf("Load(%s) = nil error", path)
			}
		})
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
api:
  port: 8080
security:
  jwt:
    secret: "short"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("Load() error = %v, want short jwt secret reported", err)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	t.Setenv("BUDGETWISE_JWT_SECRET", validJWTSecret)
	configPath := writeConfig(t, `
database:
  paht: "/tmp/test.db"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "paht") {
		t.Errorf("Load() error = %v, want unknown field rejected", err)
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	t.Setenv("BUDGETWISE_JWT_SECRET", validJWTSecret)

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 8080 || cfg.Notify.Mode != NotifyLog {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_DotenvSuppliesSecret(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envPath, []byte("BUDGETWISE_JWT_SECRET=dotenv-secret-key-at-least-32-chars\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	old := dotenvPath
	dotenvPath = envPath
	t.Cleanup(func() {
		dotenvPath = old
		os.Unsetenv("BUDGETWISE_JWT_SECRET") //nolint:errcheck
	})

	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.JWT.Secret != "dotenv-secret-key-at-least-32-chars" {
		t.Errorf("Security.JWT.Secret = %q, want value from .env", cfg.Security.JWT.Secret)
	}
}

func TestLoad_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envPath, []byte("BUDGETWISE_JWT_SECRET=dotenv-secret-key-at-least-32-chars\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	old := dotenvPath
	dotenvPath = envPath
	t.Cleanup(func() { dotenvPath = old })
	t.Setenv("BUDGETWISE_JWT_SECRET", "environment-secret-at-least-32-chars")

	cfg, err := Load(writeConfig(t, "database:\n  path: /tmp/test.db\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.JWT.Secret != "environment-secret-at-least-32-chars" {
		t.Errorf("Security.JWT.Secret = %q, want environment value", cfg.Security.JWT.Secret)
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = validJWTSecret
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing JWT secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: true,
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "zero token ttl",
			mutate:  func(c *Config) { c.Security.JWT.TokenTTL = 0 },
			wantErr: true,
		},
		{
			name:    "zero reset ttl",
			mutate:  func(c *Config) { c.Security.Reset.TokenTTL = 0 },
			wantErr: true,
		},
		{
			name:    "zero argon memory",
			mutate:  func(c *Config) { c.Security.Password.Memory = 0 },
			wantErr: true,
		},
		{
			name:    "unknown notify mode",
			mutate:  func(c *Config) { c.Notify.Mode = "smtp" },
			wantErr: true,
		},
		{
			name:    "mqtt notify mode",
			mutate:  func(c *Config) { c.Notify.Mode = "mqtt" },
			wantErr: false,
		},
		{
			name: "mqtt notify mode with invalid QoS",
			mutate: func(c *Config) {
				c.Notify.Mode = "mqtt"
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "mqtt notify mode without broker host",
			mutate: func(c *Config) {
				c.Notify.Mode = "mqtt"
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name:    "missing frontend base url",
			mutate:  func(c *Config) { c.App.FrontendBaseURL = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAll(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Path = ""
	cfg.API.Port = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}
	for _, key := range []string{"database.path", "api.port"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Validate() error = %q, missing %s", err, key)
		}
	}
}

func TestDurations(t *testing.T) {
	var c Config
	c.API.Timeouts = APITimeoutConfig{Read: 30, Write: 45, Idle: 60}
	c.Security.JWT.TokenTTL = 90
	c.Security.Reset.TokenTTL = 20

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"read", c.API.GetReadTimeout(), 30 * time.Second},
		{"write", c.API.GetWriteTimeout(), 45 * time.Second},
		{"idle", c.API.GetIdleTimeout(), time.Minute},
		{"token", c.Security.TokenTTL(), 90 * time.Minute},
		{"reset", c.Security.ResetTTL(), 20 * time.Minute},
		{"sweep default", c.Security.ResetSweepInterval(), 15 * time.Minute},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestApplyEnvOverrides_IgnoresBadPort(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("BUDGETWISE_API_PORT", "eighty")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default kept", cfg.API.Port)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		env   string
		value string
		got   func(*Config) any
		want  any
	}{
		{"BUDGETWISE_DATABASE_PATH", "/custom/path.db", func(c *Config) any { return c.Database.Path }, "/custom/path.db"},
		{"BUDGETWISE_API_HOST", "127.0.0.1", func(c *Config) any { return c.API.Host }, "127.0.0.1"},
		{"BUDGETWISE_API_PORT", "9090", func(c *Config) any { return c.API.Port }, 9090},
		{"BUDGETWISE_FRONTEND_BASE_URL", "https://budget.example.com", func(c *Config) any { return c.App.FrontendBaseURL }, "https://budget.example.com"},
		{"BUDGETWISE_NOTIFY_MODE", "mqtt", func(c *Config) any { return c.Notify.Mode }, "mqtt"},
		{"BUDGETWISE_MQTT_HOST", "broker.internal", func(c *Config) any { return c.MQTT.Broker.Host }, "broker.internal"},
		{"BUDGETWISE_MQTT_USERNAME", "relay", func(c *Config) any { return c.MQTT.Auth.Username }, "relay"},
		{"BUDGETWISE_MQTT_PASSWORD", "relay-pw", func(c *Config) any { return c.MQTT.Auth.Password }, "relay-pw"},
		{"BUDGETWISE_INFLUXDB_TOKEN", "influx-token", func(c *Config) any { return c.InfluxDB.Token }, "influx-token"},
		{"BUDGETWISE_JWT_SECRET", "jwt-secret", func(c *Config) any { return c.Security.JWT.Secret }, "jwt-secret"},
	}
	if len(tests) != len(envBindings) {
		t.Fatalf("%d cases for %d bindings", len(tests), len(envBindings))
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			if got := tt.got(cfg); got != tt.want {
				t.Errorf("%s: got %v, want %v", tt.env, got, tt.want)
			}
		})
	}
}

func TestApplyEnvOverrides_EmptyIgnored(t *testing.T) {
	t.Setenv("BUDGETWISE_DATABASE_PATH", "")
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if cfg.Database.Path != defaultConfig().Database.Path {
		t.Errorf("Database.Path = %q, want default kept", cfg.Database.Path)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = validJWTSecret

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults plus a secret should validate: %v", err)
	}
	if cfg.Security.TokenTTL() != 24*time.Hour || cfg.Security.ResetTTL() != time.Hour {
		t.Errorf("TTLs = %v / %v, want 24h / 1h", cfg.Security.TokenTTL(), cfg.Security.ResetTTL())
	}
	if cfg.Notify.Mode != NotifyLog {
		t.Errorf("Notify.Mode = %q, want log", cfg.Notify.Mode)
	}
}
