package config

import "time"

// Config is the whole BudgetWise configuration tree. Field tags mirror the
// keys in configs/config.yaml.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Security SecurityConfig `yaml:"security"`
	Notify   NotifyConfig   `yaml:"notify"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Seed     SeedConfig     `yaml:"seed"`
}

// AppConfig contains application identity settings.
type AppConfig struct {
	Name string `yaml:"name"`

	// FrontendBaseURL is the origin of the web UI. Password reset links
	// point at {FrontendBaseURL}/reset-password?token=...
	FrontendBaseURL string `yaml:"frontend_base_url"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT      JWTConfig      `yaml:"jwt"`
	Password PasswordConfig `yaml:"password"`
	Reset    ResetConfig    `yaml:"reset"`
}

// JWTConfig contains session token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`

	// TokenTTL is the session token lifetime in minutes. Default: 1440 (24h).
	TokenTTL int `yaml:"token_ttl"`
}

// PasswordConfig contains the Argon2id work factor.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory"`      // KiB
	Iterations  uint32 `yaml:"iterations"`  // passes over memory
	Parallelism uint8  `yaml:"parallelism"` // lanes
}

// ResetConfig contains password reset token settings.
type ResetConfig struct {
	// TokenTTL is the reset token lifetime in minutes. Default: 60.
	TokenTTL int `yaml:"token_ttl"`

	// SweepInterval is how often expired reset tokens are purged, in minutes.
	SweepInterval int `yaml:"sweep_interval"`
}

// NotifyConfig selects how out-of-band notifications (reset e-mails) are sent.
type NotifyConfig struct {
	// Mode is "log" (development, nothing leaves the process) or "mqtt"
	// (published to a mail relay topic).
	Mode  string `yaml:"mode"`
	Topic string `yaml:"topic"`
	From  string `yaml:"from"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SeedConfig controls first-boot account seeding.
type SeedConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminEmail    string `yaml:"admin_email"`
}

// GetReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}

// TokenTTL returns the session token lifetime as a Duration.
func (s SecurityConfig) TokenTTL() time.Duration {
	return time.Duration(s.JWT.TokenTTL) * time.Minute
}

// ResetTTL returns the reset token lifetime as a Duration.
func (s SecurityConfig) ResetTTL() time.Duration {
	return time.Duration(s.Reset.TokenTTL) * time.Minute
}

// ResetSweepInterval returns how often expired reset tokens are purged.
func (s SecurityConfig) ResetSweepInterval() time.Duration {
	if s.Reset.SweepInterval <= 0 {
		return 15 * time.Minute //nolint:mnd // default sweep cadence
	}
	return time.Duration(s.Reset.SweepInterval) * time.Minute
}
