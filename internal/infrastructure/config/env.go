package config

import (
	"os"
	"strconv"
)

// envBindings maps BUDGETWISE_* variables onto configuration fields.
// Empty variables are ignored.
var envBindings = []struct {
	name string
	set  func(*Config, string)
}{
	{"BUDGETWISE_DATABASE_PATH", func(c *Config, v string) { c.Database.Path = v }},
	{"BUDGETWISE_API_HOST", func(c *Config, v string) { c.API.Host = v }},
	{"BUDGETWISE_API_PORT", func(c *Config, v string) {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}},
	{"BUDGETWISE_FRONTEND_BASE_URL", func(c *Config, v string) { c.App.FrontendBaseURL = v }},
	{"BUDGETWISE_NOTIFY_MODE", func(c *Config, v string) { c.Notify.Mode = v }},
	{"BUDGETWISE_MQTT_HOST", func(c *Config, v string) { c.MQTT.Broker.Host = v }},
	{"BUDGETWISE_MQTT_USERNAME", func(c *Config, v string) { c.MQTT.Auth.Username = v }},
	{"BUDGETWISE_MQTT_PASSWORD", func(c *Config, v string) { c.MQTT.Auth.Password = v }},
	{"BUDGETWISE_INFLUXDB_TOKEN", func(c *Config, v string) { c.InfluxDB.Token = v }},
	{"BUDGETWISE_JWT_SECRET", func(c *Config, v string) { c.Security.JWT.Secret = v }},
}

func applyEnvOverrides(cfg *Config) {
	for _, b := range envBindings {
		if v, ok := os.LookupEnv(b.name); ok && v != "" {
			b.set(cfg, v)
		}
	}
}
