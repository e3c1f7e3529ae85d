package config

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// Notification modes.
const (
	NotifyLog  = "log"
	NotifyMQTT = "mqtt"
)

// minJWTSecretLength keeps HS256 keys at least as long as the digest.
const minJWTSecretLength = 32

// Validate reports every invalid setting at once, keyed by its YAML path.
func (c *Config) Validate() error {
	errs := validation.Errors{}
	check := func(key string, value any, rules ...validation.Rule) {
		errs[key] = validation.Validate(value, rules...)
	}

	check("app.frontend_base_url", c.App.FrontendBaseURL, validation.Required)
	check("database.path", c.Database.Path, validation.Required)
	check("api.port", c.API.Port, validation.Required, validation.Min(1), validation.Max(65535))

	check("security.jwt.secret", c.Security.JWT.Secret,
		validation.Required.Error("is required (set BUDGETWISE_JWT_SECRET)"),
		validation.Length(minJWTSecretLength, 0))
	check("security.jwt.token_ttl", c.Security.JWT.TokenTTL, validation.Required, validation.Min(1))
	check("security.reset.token_ttl", c.Security.Reset.TokenTTL, validation.Required, validation.Min(1))
	check("security.password.memory", c.Security.Password.Memory, validation.Required)
	check("security.password.iterations", c.Security.Password.Iterations, validation.Required)
	check("security.password.parallelism", c.Security.Password.Parallelism, validation.Required)

	check("notify.mode", c.Notify.Mode, validation.Required, validation.In(NotifyLog, NotifyMQTT))
	if c.Notify.Mode == NotifyMQTT {
		check("notify.topic", c.Notify.Topic, validation.Required)
		check("mqtt.broker.host", c.MQTT.Broker.Host, validation.Required)
		check("mqtt.qos", c.MQTT.QoS, validation.Min(0), validation.Max(2))
	}

	return errs.Filter()
}
