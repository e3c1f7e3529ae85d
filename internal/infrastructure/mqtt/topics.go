package mqtt

import "fmt"

// Topic roots for the BudgetWise MQTT hierarchy.
const (
	// TopicPrefix is the base of every BudgetWise topic.
	TopicPrefix = "budgetwise"

	// TopicPrefixSystem carries process status (LWT, online/offline).
	TopicPrefixSystem = TopicPrefix + "/system"

	// TopicPrefixNotify carries outbound notifications for relay services.
	TopicPrefixNotify = TopicPrefix + "/notify"

	// TopicPrefixAuth carries security events for downstream consumers.
	TopicPrefixAuth = TopicPrefix + "/auth"
)

// Topics provides builders for BudgetWise MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.AuthEvent("login_failed")
//	// Returns: "budgetwise/auth/events/login_failed"
type Topics struct{}

// SystemStatus returns the retained status topic used for the LWT.
//
// Example: budgetwise/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// NotifyEmail returns the default topic for outbound e-mail messages.
//
// Example: budgetwise/notify/email
func (Topics) NotifyEmail() string {
	return TopicPrefixNotify + "/email"
}

// AuthEvent returns the topic for one kind of security event.
//
// Example: budgetwise/auth/events/login
func (Topics) AuthEvent(action string) string {
	return fmt.Sprintf("%s/events/%s", TopicPrefixAuth, action)
}

// AllAuthEvents returns a wildcard matching every security event topic.
//
// Example: budgetwise/auth/events/+
func (Topics) AllAuthEvents() string {
	return TopicPrefixAuth + "/events/+"
}
