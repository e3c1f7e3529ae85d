// Package mqtt wraps the Paho client for the BudgetWise broker link.
//
// The API only publishes: reset mails go to the relay topic and every
// security event is mirrored under budgetwise/auth/events/. Subscriptions
// exist for operator tooling (budgetwise-admin watch-mail) and are restored
// after a reconnect. A retained online/offline status, backed by the Last
// Will, lives on budgetwise/system/status.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	err = client.PublishJSON(mqtt.Topics{}.AuthEvent("login"), event)
//
// Enable broker TLS anywhere but localhost.
package mqtt
