//go:build integration

package mqtt

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/config"
)

// Integration tests need a broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	return cfg
}

func connect(t *testing.T, clientID string) *Client {
	t.Helper()
	client, err := Connect(integrationConfig(clientID))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // test cleanup
	return client
}

func TestIntegration_ConnectAndHealth(t *testing.T) {
	client := connect(t, "budgetwise-int-health")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.HealthCheck(t.Context()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := integrationConfig("budgetwise-int-refused")
	cfg.Broker.Port = 19998

	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connect(t, "budgetwise-int-sub-track")

	topics := []string{
		"budgetwise/int/test/topic2",
		"budgetwise/int/test/topic1",
		"budgetwise/int/test/topic1",
	}
	handler := func(string, []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	want := []string{"budgetwise/int/test/topic1", "budgetwise/int/test/topic2"}
	if got := client.Subscriptions(); !slices.Equal(got, want) {
		t.Errorf("Subscriptions() = %v, want %v", got, want)
	}
}

func TestIntegration_PublishJSONRoundtrip(t *testing.T) {
	pub := connect(t, "budgetwise-int-pub")
	sub := connect(t, "budgetwise-int-sub")

	topic := Topics{}.AuthEvent("int_roundtrip")
	received := make(chan map[string]string, 1)
	var once sync.Once

	err := sub.Subscribe(Topics{}.AllAuthEvents(), 1, func(got string, payload []byte) error {
		if got != topic {
			return nil
		}
		var msg map[string]string
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		once.Do(func() { received <- msg })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := pub.PublishJSON(topic, map[string]string{"user_id": "usr-1"}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg["user_id"] != "usr-1" {
			t.Errorf("received %v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}
}
