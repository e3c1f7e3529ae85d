// Package notify delivers out-of-band messages such as password reset
// e-mails. The API never talks SMTP itself: in production messages are
// handed to a mail relay over MQTT, in development they are only logged.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/logging"
)

// Message is the JSON document published for the mail relay.
type Message struct {
	To          string    `json:"to"`
	From        string    `json:"from"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ContentType string    `json:"content_type"`
	SentAt      time.Time `json:"sent_at"`
}

// Publisher is the part of the MQTT client the relay notifier needs.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// ErrEmptyRecipient is returned when Send is called without an address.
var ErrEmptyRecipient = errors.New("notify: empty recipient")

// MQTTNotifier publishes each message to a relay topic.
type MQTTNotifier struct {
	pub   Publisher
	topic string
	from  string
	now   func() time.Time
}

// NewMQTTNotifier creates a notifier publishing to topic with the given
// sender address.
func NewMQTTNotifier(pub Publisher, topic, from string) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, topic: topic, from: from, now: time.Now}
}

// Send publishes the message. It fails if the broker is unreachable, so the
// caller can report the delivery failure.
func (n *MQTTNotifier) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := Message{
		To:          to,
		From:        n.from,
		Subject:     subject,
		Body:        body,
		ContentType: "text/html; charset=utf-8",
		SentAt:      n.now().UTC(),
	}
	if err := n.pub.PublishJSON(n.topic, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", n.topic, err)
	}
	return nil
}

// LogNotifier records that a message would have been sent. The body is not
// logged because it carries a live reset token.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send never fails.
func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	n.logger.Info("notification not delivered (log mode)",
		"to", logging.MaskEmail(to),
		"subject", subject,
		"body_bytes", len(body),
	)
	return nil
}
