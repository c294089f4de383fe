package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/loopwalk/internal/core/domain"
)

// maxPendingAttempts bounds unacknowledged async attempt publishes.
const maxPendingAttempts = 256

// Subjects used for loop-search events.
const (
	SubjectAttemptsPrefix = "looproute.attempts."
	SubjectAttemptsAll    = "looproute.attempts.>"
	SubjectGenerated      = "looproute.generated"
)

// AttemptSubject returns the subject attempts for searchID are published on.
func AttemptSubject(searchID string) string {
	return SubjectAttemptsPrefix + searchID
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the loop-route streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream(
		nats.PublishAsyncMaxPending(maxPendingAttempts),
		nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
			slog.Warn("async publish failed", "subject", msg.Subject, "error", err)
		}),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "LOOP_ATTEMPTS",
			Subjects:  []string{SubjectAttemptsAll},
			Retention: nats.LimitsPolicy,
			MaxAge:    15 * time.Minute,
			Storage:   nats.MemoryStorage,
		},
		{
			Name:      "LOOP_GENERATED",
			Subjects:  []string{SubjectGenerated},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist; try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishAttempt hands the event to JetStream without waiting for the ack.
// Attempt events are progress hints; failed acks are only logged.
func (p *Publisher) PublishAttempt(ctx context.Context, event *domain.AttemptEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.PublishAsync(AttemptSubject(event.SearchID), data)
	return err
}

// PublishLoopGenerated publishes the search result and waits for the ack.
func (p *Publisher) PublishLoopGenerated(ctx context.Context, event *domain.LoopGenerated) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectGenerated, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
