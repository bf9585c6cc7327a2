package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/cruise-data-etl/internal/config"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	publishAttempts = 3
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 2 * time.Second
)

// messageWriter is the subset of kafkago.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier announces written products on a Kafka topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer   messageWriter
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

// NewNotifier creates a Kafka producer for the configured product topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaProductTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{writer: w, logger: logger, attempts: publishAttempts, backoff: initialBackoff}
}

// Notify publishes the product sidecar, retrying with exponential backoff.
// Messages for the same cruise and product share a key, so they land on one
// partition in write order.
func (n *Notifier) Notify(ctx context.Context, meta products.Sidecar) error {
	msg, err := serializeToMessage(meta)
	if err != nil {
		return err
	}

	backoff := n.backoff
	for attempt := 1; ; attempt++ {
		err = n.writer.WriteMessages(ctx, msg)
		if err == nil {
			n.logger.Debug("product notification published", "key", string(msg.Key), "run_id", meta.RunID)
			return nil
		}
		if attempt >= n.attempts {
			break
		}
		n.logger.Warn("product notification failed, retrying",
			"key", string(msg.Key), "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("publish %s: %w", msg.Key, ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("publish %s after %d attempts: %w", msg.Key, n.attempts, err)
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a product sidecar into a Kafka message.
func serializeToMessage(meta products.Sidecar) (kafkago.Message, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize product sidecar: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(meta.Cruise + "/" + meta.Product),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "product", Value: []byte(meta.Product)},
			{Key: "generated_at", Value: []byte(meta.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
