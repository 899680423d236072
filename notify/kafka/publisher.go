// Package kafka publishes post-commit notifications to a Kafka topic, for
// downstream consumers handling the actual customer messaging.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/warp/ledger-engine/ledger"
)

// event is the wire form of one notification.
type event struct {
	Owner      string    `json:"owner"`
	AccountID  string    `json:"account_id"`
	Amount     string    `json:"amount"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Notify publishes one notification, keyed by account id so per-account
// ordering survives partitioning.
func (p *Publisher) Notify(ctx context.Context, n ledger.Notification) error {
	data, err := json.Marshal(event{
		Owner:      n.Owner,
		AccountID:  string(n.AccountID),
		Amount:     n.Amount.String(),
		Kind:       string(n.Kind),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.AccountID),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ ledger.Notifier = (*Publisher)(nil)
