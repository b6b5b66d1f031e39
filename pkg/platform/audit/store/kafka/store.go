// Package kafka forwards audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "titlechain/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client used here.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store implements audit.Store by producing JSON records keyed by wallet.
type Store struct {
	producer Producer
	topic    string
}

// New creates a Kafka-backed audit store.
func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

// Append produces the event and waits for the broker acknowledgement.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	event = event.Prepare(time.Now())
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.Publish(ctx, event.Wallet, payload, string(event.Action))
}

// Publish produces an already-encoded payload. Used by the outbox relay.
func (s *Store) Publish(ctx context.Context, key string, payload []byte, action string) error {
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(action)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event to %s: %w", s.topic, err)
	}
	return nil
}
