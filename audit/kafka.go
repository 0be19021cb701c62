// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/danielhkuo/tally/metrics"
	"github.com/danielhkuo/tally/models"
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes records to a topic, keyed by entity id so one entity's
// history stays on one partition.
type KafkaSink struct {
	writer MessageWriter
	topic  string
}

// Delivery outcomes counted in metrics.KafkaMessagesPublished.
const (
	StatusQueued    = "queued"
	StatusDelivered = "delivered"
	StatusFailed    = "error"
)

// NewKafkaWriter builds the writer used in production. It is asynchronous:
// WriteMessages only queues, so a slow or unreachable broker never holds up
// the request that produced the record. Delivery is counted by Completion.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             DeliveryReport(topic),
	}
}

// DeliveryReport returns a kafka.Writer Completion callback that counts
// delivered and failed batches for topic.
func DeliveryReport(topic string) func(messages []kafka.Message, err error) {
	return func(messages []kafka.Message, err error) {
		status := StatusDelivered
		if err != nil {
			status = StatusFailed
			slog.Warn("audit events not delivered", "topic", topic, "count", len(messages), "error", err)
		}
		metrics.KafkaMessagesPublished.WithLabelValues(topic, status).Add(float64(len(messages)))
	}
}

func NewKafkaSink(writer MessageWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: writer, topic: topic}
}

// event is the wire shape of an audit message. Snapshots stay raw JSON.
type event struct {
	ID          string          `json:"id"`
	ActorID     string          `json:"actor_id"`
	ActorType   string          `json:"actor_type"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	OldSnapshot json.RawMessage `json:"old_snapshot,omitempty"`
	NewSnapshot json.RawMessage `json:"new_snapshot,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (s *KafkaSink) Record(ctx context.Context, rec *models.AuditRecord) error {
	data, err := json.Marshal(event{
		ID:          rec.ID,
		ActorID:     rec.ActorID,
		ActorType:   rec.ActorType,
		Action:      rec.Action,
		EntityType:  rec.EntityType,
		EntityID:    rec.EntityID,
		OldSnapshot: rec.OldSnapshot,
		NewSnapshot: rec.NewSnapshot,
		Timestamp:   rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(rec.EntityID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(rec.Action)},
			{Key: "entity_type", Value: []byte(rec.EntityType)},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		metrics.KafkaMessagesPublished.WithLabelValues(s.topic, StatusFailed).Inc()
		return fmt.Errorf("publish audit event: %w", err)
	}
	metrics.KafkaMessagesPublished.WithLabelValues(s.topic, StatusQueued).Inc()
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
