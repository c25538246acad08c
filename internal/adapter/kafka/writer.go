// Package kafka publishes pipeline audit reports to a Kafka topic for
// offline review. The sink is optional; a nil *Sink is a no-op.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hurricane-panel/internal/config"
)

// Sink produces audit report messages to a Kafka topic.
// It implements pipeline.AuditSink.
type Sink struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewSink creates a Kafka producer for the audit topic. Returns nil when
// no brokers are configured, which disables auditing.
func NewSink(cfg *config.Settings, logger *slog.Logger) *Sink {
	if len(cfg.AuditBrokers) == 0 {
		return nil
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.AuditBrokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Sink{writer: w, logger: logger}
}

// Publish serializes one report and writes it keyed by kind, so all
// reports of one kind land on the same partition in order.
func (s *Sink) Publish(ctx context.Context, kind string, payload any) error {
	if s == nil {
		return nil
	}
	msg, err := reportMessage(kind, payload, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, msg)
}

// reportMessage marshals a report into a Kafka message keyed by kind.
func reportMessage(kind string, payload any, emittedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s: %w", kind, err)
	}
	return kafkago.Message{
		Key:   []byte(kind),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_kind", Value: []byte(kind)},
			{Key: "emitted_at", Value: []byte(emittedAt.Format(time.RFC3339))},
		},
	}, nil
}

func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	return s.writer.Close()
}
