package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"passport/internal/passport/models"
)

// LogSink writes each transition as a structured log line.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, batch []models.Transition) error {
	for _, t := range batch {
		attrs := []any{
			"transition", string(t.Kind),
			"item_id", t.ItemID.String(),
			"passport_id", t.PassportID.String(),
			"state", string(t.State),
			"actor_id", t.ActorID.String(),
		}
		if t.RevisionID != nil {
			attrs = append(attrs, "revision_id", t.RevisionID.String())
		}
		s.logger.InfoContext(ctx, "item transition", attrs...)
	}
	return nil
}

// Producer is the subset of *kgo.Client the Kafka sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink publishes transitions as JSON records keyed by item ID, so every
// change to one item lands on the same partition in order.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Deliver(ctx context.Context, batch []models.Transition) error {
	records := make([]*kgo.Record, 0, len(batch))
	for _, t := range batch {
		value, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode transition: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: s.topic,
			Key:   []byte(t.ItemID.String()),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "transition", Value: []byte(t.Kind)},
				{Key: "passport_id", Value: []byte(t.PassportID.String())},
			},
			Timestamp: t.At,
		})
	}
	if err := s.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce transitions: %w", err)
	}
	return nil
}

// Fanout delivers to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Deliver(ctx context.Context, batch []models.Transition) error {
	var errs []error
	for _, s := range f {
		if err := s.Deliver(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
