package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/criapa/DOE-PE/internal/logger"
	"github.com/criapa/DOE-PE/internal/scan"
)

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes one message per high-impact finding, keyed by a
// fresh UUID, with run_id and category headers.
type KafkaPublisher struct {
	writer messageWriter
	seen   *SeenCache
	log    *slog.Logger
	now    func() time.Time
}

// NewKafkaPublisher connects a writer to topic on brokers. Findings already
// published in the last 24 hours are skipped.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     brokers,
		Topic:       topic,
		MaxAttempts: 3,
	})
	return newKafkaPublisher(writer, NewSeenCache(10000, 24*time.Hour), log)
}

func newKafkaPublisher(w messageWriter, seen *SeenCache, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		seen:   seen,
		log:    logger.OrDiscard(log),
		now:    time.Now,
	}
}

// Publish sends the findings in one batch
func (p *KafkaPublisher) Publish(ctx context.Context, runID string, findings []scan.Finding) (int, error) {
	msgs := make([]kafka.Message, 0, len(findings))
	keys := make([]string, 0, len(findings))

	for _, f := range findings {
		key := findingKey(f)
		if p.seen.Seen(key) {
			p.log.Debug("alert already sent", slog.String("finding", key))
			continue
		}

		m := NewMessage(runID, f, p.now())
		payload, err := json.Marshal(m)
		if err != nil {
			return 0, fmt.Errorf("marshal alert: %w", err)
		}

		msgs = append(msgs, kafka.Message{
			Key:   []byte(m.ID),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(runID)},
				{Key: "category", Value: []byte(f.Category)},
			},
			Time: m.CreatedAt,
		})
		keys = append(keys, key)
	}

	if len(msgs) == 0 {
		return 0, nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish %d alerts: %w", len(msgs), err)
	}
	for _, k := range keys {
		p.seen.Mark(k)
	}

	p.log.Info("alerts published", slog.String("run_id", runID), slog.Int("count", len(msgs)))
	return len(msgs), nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
