// Package kafka consumes report submissions and publishes insight summaries.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/config"
	"github.com/couchcryptid/marine-report-insights/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const defaultFlushInterval = 500 * time.Millisecond

// Reader consumes the report-submitted topic as part of a consumer group.
// It implements pipeline.BatchSource.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer for the configured source topic. Offsets
// are committed explicitly through RawEvent.Commit.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaSourceTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	interval := cfg.BatchFlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Reader{reader: r, flushInterval: interval, logger: logger}
}

// ReadBatch collects up to batchSize messages, returning early once the
// flush interval has elapsed. An empty batch with a nil error means nothing
// arrived in time.
func (r *Reader) ReadBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	batch := make([]domain.RawEvent, 0, batchSize)
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(fetchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return batch, nil
			}
			return batch, fmt.Errorf("fetch message: %w", err)
		}
		raw := mapMessageToRawEvent(msg)
		raw.Commit = r.committer(msg)
		batch = append(batch, raw)
	}
	return batch, nil
}

func (r *Reader) committer(msg kafkago.Message) func(context.Context) error {
	return func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
}

// Close leaves the consumer group.
func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToRawEvent(msg kafkago.Message) domain.RawEvent {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawEvent{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
