package kafka

import (
	"context"
	"log/slog"
	"sort"

	"github.com/couchcryptid/marine-report-insights/internal/config"
	"github.com/couchcryptid/marine-report-insights/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes insight summaries to the sink topic.
// It implements pipeline.BatchSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a producer for the configured sink topic. Messages are
// keyed by report id, so the hash balancer keeps one report on one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// WriteBatch publishes all events in a single WriteMessages call.
func (w *Writer) WriteBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msgs[i] = toMessage(events[i])
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending writes.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// toMessage converts an output event. Headers are sorted by key so the
// wire form is stable.
func toMessage(event domain.OutputEvent) kafkago.Message {
	keys := make([]string, 0, len(event.Headers))
	for k := range event.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(event.Headers[k])})
	}
	return kafkago.Message{Key: event.Key, Value: event.Value, Headers: headers}
}
