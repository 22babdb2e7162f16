// Package pipeline builds report insights and runs the Kafka enrichment loop.
package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchSource reads up to batchSize submission events.
type BatchSource interface {
	ReadBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a submission event into an insights event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchSink publishes insights events.
type BatchSink interface {
	WriteBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline consumes report submissions, enriches each report and publishes
// a summary event per report.
type Pipeline struct {
	source      BatchSource
	transformer Transformer
	sink        BatchSink
	logger      *slog.Logger
	metrics     *observability.Metrics
	published   atomic.Bool
	batchSize   int
}

// New creates a Pipeline.
func New(source BatchSource, t Transformer, sink BatchSink, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		source:      source,
		transformer: t,
		sink:        sink,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Published reports whether at least one batch reached the sink.
func (p *Pipeline) Published() bool {
	return p.published.Load()
}

// Run consumes batches until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for ctx.Err() == nil {
		if !p.processBatch(ctx, &backoff) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// processBatch runs one read-enrich-publish cycle. It returns false when the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	batch, err := p.source.ReadBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("read batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = initialBackoff

	published, ok := p.transformAndPublish(ctx, batch, backoff)
	if !ok {
		return false
	}
	if published > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.published.Store(true)
	}
	return true
}

// transformAndPublish enriches every event, publishes the successes and
// commits offsets. Events that fail to transform are skipped so a bad message
// cannot block its partition, but their offsets are committed only once the
// rest of the batch is published. A failed publish is retried with backoff.
func (p *Pipeline) transformAndPublish(ctx context.Context, batch []domain.RawEvent, backoff *time.Duration) (int, bool) {
	out := make([]domain.OutputEvent, 0, len(batch))

	for _, raw := range batch {
		evt, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return 0, false
			}
			p.logger.Warn("enrichment failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		out = append(out, evt)
	}

	if len(out) > 0 {
		for {
			err := p.sink.WriteBatch(ctx, out)
			if err == nil {
				break
			}
			p.logger.Error("publish batch failed", "error", err, "batch_size", len(out))
			if !p.backoffOrStop(ctx, backoff) {
				return 0, false
			}
		}
		*backoff = initialBackoff
		p.metrics.MessagesProduced.Add(float64(len(out)))
	}

	// Commit in batch order: a committed offset covers every earlier one.
	for _, raw := range batch {
		p.commit(ctx, raw)
	}
	return len(out), true
}

func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
