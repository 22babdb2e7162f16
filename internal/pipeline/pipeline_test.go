package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/couchcryptid/marine-report-insights/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockSource) ReadBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err      error
	failKeys map[string]bool
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	if m.failKeys[string(raw.Key)] {
		return domain.OutputEvent{}, errors.New("report not found")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockSink struct {
	mu       sync.Mutex
	written  []domain.OutputEvent
	err      error
	failures int // fail this many writes before succeeding
	log      *eventLog
}

func (m *mockSink) WriteBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		m.log.add("write failed")
		return m.err
	}
	if m.failures > 0 {
		m.failures--
		m.log.add("write failed")
		return errors.New("broker unavailable")
	}
	m.written = append(m.written, events...)
	m.log.add("write ok")
	return nil
}

func (m *mockSink) writtenKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.written))
	for _, evt := range m.written {
		keys = append(keys, string(evt.Key))
	}
	return keys
}

// eventLog records sink writes and offset commits in the order they happen.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type mockEnricher struct {
	res pipeline.Result
	err error
}

func (m *mockEnricher) Enrich(context.Context, string) (pipeline.Result, error) {
	return m.res, m.err
}

func submitted(id string, commits *atomic.Int32) domain.RawEvent {
	body, _ := json.Marshal(domain.ReportSubmitted{ReportID: id})
	return domain.RawEvent{
		Key:   []byte(id),
		Value: body,
		Topic: "report-submitted",
		Commit: func(context.Context) error {
			if commits != nil {
				commits.Add(1)
			}
			return nil
		},
	}
}

func loggedAt(id string, offset int64, log *eventLog) domain.RawEvent {
	raw := submitted(id, nil)
	raw.Offset = offset
	raw.Commit = func(context.Context) error {
		log.add("commit " + id)
		return nil
	}
	return raw
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- pipeline loop ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int32
	src := &mockSource{batches: [][]domain.RawEvent{{submitted("rpt-1", &commits), submitted("rpt-2", &commits)}}}
	sink := &mockSink{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(src, &mockTransformer{}, sink, discardLogger(), metrics, 10)
	assert.False(t, p.Published())

	runFor(t, p, 300*time.Millisecond)

	assert.Len(t, sink.written, 2)
	assert.Equal(t, int32(2), commits.Load())
	assert.True(t, p.Published())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	sink := &mockSink{}
	p := pipeline.New(&mockSource{}, &mockTransformer{}, sink, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, sink.written)
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	var commits atomic.Int32
	src := &mockSource{batches: [][]domain.RawEvent{{submitted("rpt-1", &commits)}}}
	sink := &mockSink{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(src, &mockTransformer{err: errors.New("report not found")}, sink, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, sink.written)
	assert.Equal(t, int32(1), commits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
	assert.False(t, p.Published())
}

func TestPipeline_Run_SinkFailureLeavesOffsetsUncommitted(t *testing.T) {
	var commits atomic.Int32
	src := &mockSource{batches: [][]domain.RawEvent{{submitted("rpt-1", &commits)}}}
	sink := &mockSink{err: errors.New("broker unavailable")}

	p := pipeline.New(src, &mockTransformer{}, sink, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Zero(t, commits.Load())
	assert.False(t, p.Published())
}

func TestPipeline_Run_SinkFailureRetriesSameBatch(t *testing.T) {
	var commits atomic.Int32
	src := &mockSource{batches: [][]domain.RawEvent{{submitted("rpt-1", &commits), submitted("rpt-2", &commits)}}}
	sink := &mockSink{failures: 2}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(src, &mockTransformer{}, sink, discardLogger(), metrics, 10)
	runFor(t, p, 2*time.Second)

	assert.Equal(t, []string{"rpt-1", "rpt-2"}, sink.writtenKeys())
	assert.Equal(t, int32(2), commits.Load())
	assert.True(t, p.Published())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesProduced), 0)
}

func TestPipeline_Run_MixedBatchCommitsAfterPublish(t *testing.T) {
	log := &eventLog{}
	src := &mockSource{batches: [][]domain.RawEvent{{
		loggedAt("rpt-1", 10, log),
		loggedAt("rpt-bad", 11, log),
		loggedAt("rpt-3", 12, log),
	}}}
	sink := &mockSink{failures: 1, log: log}
	metrics := observability.NewMetricsForTesting()
	transformer := &mockTransformer{failKeys: map[string]bool{"rpt-bad": true}}

	p := pipeline.New(src, transformer, sink, discardLogger(), metrics, 10)
	runFor(t, p, 2*time.Second)

	want := []string{
		"write failed",
		"write ok",
		"commit rpt-1",
		"commit rpt-bad",
		"commit rpt-3",
	}
	assert.Equal(t, want, log.snapshot())
	assert.Equal(t, []string{"rpt-1", "rpt-3"}, sink.writtenKeys())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_MixedBatchUncommittedWhileSinkDown(t *testing.T) {
	log := &eventLog{}
	src := &mockSource{batches: [][]domain.RawEvent{{
		loggedAt("rpt-bad", 20, log),
		loggedAt("rpt-2", 21, log),
	}}}
	sink := &mockSink{err: errors.New("broker unavailable"), log: log}
	transformer := &mockTransformer{failKeys: map[string]bool{"rpt-bad": true}}

	p := pipeline.New(src, transformer, sink, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 500*time.Millisecond)

	for _, event := range log.snapshot() {
		assert.Equal(t, "write failed", event)
	}
	assert.Empty(t, sink.writtenKeys())
	assert.False(t, p.Published())
}

// --- transformer ---

func TestInsightsTransformer_Transform(t *testing.T) {
	env := freshEnvironment()
	enricher := &mockEnricher{res: pipeline.Result{
		Insights: domain.ReportInsights{
			SafetyAnalysis:    domain.SafetyAnalysisResult{Score: 72, Level: domain.LevelYellow},
			EnvironmentalData: env,
		},
		Changed: true,
	}}
	clock := clockwork.NewFakeClockAt(now)

	out, err := pipeline.NewTransformer(enricher, clock).Transform(context.Background(), submitted("rpt-9", nil))
	require.NoError(t, err)

	assert.Equal(t, []byte("rpt-9"), out.Key)
	assert.Equal(t, "YELLOW", out.Headers["level"])
	assert.Equal(t, "2025-07-01T00:30:00Z", out.Headers["processed_at"])
	_, err = uuid.Parse(out.Headers["event_id"])
	require.NoError(t, err)

	var got domain.InsightsComputed
	require.NoError(t, json.Unmarshal(out.Value, &got))
	want := domain.InsightsComputed{
		ReportID:  "rpt-9",
		Score:     72,
		Level:     domain.LevelYellow,
		Changed:   true,
		FetchedAt: env.FetchedAt,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestInsightsTransformer_Errors(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)

	_, err := pipeline.NewTransformer(&mockEnricher{}, clock).Transform(context.Background(), domain.RawEvent{Value: []byte(`{}`)})
	require.ErrorIs(t, err, domain.ErrMissingReportID)

	failing := &mockEnricher{err: domain.ErrIncompletePayload}
	_, err = pipeline.NewTransformer(failing, clock).Transform(context.Background(), submitted("rpt-3", nil))
	require.ErrorIs(t, err, domain.ErrIncompletePayload)
	assert.Contains(t, err.Error(), "rpt-3")
}
