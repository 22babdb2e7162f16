package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/couchcryptid/marine-report-insights/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	report    domain.StoredReport
	getErr    error
	updateErr error
	updates   []domain.ReportPayload
}

func (s *fakeStore) GetReport(context.Context, string) (domain.StoredReport, error) {
	return s.report, s.getErr
}

func (s *fakeStore) UpdateLocationData(_ context.Context, _ string, p domain.ReportPayload) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, p)
	return nil
}

func newEnricher(store *fakeStore, metrics *observability.Metrics) *pipeline.Enricher {
	orch := newOrchestrator(&fakeEnvironment{result: freshEnvironment()}, &fakeNarrator{report: narrative()})
	return pipeline.NewEnricher(store, orch, metrics, discardLogger())
}

func TestEnricher_PersistsChangedPayload(t *testing.T) {
	store := &fakeStore{report: stored(t, basePayload())}
	metrics := observability.NewMetricsForTesting()

	res, err := newEnricher(store, metrics).Enrich(context.Background(), "rpt-1")
	require.NoError(t, err)

	assert.True(t, res.Changed)
	require.Len(t, store.updates, 1)
	assert.NotNil(t, store.updates[0].SafetyAnalysis)
	assert.NotNil(t, store.updates[0].AIReport)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.InsightsPersisted), 0)
}

func TestEnricher_SkipsWriteWhenUnchanged(t *testing.T) {
	store := &fakeStore{report: stored(t, cachedPayload())}

	res, err := newEnricher(store, observability.NewMetricsForTesting()).Enrich(context.Background(), "rpt-1")
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Empty(t, store.updates)
}

func TestEnricher_Errors(t *testing.T) {
	notFound := errors.New("report not found")

	_, err := newEnricher(&fakeStore{getErr: notFound}, observability.NewMetricsForTesting()).Enrich(context.Background(), "missing")
	require.ErrorIs(t, err, notFound)

	store := &fakeStore{report: stored(t, basePayload()), updateErr: errors.New("connection reset")}
	_, err = newEnricher(store, observability.NewMetricsForTesting()).Enrich(context.Background(), "rpt-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist insights")
}
