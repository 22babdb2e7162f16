package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
)

// ReportStore loads and persists report payloads.
type ReportStore interface {
	GetReport(ctx context.Context, id string) (domain.StoredReport, error)
	UpdateLocationData(ctx context.Context, id string, payload domain.ReportPayload) error
}

// Enricher builds insights for a stored report and writes the payload back
// when anything changed. Both the HTTP API and the Kafka consumer use it.
type Enricher struct {
	store        ReportStore
	orchestrator *Orchestrator
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(store ReportStore, orchestrator *Orchestrator, metrics *observability.Metrics, logger *slog.Logger) *Enricher {
	return &Enricher{store: store, orchestrator: orchestrator, metrics: metrics, logger: logger}
}

// Enrich loads, recomputes and persists one report.
func (e *Enricher) Enrich(ctx context.Context, reportID string) (Result, error) {
	report, err := e.store.GetReport(ctx, reportID)
	if err != nil {
		return Result{}, err
	}

	res, err := e.orchestrator.BuildReportInsights(ctx, report)
	if err != nil {
		return Result{}, err
	}

	if res.Changed {
		if err := e.store.UpdateLocationData(ctx, report.ID, res.Payload); err != nil {
			return Result{}, fmt.Errorf("persist insights: %w", err)
		}
		e.metrics.InsightsPersisted.Inc()
		e.logger.Debug("insights persisted",
			"report_id", report.ID,
			"score", res.Insights.SafetyAnalysis.Score,
			"level", res.Insights.SafetyAnalysis.Level,
		)
	}
	return res, nil
}
