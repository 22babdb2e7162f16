package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/jonboulle/clockwork"
)

// EnvironmentFetcher produces a fresh environmental snapshot for a point.
type EnvironmentFetcher interface {
	FetchEnvironmentalInsights(ctx context.Context, q EnvironmentQuery) domain.EnvironmentalInsights
}

// Result is the outcome of building insights for one stored report.
// Payload is the merged document to persist when Changed is true.
type Result struct {
	Insights domain.ReportInsights
	Payload  domain.ReportPayload
	Changed  bool
}

// Orchestrator decides which cached sections of a report are still usable
// and recomputes the rest.
type Orchestrator struct {
	env      EnvironmentFetcher
	narrator domain.ReportNarrator
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. narrator may be nil to disable
// AI narratives entirely.
func NewOrchestrator(env EnvironmentFetcher, narrator domain.ReportNarrator, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{env: env, narrator: narrator, clock: clock, metrics: metrics, logger: logger}
}

// BuildReportInsights normalizes the stored payload, refreshes stale
// environmental data, rescores when needed and attaches the AI narrative.
// The only error is domain.ErrIncompletePayload.
func (o *Orchestrator) BuildReportInsights(ctx context.Context, report domain.StoredReport) (Result, error) {
	norm := domain.Normalize(report.LocationData)
	payload := norm.Payload
	changed := norm.Changed

	if err := payload.Complete(); err != nil {
		return Result{}, fmt.Errorf("report %s: %w", report.ID, err)
	}

	validCoords := payload.HasValidCoordinates()
	now := o.clock.Now()

	var env domain.EnvironmentalInsights
	envUpdated := false
	switch {
	case payload.EnvironmentalData != nil && !payload.EnvironmentalData.IsStale(now):
		env = *payload.EnvironmentalData
	case validCoords:
		env = o.env.FetchEnvironmentalInsights(ctx, EnvironmentQuery{
			Lat:              payload.Location.Coordinates.Latitude,
			Lon:              payload.Location.Coordinates.Longitude,
			WarningStationID: payload.Location.WeatherStationID,
		})
		envUpdated = true
	default:
		env = domain.EmptyInsights(now)
		envUpdated = true
	}
	if envUpdated {
		changed = true
	}

	analysis := payload.SafetyAnalysis
	if analysis == nil || envUpdated || analysis.Version != domain.SafetyAlgorithmVersion {
		fresh := domain.AnalyzeSafety(payload, env.Snapshot())
		analysis = &fresh
		changed = true
		o.metrics.SafetyScore.Observe(float64(fresh.Score))
	}

	aiReport := payload.AIReport
	if validCoords && payload.HasSchedule() {
		if aiReport == nil {
			aiReport = o.generateNarrative(ctx, report.ID, payload, env)
			if aiReport != nil {
				changed = true
			}
		}
	} else if aiReport != nil {
		aiReport = nil
		changed = true
	}

	payload.EnvironmentalData = &env
	payload.SafetyAnalysis = analysis
	payload.AIReport = aiReport

	return Result{
		Insights: domain.ReportInsights{
			SafetyAnalysis:    *analysis,
			EnvironmentalData: env,
			AIReport:          aiReport,
		},
		Payload: payload,
		Changed: changed,
	}, nil
}

func (o *Orchestrator) generateNarrative(ctx context.Context, reportID string, payload domain.ReportPayload, env domain.EnvironmentalInsights) *domain.AISafetyReport {
	if o.narrator == nil {
		return nil
	}
	ai, err := o.narrator.GenerateSafetyReport(ctx, payload, env.Weather, env.Warnings, env.Stations)
	if err != nil {
		o.logger.Warn("AI narrative skipped", "report_id", reportID, "error", err)
		return nil
	}
	return ai
}
