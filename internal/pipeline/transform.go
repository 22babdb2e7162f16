package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ReportEnricher is the part of Enricher the Kafka path needs.
type ReportEnricher interface {
	Enrich(ctx context.Context, reportID string) (Result, error)
}

// InsightsTransformer turns a report-submitted event into an
// insights-computed event by enriching the referenced report.
type InsightsTransformer struct {
	enricher ReportEnricher
	clock    clockwork.Clock
}

// NewTransformer creates an InsightsTransformer.
func NewTransformer(enricher ReportEnricher, clock clockwork.Clock) *InsightsTransformer {
	return &InsightsTransformer{enricher: enricher, clock: clock}
}

func (t *InsightsTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	evt, err := domain.ParseReportSubmitted(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	res, err := t.enricher.Enrich(ctx, evt.ReportID)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("enrich report %s: %w", evt.ReportID, err)
	}

	analysis := res.Insights.SafetyAnalysis
	body, err := json.Marshal(domain.InsightsComputed{
		ReportID:  evt.ReportID,
		Score:     analysis.Score,
		Level:     analysis.Level,
		Changed:   res.Changed,
		FetchedAt: res.Insights.EnvironmentalData.FetchedAt,
	})
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("encode insights event: %w", err)
	}

	return domain.OutputEvent{
		Key:   []byte(evt.ReportID),
		Value: body,
		Headers: map[string]string{
			"event_id":     uuid.NewString(),
			"level":        string(analysis.Level),
			"processed_at": t.clock.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
