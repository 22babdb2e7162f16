package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingReportID is returned when a submission event names no report.
var ErrMissingReportID = errors.New("report id missing from event")

// RawEvent is an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ReportSubmitted is published by the reporting front end when a report row
// is created.
type ReportSubmitted struct {
	ReportID string `json:"report_id"`
}

// ParseReportSubmitted reads the report id from the event body, falling back
// to the message key when the body does not carry one.
func ParseReportSubmitted(raw RawEvent) (ReportSubmitted, error) {
	var evt ReportSubmitted
	if len(raw.Value) > 0 {
		if err := json.Unmarshal(raw.Value, &evt); err != nil {
			return ReportSubmitted{}, fmt.Errorf("parse report event: %w", err)
		}
	}
	evt.ReportID = strings.TrimSpace(evt.ReportID)
	if evt.ReportID == "" {
		evt.ReportID = strings.TrimSpace(string(raw.Key))
	}
	if evt.ReportID == "" {
		return ReportSubmitted{}, ErrMissingReportID
	}
	return evt, nil
}

// InsightsComputed summarizes one enrichment run for downstream consumers.
type InsightsComputed struct {
	ReportID  string      `json:"report_id"`
	Score     int         `json:"score"`
	Level     SafetyLevel `json:"level"`
	Changed   bool        `json:"changed"`
	FetchedAt string      `json:"fetched_at"`
}
