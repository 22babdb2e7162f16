package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrIncompletePayload means a normalized payload lacks a core section.
// Normalize always fills them, so this signals a bug rather than bad input.
var ErrIncompletePayload = errors.New("payload missing location, activity or contact")

// ActivityType enumerates the leisure activities a report may describe.
type ActivityType string

const (
	ActivityKayak      ActivityType = "kayak"
	ActivitySUP        ActivityType = "sup"
	ActivityScuba      ActivityType = "scuba"
	ActivitySnorkeling ActivityType = "snorkeling"
	ActivitySurfing    ActivityType = "surfing"
	ActivitySailing    ActivityType = "sailing"
	ActivityFishing    ActivityType = "fishing"
	ActivitySwimming   ActivityType = "swimming"
	ActivityOther      ActivityType = "other"
)

// ActivityTypes lists the accepted activity types. The first entry is the
// fallback for unknown values.
var ActivityTypes = []ActivityType{
	ActivityKayak,
	ActivitySUP,
	ActivityScuba,
	ActivitySnorkeling,
	ActivitySurfing,
	ActivitySailing,
	ActivityFishing,
	ActivitySwimming,
	ActivityOther,
}

// Coordinates is a WGS-84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are finite and in range.
func (c Coordinates) Valid() bool {
	return validLatitude(c.Latitude) && validLongitude(c.Longitude)
}

// Location is where the activity takes place.
type Location struct {
	Name             string      `json:"name"`
	Coordinates      Coordinates `json:"coordinates"`
	WeatherStationID *int        `json:"weatherStationId,omitempty"`
}

// Activity describes what is planned and when.
type Activity struct {
	Type         ActivityType `json:"type"`
	StartTime    string       `json:"startTime"`
	EndTime      string       `json:"endTime"`
	Participants int          `json:"participants"`
}

// Start returns the parsed start time, or the zero time if it does not parse.
func (a Activity) Start() time.Time {
	t, _ := parseTimestamp(a.StartTime)
	return t
}

// End returns the parsed end time, or the zero time if it does not parse.
func (a Activity) End() time.Time {
	t, _ := parseTimestamp(a.EndTime)
	return t
}

// Contact is the reporting person. Companions share the same shape.
type Contact struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergencyContact"`
}

// Metadata is the audit trail of what normalization had to repair.
type Metadata struct {
	MissingCoordinates bool     `json:"missingCoordinates,omitempty"`
	MissingSchedule    bool     `json:"missingSchedule,omitempty"`
	Issues             []string `json:"issues,omitempty"`
	SanitizedAt        string   `json:"sanitizedAt,omitempty"`
}

// ReportPayload is the canonical location_data document of one report.
type ReportPayload struct {
	Location          *Location              `json:"location"`
	Activity          *Activity              `json:"activity"`
	Contact           *Contact               `json:"contact"`
	Companions        []Contact              `json:"companions,omitempty"`
	Notes             string                 `json:"notes,omitempty"`
	SafetyAnalysis    *SafetyAnalysisResult  `json:"safety_analysis,omitempty"`
	EnvironmentalData *EnvironmentalInsights `json:"environmental_data,omitempty"`
	AIReport          *AISafetyReport        `json:"ai_report,omitempty"`
	Metadata          *Metadata              `json:"metadata,omitempty"`
}

// HasValidCoordinates reports whether the payload points at a real location
// rather than the fallback point.
func (p ReportPayload) HasValidCoordinates() bool {
	if p.Location == nil {
		return false
	}
	if p.Metadata != nil && p.Metadata.MissingCoordinates {
		return false
	}
	return p.Location.Coordinates.Valid()
}

// HasSchedule reports whether the activity window came from the user.
func (p ReportPayload) HasSchedule() bool {
	return p.Metadata == nil || !p.Metadata.MissingSchedule
}

// Complete returns ErrIncompletePayload unless location, activity and
// contact are all present.
func (p ReportPayload) Complete() error {
	if p.Location == nil || p.Activity == nil || p.Contact == nil {
		return ErrIncompletePayload
	}
	return nil
}

// StoredReport is one row of the reports table as seen by the pipeline.
type StoredReport struct {
	ID           string
	ReportNo     string
	Status       string
	SafetyScore  *int
	CreatedAt    time.Time
	LocationData json.RawMessage
}
