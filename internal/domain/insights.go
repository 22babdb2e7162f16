package domain

import "time"

// EnvironmentTTL is how long fetched environmental data stays usable.
const EnvironmentTTL = 10 * time.Minute

// SafetyLevel is the traffic-light classification of a safety score.
type SafetyLevel string

const (
	LevelGreen  SafetyLevel = "GREEN"
	LevelYellow SafetyLevel = "YELLOW"
	LevelRed    SafetyLevel = "RED"
)

// LevelForScore maps a score to its level: RED below 50, YELLOW below 80.
func LevelForScore(score int) SafetyLevel {
	switch {
	case score < 50:
		return LevelRed
	case score < 80:
		return LevelYellow
	default:
		return LevelGreen
	}
}

// RiskFactorType groups risk factors for display.
type RiskFactorType string

const (
	RiskWeather RiskFactorType = "WEATHER"
	RiskOther   RiskFactorType = "OTHER"
)

// Severity ranks a risk factor.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// RiskFactor is one triggered deduction worth showing to the user.
type RiskFactor struct {
	Type     RiskFactorType `json:"type"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
}

// ScoreBreakdown holds the penalty total of each bucket.
type ScoreBreakdown struct {
	Weather  float64 `json:"weather"`
	Sea      float64 `json:"sea"`
	Activity float64 `json:"activity"`
	Response float64 `json:"response"`
}

// SafetyAnalysisResult is the output of [AnalyzeSafety].
type SafetyAnalysisResult struct {
	Score           int            `json:"score"`
	Level           SafetyLevel    `json:"level"`
	RiskFactors     []RiskFactor   `json:"risk_factors"`
	Recommendations []string       `json:"recommendations"`
	Breakdown       ScoreBreakdown `json:"breakdown"`
	Version         string         `json:"version"`
}

// WeatherProvider names the source of a MarineWeather reading.
type WeatherProvider string

const (
	ProviderWindy     WeatherProvider = "windy"
	ProviderOpenMeteo WeatherProvider = "open-meteo"
	ProviderUnknown   WeatherProvider = "unknown"
)

// MarineWeather is an instantaneous wind and sea-state reading in SI units
// (m/s, meters, degrees). Direction is where the wind blows from.
type MarineWeather struct {
	Time            string          `json:"time"`
	WindSpeed       float64         `json:"wind_speed"`
	WindDirection   float64         `json:"wind_direction"`
	WindGusts       *float64        `json:"wind_gusts"`
	WaveHeight      *float64        `json:"wave_height"`
	SwellWaveHeight *float64        `json:"swell_wave_height"`
	Provider        WeatherProvider `json:"provider"`
}

// WeatherWarning is an active weather advisory.
type WeatherWarning struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	TmFc    string `json:"tmFc"`
}

// CoastGuardStation is a rescue station. Distance is in kilometers and only
// set when the directory was queried with a point.
type CoastGuardStation struct {
	Name     string   `json:"name"`
	Tel      string   `json:"tel"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Distance *float64 `json:"distance,omitempty"`
}

// EnvironmentalInsights is the combined environmental snapshot for a report.
type EnvironmentalInsights struct {
	Weather   *MarineWeather      `json:"weather"`
	Warnings  []WeatherWarning    `json:"warnings"`
	Stations  []CoastGuardStation `json:"stations"`
	FetchedAt string              `json:"fetchedAt"`
}

// IsStale reports whether the snapshot is older than EnvironmentTTL at now.
// An unreadable fetchedAt is always stale.
func (e EnvironmentalInsights) IsStale(now time.Time) bool {
	fetched, ok := parseTimestamp(e.FetchedAt)
	if !ok {
		return true
	}
	return now.Sub(fetched) > EnvironmentTTL
}

// Snapshot returns the parts of the insights the scoring engine consumes.
func (e EnvironmentalInsights) Snapshot() EnvironmentSnapshot {
	return EnvironmentSnapshot{Weather: e.Weather, Warnings: e.Warnings, Stations: e.Stations}
}

// EmptyInsights is the snapshot used when nothing can be fetched.
func EmptyInsights(now time.Time) EnvironmentalInsights {
	return EnvironmentalInsights{
		Warnings:  []WeatherWarning{},
		Stations:  []CoastGuardStation{},
		FetchedAt: FormatTimestamp(now),
	}
}

// EnvironmentSnapshot is the scoring engine's view of the environment.
type EnvironmentSnapshot struct {
	Weather  *MarineWeather
	Warnings []WeatherWarning
	Stations []CoastGuardStation
}

// AIRiskLevel is the narrative generator's own risk label.
type AIRiskLevel string

const (
	AIRiskLow    AIRiskLevel = "LOW"
	AIRiskMedium AIRiskLevel = "MEDIUM"
	AIRiskHigh   AIRiskLevel = "HIGH"
)

// AISafetyReport is the optional language-model narrative.
type AISafetyReport struct {
	Summary         string      `json:"summary"`
	RiskLevel       AIRiskLevel `json:"riskLevel"`
	RiskFactors     []string    `json:"riskFactors"`
	Recommendations []string    `json:"recommendations"`
	WeatherAnalysis string      `json:"weatherAnalysis"`
}

// ReportInsights bundles the three computed sections returned to callers.
type ReportInsights struct {
	SafetyAnalysis    SafetyAnalysisResult  `json:"safety_analysis"`
	EnvironmentalData EnvironmentalInsights `json:"environmental_data"`
	AIReport          *AISafetyReport       `json:"ai_report"`
}
