package domain

import "context"

// Adapters implementing these ports absorb upstream failures and return
// their empty value. An error means the context was cancelled.

// WeatherSource provides the current marine weather for a point.
type WeatherSource interface {
	FetchMarineWeather(ctx context.Context, lat, lon float64) (*MarineWeather, error)
}

// WarningSource lists active weather advisories for a forecast station.
type WarningSource interface {
	FetchWeatherWarnings(ctx context.Context, stationID int) ([]WeatherWarning, error)
}

// StationSource lists coast guard stations, nearest first when a point is given.
type StationSource interface {
	FetchCoastGuardStations(ctx context.Context, point *Coordinates) ([]CoastGuardStation, error)
}

// ReportNarrator writes the optional AI safety narrative. A nil report with
// a nil error means no narrative is available.
type ReportNarrator interface {
	GenerateSafetyReport(ctx context.Context, report ReportPayload, weather *MarineWeather, warnings []WeatherWarning, stations []CoastGuardStation) (*AISafetyReport, error)
}
