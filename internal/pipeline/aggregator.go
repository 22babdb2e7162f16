package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// EnvironmentQuery is the point and advisory station to gather data for.
// A nil WarningStationID uses the aggregator's default station.
type EnvironmentQuery struct {
	Lat              float64
	Lon              float64
	WarningStationID *int
}

// Aggregator gathers weather, advisories and stations concurrently.
type Aggregator struct {
	weather          domain.WeatherSource
	warnings         domain.WarningSource
	stations         domain.StationSource
	defaultStationID int
	clock            clockwork.Clock
	metrics          *observability.Metrics
	logger           *slog.Logger
}

// NewAggregator creates an Aggregator over the three environmental sources.
func NewAggregator(weather domain.WeatherSource, warnings domain.WarningSource, stations domain.StationSource, defaultStationID int, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		weather:          weather,
		warnings:         warnings,
		stations:         stations,
		defaultStationID: defaultStationID,
		clock:            clock,
		metrics:          metrics,
		logger:           logger,
	}
}

// FetchEnvironmentalInsights runs the three lookups in parallel and waits for
// all of them. A failing lookup contributes its empty value instead of
// failing the whole snapshot. FetchedAt is stamped once every lookup settled.
func (a *Aggregator) FetchEnvironmentalInsights(ctx context.Context, q EnvironmentQuery) domain.EnvironmentalInsights {
	stationID := a.defaultStationID
	if q.WarningStationID != nil {
		stationID = *q.WarningStationID
	}
	point := &domain.Coordinates{Latitude: q.Lat, Longitude: q.Lon}

	var (
		weather  *domain.MarineWeather
		warnings = []domain.WeatherWarning{}
		stations = []domain.CoastGuardStation{}
	)

	// Lookups never return an error to the group, so one failure cannot
	// cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		if w, ok := settle(a, "weather", func() (*domain.MarineWeather, error) {
			return a.weather.FetchMarineWeather(ctx, q.Lat, q.Lon)
		}); ok {
			weather = w
		}
		return nil
	})
	g.Go(func() error {
		if w, ok := settle(a, "warnings", func() ([]domain.WeatherWarning, error) {
			return a.warnings.FetchWeatherWarnings(ctx, stationID)
		}); ok && w != nil {
			warnings = w
		}
		return nil
	})
	g.Go(func() error {
		if s, ok := settle(a, "stations", func() ([]domain.CoastGuardStation, error) {
			return a.stations.FetchCoastGuardStations(ctx, point)
		}); ok && s != nil {
			stations = s
		}
		return nil
	})
	_ = g.Wait()

	return domain.EnvironmentalInsights{
		Weather:   weather,
		Warnings:  warnings,
		Stations:  stations,
		FetchedAt: domain.FormatTimestamp(a.clock.Now()),
	}
}

// settle runs one lookup, turning an error or panic into ok=false.
func settle[T any](a *Aggregator, component string, fn func() (T, error)) (result T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.fail(component, fmt.Errorf("panic: %v", r))
			var zero T
			result, ok = zero, false
		}
	}()

	v, err := fn()
	if err != nil {
		a.fail(component, err)
		return v, false
	}
	return v, true
}

func (a *Aggregator) fail(component string, err error) {
	a.metrics.AggregatorFailures.WithLabelValues(component).Inc()
	a.logger.Warn("environmental lookup failed, using empty value", "component", component, "error", err)
}
