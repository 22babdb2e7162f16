// Package openmeteo is the fallback marine weather provider backed by the
// public Open-Meteo forecast and marine APIs.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	defaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	defaultMarineURL   = "https://marine-api.open-meteo.com/v1/marine"
	providerName       = "open-meteo"
)

// Client queries the surface wind and marine endpoints concurrently and
// merges their current blocks.
type Client struct {
	httpClient  *http.Client
	forecastURL string
	marineURL   string
	clock       clockwork.Clock
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates an Open-Meteo client. The API needs no key.
func NewClient(timeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		forecastURL: defaultForecastURL,
		marineURL:   defaultMarineURL,
		clock:       clock,
		metrics:     metrics,
		logger:      logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Fetch returns the merged current conditions. It returns nil only when both
// requests fail; a missing half leaves its fields empty.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*domain.MarineWeather, error) {
	var (
		wind    *windCurrent
		marine  *marineCurrent
		windErr error
		seaErr  error
	)

	start := c.clock.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var resp windResponse
		windErr = c.get(gctx, c.forecastURL, url.Values{
			"current":         {"wind_speed_10m,wind_direction_10m,wind_gusts_10m"},
			"wind_speed_unit": {"ms"},
		}, lat, lon, &resp)
		wind = resp.Current
		return nil
	})
	g.Go(func() error {
		var resp marineResponse
		seaErr = c.get(gctx, c.marineURL, url.Values{
			"current": {"wave_height,swell_wave_height"},
		}, lat, lon, &resp)
		marine = resp.Current
		return nil
	})
	_ = g.Wait()
	c.metrics.UpstreamDuration.WithLabelValues(providerName).Observe(c.clock.Since(start).Seconds())

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if windErr != nil {
		c.logger.Warn("open-meteo wind request failed", "lat", lat, "lon", lon, "error", windErr)
	}
	if seaErr != nil {
		c.logger.Warn("open-meteo marine request failed", "lat", lat, "lon", lon, "error", seaErr)
	}
	if wind == nil && marine == nil {
		c.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeError).Inc()
		return nil, nil
	}

	c.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeSuccess).Inc()
	return merge(wind, marine), nil
}

func merge(wind *windCurrent, marine *marineCurrent) *domain.MarineWeather {
	w := &domain.MarineWeather{Provider: domain.ProviderOpenMeteo}
	if wind != nil {
		w.Time = normalizeTime(wind.Time)
		if wind.WindSpeed != nil {
			w.WindSpeed = *wind.WindSpeed
		}
		if wind.WindDirection != nil {
			w.WindDirection = *wind.WindDirection
		}
		w.WindGusts = wind.WindGusts
	}
	if marine != nil {
		if w.Time == "" {
			w.Time = normalizeTime(marine.Time)
		}
		w.WaveHeight = marine.WaveHeight
		w.SwellWaveHeight = marine.SwellWaveHeight
	}
	return w
}

// normalizeTime converts Open-Meteo's zone-less GMT "2006-01-02T15:04" to
// the stored timestamp form.
func normalizeTime(s string) string {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		return s
	}
	return domain.FormatTimestamp(t)
}

func (c *Client) get(ctx context.Context, base string, params url.Values, lat, lon float64, out any) error {
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Open-Meteo API response types.

type windResponse struct {
	Current *windCurrent `json:"current"`
}

type windCurrent struct {
	Time          string   `json:"time"`
	WindSpeed     *float64 `json:"wind_speed_10m"`
	WindDirection *float64 `json:"wind_direction_10m"`
	WindGusts     *float64 `json:"wind_gusts_10m"`
}

type marineResponse struct {
	Current *marineCurrent `json:"current"`
}

type marineCurrent struct {
	Time            string   `json:"time"`
	WaveHeight      *float64 `json:"wave_height"`
	SwellWaveHeight *float64 `json:"swell_wave_height"`
}
