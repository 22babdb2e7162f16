// Package windy fetches point forecasts from the Windy API.
package windy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	defaultBaseURL = "https://api.windy.com/api/point-forecast/v2"
	providerName   = "windy"
)

// Client implements the primary marine weather provider.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Windy point-forecast client. An empty apiKey disables it.
func NewClient(apiKey, model string, timeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Fetch returns the forecast step nearest to now, or nil when the client has
// no key, the point is invalid, or the request fails.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*domain.MarineWeather, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	if !(domain.Coordinates{Latitude: lat, Longitude: lon}).Valid() {
		return nil, nil
	}

	start := c.clock.Now()
	fc, err := c.doRequest(ctx, lat, lon)
	c.metrics.UpstreamDuration.WithLabelValues(providerName).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeError).Inc()
		c.logger.Warn("windy forecast failed", "lat", lat, "lon", lon, "error", err)
		return nil, nil
	}

	w := fc.nearest(c.clock.Now())
	if w == nil {
		c.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeEmpty).Inc()
		return nil, nil
	}
	c.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeSuccess).Inc()
	return w, nil
}

func (c *Client) doRequest(ctx context.Context, lat, lon float64) (forecast, error) {
	body, err := json.Marshal(request{
		Lat:        round3(lat),
		Lon:        round3(lon),
		Model:      c.model,
		Parameters: []string{"wind", "windGust", "waves", "swell"},
		Levels:     []string{"surface"},
		Key:        c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("point forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("windy API error: status %d: %s", resp.StatusCode, msg)
	}

	var fc forecast
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return fc, nil
}

// Windy API request and response types.

type request struct {
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Model      string   `json:"model"`
	Parameters []string `json:"parameters"`
	Levels     []string `json:"levels"`
	Key        string   `json:"key"`
}

// forecast is the multi-series response: every key maps to an array parallel
// to "ts". Non-numeric entries such as "units" decode to nil and are ignored.
type forecast map[string]json.RawMessage

func (f forecast) series(keys ...string) []*float64 {
	for _, key := range keys {
		raw, ok := f[key]
		if !ok {
			continue
		}
		var values []*float64
		if err := json.Unmarshal(raw, &values); err == nil && len(values) > 0 {
			return values
		}
	}
	return nil
}

// nearest picks the step whose timestamp is closest to now. Timestamps above
// 1e12 are taken as milliseconds.
func (f forecast) nearest(now time.Time) *domain.MarineWeather {
	ts := f.series("ts")
	windU := f.series("wind_u-surface")
	windV := f.series("wind_v-surface")
	if len(ts) == 0 || len(windU) == 0 || len(windV) == 0 {
		return nil
	}

	idx, bestTime := -1, time.Time{}
	var bestDelta time.Duration
	for i, t := range ts {
		if t == nil || i >= len(windU) || i >= len(windV) || windU[i] == nil || windV[i] == nil {
			continue
		}
		stamp := fromEpoch(*t)
		delta := stamp.Sub(now).Abs()
		if idx < 0 || delta < bestDelta {
			idx, bestTime, bestDelta = i, stamp, delta
		}
	}
	if idx < 0 {
		return nil
	}

	u, v := *windU[idx], *windV[idx]
	return &domain.MarineWeather{
		Time:            domain.FormatTimestamp(bestTime),
		WindSpeed:       math.Hypot(u, v),
		WindDirection:   fromDirection(u, v),
		WindGusts:       at(f.series("gust-surface"), idx),
		WaveHeight:      at(f.series("waves_height-surface"), idx),
		SwellWaveHeight: at(f.series("swell1_height-surface", "swell_height-surface"), idx),
		Provider:        domain.ProviderWindy,
	}
}

// fromDirection converts U/V components to the direction the wind blows
// from, in degrees clockwise from north within [0, 360). It computes
// atan2(U, V) in degrees plus 180: atan2(U, V) is the heading the wind blows
// toward, so U=5, V=0 (blowing east) gives 270.
func fromDirection(u, v float64) float64 {
	deg := math.Atan2(u, v)*180/math.Pi + 180
	return math.Mod(math.Mod(deg, 360)+360, 360)
}

func fromEpoch(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
