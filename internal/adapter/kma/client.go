// Package kma lists active weather advisories from the Korea Meteorological
// Administration open-data service.
package kma

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/adapter/opendata"
	"github.com/couchcryptid/marine-report-insights/internal/cache"
	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	defaultBaseURL = "https://apis.data.go.kr/1360000/WthrWrnInfoService/getWthrWrnList"
	providerName   = "kma"
	cacheName      = "warnings"

	// TTL is how long the advisory list of one station is reused.
	TTL = 5 * time.Minute
	// DefaultStationID is the nationwide forecast office (Seoul).
	DefaultStationID = 108
)

// Client implements domain.WarningSource.
type Client struct {
	serviceKey string
	httpClient *http.Client
	baseURL    string
	cache      *cache.TTL[[]domain.WeatherWarning]
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an advisory client. An empty serviceKey disables it.
func NewClient(serviceKey string, timeout time.Duration, c *cache.TTL[[]domain.WeatherWarning], clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		cache:      c,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchWeatherWarnings returns the active advisories for a forecast station.
// A non-positive id means DefaultStationID. Failures yield an empty slice.
func (c *Client) FetchWeatherWarnings(ctx context.Context, stationID int) ([]domain.WeatherWarning, error) {
	if c.serviceKey == "" {
		return []domain.WeatherWarning{}, nil
	}
	if stationID <= 0 {
		stationID = DefaultStationID
	}

	key := strconv.Itoa(stationID)
	if warnings, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(cacheName, "hit").Inc()
		return warnings, nil
	}
	c.metrics.CacheLookups.WithLabelValues(cacheName, "miss").Inc()

	start := c.clock.Now()
	items, err := opendata.Fetch[warningItem](ctx, c.httpClient, c.requestURL(stationID))
	c.metrics.UpstreamDuration.WithLabelValues(providerName).Observe(c.clock.Since(start).Seconds())

	switch {
	case err == nil, errors.Is(err, opendata.ErrNoData):
	case ctx.Err() != nil:
		return []domain.WeatherWarning{}, ctx.Err()
	default:
		c.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeError).Inc()
		c.logger.Warn("weather warning request failed", "station_id", stationID, "error", err)
		return []domain.WeatherWarning{}, nil
	}

	warnings := make([]domain.WeatherWarning, 0, len(items))
	for _, it := range items {
		warnings = append(warnings, it.toDomain())
	}

	outcome := observability.OutcomeSuccess
	if len(warnings) == 0 {
		outcome = observability.OutcomeEmpty
	}
	c.metrics.UpstreamRequests.WithLabelValues(providerName, outcome).Inc()
	c.cache.Put(key, warnings)
	return warnings, nil
}

func (c *Client) requestURL(stationID int) string {
	params := url.Values{
		"serviceKey": {c.serviceKey},
		"pageNo":     {"1"},
		"numOfRows":  {"20"},
		"dataType":   {"JSON"},
		"stnId":      {strconv.Itoa(stationID)},
	}
	return c.baseURL + "?" + params.Encode()
}

// warningItem is one advisory row. Content comes from the first non-empty of
// content, t6 (the bulletin body in the detailed list) or other, and falls
// back to the title.
type warningItem struct {
	Title   opendata.Scalar `json:"title"`
	Content opendata.Scalar `json:"content"`
	T6      opendata.Scalar `json:"t6"`
	Other   opendata.Scalar `json:"other"`
	TmFc    opendata.Scalar `json:"tmFc"`
}

func (it warningItem) toDomain() domain.WeatherWarning {
	title := it.Title.String()
	content := title
	for _, candidate := range []opendata.Scalar{it.Content, it.T6, it.Other} {
		if candidate != "" {
			content = candidate.String()
			break
		}
	}
	return domain.WeatherWarning{
		Title:   title,
		Content: content,
		TmFc:    normalizeIssuedAt(it.TmFc.String()),
	}
}

var issuedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04",
	"2006/01/02 15:04",
	"200601021504",
}

// normalizeIssuedAt converts an issuance time to the stored timestamp form.
// A 12-digit YYYYMMDDHHmm value is local Korean time. Other strings are tried
// against common layouts (zone-less ones taken as KST) and returned as-is
// when nothing matches.
func normalizeIssuedAt(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range issuedLayouts {
		if t, err := time.ParseInLocation(layout, s, domain.KST); err == nil {
			return domain.FormatTimestamp(t)
		}
	}
	return s
}
