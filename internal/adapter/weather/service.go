// Package weather chains the marine weather providers behind one cache.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/cache"
	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"golang.org/x/sync/singleflight"
)

// TTL is how long a merged result (including "no data") is served from cache.
const TTL = 5 * time.Minute

const cacheName = "weather"

// Provider is one source of marine weather. A nil result with a nil error
// means "no data"; the next provider is tried.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) (*domain.MarineWeather, error)
}

// Service implements domain.WeatherSource over an ordered provider list.
type Service struct {
	providers []Provider
	cache     *cache.TTL[*domain.MarineWeather]
	group     singleflight.Group
	timeout   time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService creates a Service that tries providers in order. timeout bounds
// one shared upstream lookup across the whole provider chain.
func NewService(providers []Provider, c *cache.TTL[*domain.MarineWeather], timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		providers: providers,
		cache:     c,
		timeout:   timeout,
		metrics:   metrics,
		logger:    logger,
	}
}

// CacheKey rounds a point to the 0.01° cell shared by nearby requests.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f:%.2f", lat, lon)
}

// FetchMarineWeather returns the first provider's non-nil reading for the
// point's cell. Concurrent misses for one cell share a single upstream call,
// which outlives any one caller's cancellation.
func (s *Service) FetchMarineWeather(ctx context.Context, lat, lon float64) (*domain.MarineWeather, error) {
	key := CacheKey(lat, lon)
	if w, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookups.WithLabelValues(cacheName, "hit").Inc()
		return w, nil
	}
	s.metrics.CacheLookups.WithLabelValues(cacheName, "miss").Inc()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		w, err := s.firstAvailable(flightCtx, lat, lon)
		if err != nil {
			return nil, err
		}
		s.cache.Put(key, w)
		return w, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.MarineWeather), nil
	}
}

func (s *Service) firstAvailable(ctx context.Context, lat, lon float64) (*domain.MarineWeather, error) {
	for _, p := range s.providers {
		w, err := p.Fetch(ctx, lat, lon)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("weather provider failed", "provider", p.Name(), "lat", lat, "lon", lon, "error", err)
			continue
		}
		if w != nil {
			return w, nil
		}
		s.logger.Debug("weather provider returned no data", "provider", p.Name(), "lat", lat, "lon", lon)
	}
	return nil, nil
}
