// Package coastguard is the directory of Korea Coast Guard rescue stations.
package coastguard

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/couchcryptid/marine-report-insights/internal/adapter/opendata"
	"github.com/couchcryptid/marine-report-insights/internal/cache"
	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/golang/geo/s2"
	"github.com/jonboulle/clockwork"
)

const (
	defaultBaseURL = "https://apis.data.go.kr/1532000/KCG_StationInfoService/getStationList"
	providerName   = "coastguard"
	cacheName      = "stations"
	baseListKey    = "all"

	// TTL is how long the base station list is reused.
	TTL = 10 * time.Minute

	// EarthRadiusKm is the mean radius used for station distances.
	EarthRadiusKm = 6371.0
)

// Directory implements domain.StationSource.
type Directory struct {
	serviceKey string
	httpClient *http.Client
	baseURL    string
	cache      *cache.TTL[[]domain.CoastGuardStation]
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewDirectory creates a station directory. Without a serviceKey it serves
// the built-in list and never calls the API.
func NewDirectory(serviceKey string, timeout time.Duration, c *cache.TTL[[]domain.CoastGuardStation], clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Directory {
	return &Directory{
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		cache:      c,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchCoastGuardStations returns every station. With a point, each station
// carries its great-circle distance and the list is sorted nearest first.
func (d *Directory) FetchCoastGuardStations(ctx context.Context, point *domain.Coordinates) ([]domain.CoastGuardStation, error) {
	base, err := d.baseList(ctx)
	if err != nil {
		return nil, err
	}

	stations := make([]domain.CoastGuardStation, len(base))
	copy(stations, base)
	if point == nil {
		return stations, nil
	}

	from := s2.LatLngFromDegrees(point.Latitude, point.Longitude)
	for i := range stations {
		km := DistanceKm(from, stations[i].Lat, stations[i].Lon)
		stations[i].Distance = &km
	}
	slices.SortStableFunc(stations, func(a, b domain.CoastGuardStation) int {
		return cmp.Compare(*a.Distance, *b.Distance)
	})
	return stations, nil
}

// DistanceKm is the great-circle distance from a point to a station.
func DistanceKm(from s2.LatLng, lat, lon float64) float64 {
	return from.Distance(s2.LatLngFromDegrees(lat, lon)).Radians() * EarthRadiusKm
}

// baseList returns the cached station list, loading it on a miss. Fallback
// results are cached too so a failing API is not retried on every request.
func (d *Directory) baseList(ctx context.Context) ([]domain.CoastGuardStation, error) {
	if d.serviceKey == "" {
		return builtinStations, nil
	}

	if stations, ok := d.cache.Get(baseListKey); ok {
		d.metrics.CacheLookups.WithLabelValues(cacheName, "hit").Inc()
		return stations, nil
	}
	d.metrics.CacheLookups.WithLabelValues(cacheName, "miss").Inc()

	stations, err := d.load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeError).Inc()
		d.logger.Warn("coast guard station request failed, using built-in list", "error", err)
		stations = builtinStations
	} else if len(stations) == 0 {
		d.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeEmpty).Inc()
		d.logger.Warn("coast guard station list empty, using built-in list")
		stations = builtinStations
	} else {
		d.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeSuccess).Inc()
	}

	d.cache.Put(baseListKey, stations)
	return stations, nil
}

func (d *Directory) load(ctx context.Context) ([]domain.CoastGuardStation, error) {
	params := url.Values{
		"serviceKey": {d.serviceKey},
		"pageNo":     {"1"},
		"numOfRows":  {"100"},
		"type":       {"json"},
	}

	start := d.clock.Now()
	items, err := opendata.Fetch[stationItem](ctx, d.httpClient, d.baseURL+"?"+params.Encode())
	d.metrics.UpstreamDuration.WithLabelValues(providerName).Observe(d.clock.Since(start).Seconds())
	if err != nil && !errors.Is(err, opendata.ErrNoData) {
		return nil, err
	}

	stations := make([]domain.CoastGuardStation, 0, len(items))
	for _, it := range items {
		if st, ok := it.toDomain(); ok {
			stations = append(stations, st)
		}
	}
	return stations, nil
}

// stationItem is one directory row. Aliased fields are read in order:
//
//	name: name, stationName, ofcNm
//	tel:  tel, telNo, phone
//	lat:  lat, obsLctnLa, latitude
//	lon:  lon, obsLctnLo, longitude
type stationItem struct {
	Name        opendata.Scalar `json:"name"`
	StationName opendata.Scalar `json:"stationName"`
	OfcNm       opendata.Scalar `json:"ofcNm"`
	Tel         opendata.Scalar `json:"tel"`
	TelNo       opendata.Scalar `json:"telNo"`
	Phone       opendata.Scalar `json:"phone"`
	Lat         opendata.Scalar `json:"lat"`
	ObsLctnLa   opendata.Scalar `json:"obsLctnLa"`
	Latitude    opendata.Scalar `json:"latitude"`
	Lon         opendata.Scalar `json:"lon"`
	ObsLctnLo   opendata.Scalar `json:"obsLctnLo"`
	Longitude   opendata.Scalar `json:"longitude"`
}

// toDomain reports false for rows without a name or a usable position.
func (it stationItem) toDomain() (domain.CoastGuardStation, bool) {
	name := firstString(it.Name, it.StationName, it.OfcNm)
	lat, okLat := firstFloat(it.Lat, it.ObsLctnLa, it.Latitude)
	lon, okLon := firstFloat(it.Lon, it.ObsLctnLo, it.Longitude)
	if name == "" || !okLat || !okLon {
		return domain.CoastGuardStation{}, false
	}
	if !(domain.Coordinates{Latitude: lat, Longitude: lon}).Valid() {
		return domain.CoastGuardStation{}, false
	}

	tel := firstString(it.Tel, it.TelNo, it.Phone)
	if tel == "" {
		tel = emergencyTel
	}
	return domain.CoastGuardStation{Name: name, Tel: tel, Lat: lat, Lon: lon}, true
}

func firstString(values ...opendata.Scalar) string {
	for _, v := range values {
		if v != "" {
			return v.String()
		}
	}
	return ""
}

func firstFloat(values ...opendata.Scalar) (float64, bool) {
	for _, v := range values {
		if f, ok := v.Float(); ok {
			return f, true
		}
	}
	return 0, false
}
