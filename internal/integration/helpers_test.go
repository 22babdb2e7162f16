//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("marine-insights-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

var errReportMissing = errors.New("report not found")

// memoryStore is a reports table held in memory.
type memoryStore struct {
	mu      sync.Mutex
	reports map[string]domain.StoredReport
	writes  map[string]int
}

func newMemoryStore(reports ...domain.StoredReport) *memoryStore {
	s := &memoryStore{reports: map[string]domain.StoredReport{}, writes: map[string]int{}}
	for _, r := range reports {
		s.reports[r.ID] = r
	}
	return s
}

func (s *memoryStore) GetReport(_ context.Context, id string) (domain.StoredReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return domain.StoredReport{}, errReportMissing
	}
	return r, nil
}

func (s *memoryStore) UpdateLocationData(_ context.Context, id string, p domain.ReportPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.reports[id]
	r.LocationData = data
	s.reports[id] = r
	s.writes[id]++
	return nil
}

func (s *memoryStore) writeCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[id]
}

// calmEnvironment answers every lookup with the same snapshot.
type calmEnvironment struct{}

func (calmEnvironment) FetchEnvironmentalInsights(context.Context, pipeline.EnvironmentQuery) domain.EnvironmentalInsights {
	dist := 2.0
	return domain.EnvironmentalInsights{
		Weather:   &domain.MarineWeather{WindSpeed: 3, Provider: domain.ProviderWindy},
		Warnings:  []domain.WeatherWarning{},
		Stations:  []domain.CoastGuardStation{{Name: "Jeju", Tel: "122", Lat: 33.517, Lon: 126.529, Distance: &dist}},
		FetchedAt: "2025-07-01T00:00:00.000Z",
	}
}
