package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "postgres://localhost:5432/marine?sslmode=disable", cfg.DatabaseURL)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "report-submitted", cfg.KafkaSourceTopic)
	assert.Equal(t, "report-insights", cfg.KafkaSinkTopic)
	assert.Equal(t, "marine-report-insights", cfg.KafkaGroupID)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.Equal(t, 8*time.Second, cfg.UpstreamTimeout)
	assert.Empty(t, cfg.WindyAPIKey)
	assert.Equal(t, "gfs", cfg.WindyModel)
	assert.Empty(t, cfg.PublicDataServiceKey)
	assert.Equal(t, 108, cfg.WarningStationID)
	assert.Empty(t, cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIFallbackModel)
	assert.Equal(t, 20*time.Second, cfg.OpenAITimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATABASE_URL", "postgres://db:5432/reports")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("WINDY_API_KEY", "windy-key")
	t.Setenv("WINDY_MODEL", "iconEu")
	t.Setenv("PUBLIC_DATA_SERVICE_KEY", "data-key")
	t.Setenv("WARNING_STATION_ID", "184")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_FALLBACK_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "postgres://db:5432/reports", cfg.DatabaseURL)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "windy-key", cfg.WindyAPIKey)
	assert.Equal(t, "iconEu", cfg.WindyModel)
	assert.Equal(t, "data-key", cfg.PublicDataServiceKey)
	assert.Equal(t, 184, cfg.WarningStationID)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIFallbackModel)
	assert.Equal(t, 45*time.Second, cfg.OpenAITimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, key := range []string{"UPSTREAM_TIMEOUT", "OPENAI_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "-2s")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidWarningStationID(t *testing.T) {
	t.Setenv("WARNING_STATION_ID", "seoul")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WARNING_STATION_ID")
}

func TestLoad_EmptyDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	require.NoError(t, err, "blank DATABASE_URL falls back to the default")
	assert.NotEmpty(t, cfg.DatabaseURL)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaEnabledWithDefaultBroker(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
}

func TestLoad_KafkaEnabledMissingSinkTopic(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_SINK_TOPIC", "")
	_, err := Load()
	// EnvOrDefault treats blank as unset, so the default topic applies.
	require.NoError(t, err)
}
