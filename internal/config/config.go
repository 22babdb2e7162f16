package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	DatabaseURL     string

	// Enrichment worker. Disabled unless brokers are configured.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Upstream providers. A blank key disables the provider.
	UpstreamTimeout      time.Duration
	WindyAPIKey          string
	WindyModel           string
	PublicDataServiceKey string
	WarningStationID     int

	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIFallbackModel string
	OpenAITimeout       time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := parsePositiveDuration("UPSTREAM_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}

	openAITimeout, err := parsePositiveDuration("OPENAI_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}

	stationID, err := parseWarningStationID()
	if err != nil {
		return nil, err
	}

	kafkaEnabled := os.Getenv("KAFKA_BROKERS") != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		DatabaseURL:     sharedcfg.EnvOrDefault("DATABASE_URL", "postgres://localhost:5432/marine?sslmode=disable"),

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "report-submitted"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "report-insights"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "marine-report-insights"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		UpstreamTimeout:      upstreamTimeout,
		WindyAPIKey:          os.Getenv("WINDY_API_KEY"),
		WindyModel:           sharedcfg.EnvOrDefault("WINDY_MODEL", "gfs"),
		PublicDataServiceKey: os.Getenv("PUBLIC_DATA_SERVICE_KEY"),
		WarningStationID:     stationID,

		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         sharedcfg.EnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIFallbackModel: sharedcfg.EnvOrDefault("OPENAI_FALLBACK_MODEL", "gpt-3.5-turbo"),
		OpenAITimeout:       openAITimeout,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseWarningStationID() (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault("WARNING_STATION_ID", "108"))
	if err != nil || n <= 0 {
		return 0, errors.New("invalid WARNING_STATION_ID")
	}
	return n, nil
}
