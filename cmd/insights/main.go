package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/marine-report-insights/internal/adapter/coastguard"
	httpadapter "github.com/couchcryptid/marine-report-insights/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/marine-report-insights/internal/adapter/kafka"
	"github.com/couchcryptid/marine-report-insights/internal/adapter/kma"
	"github.com/couchcryptid/marine-report-insights/internal/adapter/openai"
	"github.com/couchcryptid/marine-report-insights/internal/adapter/openmeteo"
	"github.com/couchcryptid/marine-report-insights/internal/adapter/postgres"
	"github.com/couchcryptid/marine-report-insights/internal/adapter/weather"
	"github.com/couchcryptid/marine-report-insights/internal/adapter/windy"
	"github.com/couchcryptid/marine-report-insights/internal/cache"
	"github.com/couchcryptid/marine-report-insights/internal/config"
	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/couchcryptid/marine-report-insights/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

const (
	weatherCacheEntries = 1024
	warningCacheEntries = 64
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	store, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	weatherSvc := weather.NewService(
		[]weather.Provider{
			windy.NewClient(cfg.WindyAPIKey, cfg.WindyModel, cfg.UpstreamTimeout, clock, metrics, logger),
			openmeteo.NewClient(cfg.UpstreamTimeout, clock, metrics, logger),
		},
		cache.New[*domain.MarineWeather](weatherCacheEntries, weather.TTL, clock),
		2*cfg.UpstreamTimeout, // one request timeout per provider
		metrics, logger,
	)
	warnings := kma.NewClient(cfg.PublicDataServiceKey, cfg.UpstreamTimeout,
		cache.New[[]domain.WeatherWarning](warningCacheEntries, kma.TTL, clock), clock, metrics, logger)
	stations := coastguard.NewDirectory(cfg.PublicDataServiceKey, cfg.UpstreamTimeout,
		cache.New[[]domain.CoastGuardStation](1, coastguard.TTL, clock), clock, metrics, logger)
	narrator := openai.NewGenerator(cfg.OpenAIAPIKey, []string{cfg.OpenAIModel, cfg.OpenAIFallbackModel},
		cfg.OpenAITimeout, clock, metrics, logger)

	if cfg.WindyAPIKey == "" {
		logger.Info("windy disabled, using open-meteo only")
	}
	if cfg.PublicDataServiceKey == "" {
		logger.Info("public data key missing, advisories disabled and built-in station list in use")
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Info("openai disabled, reports will have no AI narrative")
	}

	aggregator := pipeline.NewAggregator(weatherSvc, warnings, stations, cfg.WarningStationID, clock, metrics, logger)
	orchestrator := pipeline.NewOrchestrator(aggregator, narrator, clock, metrics, logger)
	enricher := pipeline.NewEnricher(store, orchestrator, metrics, logger)

	var (
		p      *pipeline.Pipeline
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(enricher, clock), writer, logger, metrics, cfg.BatchSize)
		logger.Info("kafka enrichment enabled", "source", cfg.KafkaSourceTopic, "sink", cfg.KafkaSinkTopic)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Insights:    enricher,
		Environment: aggregator,
		Ready:       store,
		Clock:       clock,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if p != nil {
		logger.Info("kafka enrichment stopped", "published", p.Published())
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
}
