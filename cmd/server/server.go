package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/voltwise/prepaid-meter-service/internal/anomaly"
	"github.com/voltwise/prepaid-meter-service/internal/assistant"
	"github.com/voltwise/prepaid-meter-service/internal/config"
	"github.com/voltwise/prepaid-meter-service/internal/db"
	"github.com/voltwise/prepaid-meter-service/internal/mq"
	"github.com/voltwise/prepaid-meter-service/internal/repository"
	"github.com/voltwise/prepaid-meter-service/internal/service"
	"github.com/voltwise/prepaid-meter-service/internal/transport/httpapi"
	"github.com/voltwise/prepaid-meter-service/internal/usage"
	"github.com/voltwise/prepaid-meter-service/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	server *httpapi.Server,
) {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServicePort),
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting http server", zap.Int("port", cfg.ServicePort))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("shutting down http server")
			return httpServer.Shutdown(stopCtx)
		},
	})
}

// ProvideLocation resolves the single timezone basis used for calendar-day
// and period resolution everywhere in the service.
func ProvideLocation(cfg *config.Config) *time.Location {
	return cfg.Location()
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideStore exposes the repository through the service storage contract.
func ProvideStore(repo *repository.Repository) service.Store {
	return repo
}

// ProvideEngine creates the usage reconciliation engine.
func ProvideEngine(loc *time.Location) *usage.Engine {
	return usage.NewEngine(loc)
}

// ProvideAnomalyDetector creates a new anomaly detector instance
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDaysForSpike)
}

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config, loc *time.Location) *validator.Validator {
	return validator.NewValidator(cfg.Validation.FutureToleranceMinutes, loc)
}

// ProvideMQConnection creates a RabbitMQ connection, or nil when no
// RABBITMQ_URL is configured.
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Info("RABBITMQ_URL not set, event publishing disabled")
		return nil, nil
	}
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the event publisher, or nil when RabbitMQ is
// not configured.
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	if conn == nil {
		return nil, nil
	}
	return mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
}

// ProvideReadingService creates the reading submission service.
func ProvideReadingService(
	store service.Store,
	v *validator.Validator,
	publisher *mq.Publisher,
	cfg *config.Config,
	loc *time.Location,
	logger *zap.Logger,
) *service.ReadingService {
	return service.NewReadingService(store, v, publisher, cfg, loc, logger)
}

// ProvideUsageService creates the usage reconciliation service.
func ProvideUsageService(
	store service.Store,
	engine *usage.Engine,
	detector *anomaly.Detector,
	publisher *mq.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *service.UsageService {
	return service.NewUsageService(store, engine, detector, publisher, cfg, logger)
}

// ProvideAssistant creates the AI consumption assistant, or nil when no
// API key is configured.
func ProvideAssistant(cfg *config.Config, logger *zap.Logger) *assistant.Assistant {
	if cfg.Assistant.APIKey == "" {
		logger.Info("OPENAI_API_KEY not set, assistant disabled")
		return nil
	}
	return assistant.New(&assistant.Config{
		APIKey:  cfg.Assistant.APIKey,
		BaseURL: cfg.Assistant.BaseURL,
		Model:   cfg.Assistant.Model,
		Logger:  logger,
	})
}

// ProvideServer creates the HTTP API server.
func ProvideServer(
	readings *service.ReadingService,
	usageSvc *service.UsageService,
	asst *assistant.Assistant,
	logger *zap.Logger,
) *httpapi.Server {
	return httpapi.NewServer(readings, usageSvc, asst, logger)
}
