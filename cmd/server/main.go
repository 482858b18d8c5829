package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"carpool/internal/app"
	"carpool/internal/config"
	"carpool/internal/events"
	"carpool/internal/handler"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/repository/mongodb"
	"carpool/internal/repository/postgres"
	"carpool/internal/service"
)

// repositories groups the store-backed repositories.
type repositories struct {
	trips         repository.TripRepository
	confirmations repository.ConfirmationRepository
	ratings       repository.RatingRepository
	users         repository.UserRepository
	close         func()
}

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := app.NewLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	repos, err := openStore(ctx, cfg, nrApp, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer repos.close()

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	publisher := newPublisher(cfg.Kafka, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Warn("failed to close event publisher")
		}
	}()

	// Wire dependencies.
	server := wireServer(repos, redisClient, publisher, nrApp, cfg, logger)

	// Start server in goroutine.
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// openStore connects the configured document store and prepares its
// indexes or schema.
func openStore(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, logger *logrus.Logger) (*repositories, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		// Initialize database with New Relic instrumentation.
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return nil, err
		}
		if err := migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("connected to PostgreSQL")

		return &repositories{
			trips:         postgres.NewTripRepository(db),
			confirmations: postgres.NewConfirmationRepository(db),
			ratings:       postgres.NewRatingRepository(db),
			users:         postgres.NewUserRepository(db),
			close:         func() { _ = db.Close() },
		}, nil

	default:
		client, db, err := app.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = app.CloseMongo(client)
			return nil, err
		}
		logger.WithField("database", cfg.Mongo.Database).Info("connected to MongoDB")

		return &repositories{
			trips:         mongodb.NewTripRepository(db),
			confirmations: mongodb.NewConfirmationRepository(db),
			ratings:       mongodb.NewRatingRepository(db),
			users:         mongodb.NewUserRepository(db),
			close: func() {
				if err := app.CloseMongo(client); err != nil {
					logger.WithError(err).Warn("failed to disconnect from MongoDB")
				}
			},
		}, nil
	}
}

// migrate applies the schema in one transaction.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

// newPublisher returns a Kafka publisher, or a log-only one when no
// brokers are configured.
func newPublisher(cfg config.KafkaConfig, logger *logrus.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("no Kafka brokers configured, trip events are logged only")
		return events.NewLogPublisher(logger)
	}
	logger.WithFields(logrus.Fields{"brokers": cfg.Brokers, "topic": cfg.Topic}).Info("publishing trip events to Kafka")
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	repos *repositories,
	redisClient *redis.Client,
	publisher events.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *logrus.Logger,
) *http.Server {
	// Initialize Redis stores.
	cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Cache.RatingsTTL)

	// Initialize services.
	lifecycle := service.NewLifecycle(repos.trips, repos.confirmations, service.LifecycleConfig{
		Location:    cfg.Lifecycle.Location(),
		MaxAttempts: cfg.Lifecycle.CASAttempts,
	}, logger)
	notificationService := service.NewNotificationService(publisher, logger)
	tripService := service.NewTripService(lifecycle, repos.trips, repos.confirmations, repos.ratings, notificationService, logger)
	requestService := service.NewRequestService(lifecycle, repos.trips, notificationService, logger)
	confirmationService := service.NewConfirmationService(lifecycle, repos.confirmations, cacheStore, notificationService, logger)
	ratingService := service.NewRatingService(lifecycle, repos.ratings, repos.confirmations, repos.users, cacheStore, notificationService, logger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:         handler.NewTripHandler(tripService),
		RequestHandler:      handler.NewRequestHandler(requestService),
		ConfirmationHandler: handler.NewConfirmationHandler(confirmationService),
		RatingHandler:       handler.NewRatingHandler(ratingService),
		Auth:                cfg.Auth,
		RedisClient:         redisClient,
		IdempotencyTTL:      cfg.Cache.IdempotencyTTL,
		NewRelicApp:         nrApp,
		Logger:              logger,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
