package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/config"
	"github.com/noah-isme/coursekeep-go/internal/database"
	"github.com/noah-isme/coursekeep-go/internal/handler"
	"github.com/noah-isme/coursekeep-go/internal/middleware"
	"github.com/noah-isme/coursekeep-go/internal/observability"
	"github.com/noah-isme/coursekeep-go/internal/router"
	"github.com/noah-isme/coursekeep-go/internal/service"
	"github.com/noah-isme/coursekeep-go/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	observability.RegisterMetrics()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	substrate, err := openSubstrate(cfg, redisClient)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	if cfg.StorageQuotaBytes > 0 {
		substrate = storage.WithQuota(substrate, cfg.StorageQuotaBytes)
	}

	store, err := storage.NewStore(substrate, logger)
	if err != nil {
		log.Fatalf("failed to create store: %v", err)
	}

	migrationService := service.NewMigrationService(store, cfg.MigrationVersion, cfg.MigrationKeep, logger)
	if result := migrationService.RunAutoMigration(rootCtx); !result.Success {
		logger.Error().Str("reason", result.Message).Msg("startup migration failed, continuing with unmigrated data")
	}

	publisher := service.NewActivityPublisher(natsPublisher(cfg, logger), redisPublisher(cfg, redisClient))

	validate := validator.New(validator.WithRequiredStructEnabled())

	progressService := service.NewProgressService(store, publisher, logger)
	catalogService := service.NewCatalogService(store, progressService, validate, logger)
	analyticsService := service.NewAnalyticsService(catalogService, progressService, redisClient, cfg.AnalyticsCacheTTL, logger)
	draftService := service.NewDraftService(store, logger)
	autosaver := service.NewAutosaver(draftService, cfg.DraftAutosavePeriod, logger)

	go autosaver.Run(rootCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:    handler.NewCourseHandler(catalogService, progressService, logger),
		ProgressHandler:  handler.NewProgressHandler(progressService, logger),
		DraftHandler:     handler.NewDraftHandler(draftService, autosaver, logger),
		AnalyticsHandler: handler.NewAnalyticsHandler(analyticsService, logger),
		MigrationHandler: handler.NewMigrationHandler(migrationService, catalogService, logger),
		Storage:          store,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-rootCtx.Done()
	waitForShutdown(app, autosaver, publisher, logger)
}

func openSubstrate(cfg config.Config, redisClient *redis.Client) (storage.Substrate, error) {
	switch cfg.StorageDriver {
	case config.DriverRedis:
		return storage.NewRedis(redisClient, cfg.StorageNamespace), nil
	case config.DriverSQLite:
		db, err := database.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return storage.NewGorm(db, cfg.StorageNamespace)
	case config.DriverPostgres:
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return storage.NewGorm(db, cfg.StorageNamespace)
	default:
		return storage.NewMemory(), nil
	}
}

func natsPublisher(cfg config.Config, logger zerolog.Logger) service.ActivityPublisher {
	if cfg.NATSURL == "" {
		return nil
	}
	conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
	if err != nil {
		logger.Warn().Err(err).Msg("nats connect failed, activity events stay local")
		return nil
	}
	return service.NewNATSActivityPublisher(conn, cfg.EventsSubject)
}

func redisPublisher(cfg config.Config, client *redis.Client) service.ActivityPublisher {
	if client == nil {
		return nil
	}
	return service.NewRedisActivityPublisher(client, cfg.EventsSubject)
}

// waitForShutdown saves the pending draft before the server stops, then flushes activity events.
func waitForShutdown(app *fiber.App, autosaver *service.Autosaver, publisher service.ActivityPublisher, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	autosaver.Flush(ctx)

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := service.CloseActivityPublisher(ctx, publisher); err != nil {
		logger.Warn().Err(err).Msg("closing activity publisher failed")
	}

	logger.Info().Msg("server stopped")
}
