package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/api/handler"
	"github.com/cuongbtq/interpreter-booking/internal/api/publisher"
	"github.com/cuongbtq/interpreter-booking/internal/api/router"
	"github.com/cuongbtq/interpreter-booking/internal/booking/engine"
	"github.com/cuongbtq/interpreter-booking/internal/booking/matcher"
	"github.com/cuongbtq/interpreter-booking/internal/config"
	"github.com/cuongbtq/interpreter-booking/internal/storage"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
	"github.com/cuongbtq/interpreter-booking/shared/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		appLogger = logger.NewDefault()
		appLogger.Warn("Falling back to console logger", slog.Any("error", err))
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	shutdownTelemetry, err := telemetry.Setup(&telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		ExportInterval: cfg.Telemetry.ExportInterval,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := storage.Migrate(migrateCtx, dbClient)
		cancel()
		if err != nil {
			dbClient.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		appLogger.Info("Database schema applied")
	}

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	bookingEngine, err := initEngine(cfg, dbClient, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		rabbitClient.Close()
		return err
	}

	r := initRouter(cfg.App, appLogger.Logger, bookingEngine, dbClient, rabbitClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case runErr = <-serverErr:
		appLogger.Error("Server failed", slog.Any("error", runErr))
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

	cleanup := func() {
		cancel()
		if err := shutdownTelemetry(context.Background()); err != nil {
			appLogger.Warn("Failed to flush telemetry", slog.Any("error", err))
		}
		dbClient.Close()
		rabbitClient.Close()
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableSource,
		NoColor:      cfg.NoColor,
		TimeFormat:   time.RFC3339,
	})
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		ApplicationName: cfg.ApplicationName,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ connects the event publisher. The API only declares the
// exchange; the worker owns the queue.
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// initEngine wires the lifecycle engine to the Postgres store and directory
func initEngine(cfg *config.Config, dbClient *postgresql.Client, logger *slog.Logger) (*engine.Engine, error) {
	loc, err := cfg.Booking.Location()
	if err != nil {
		return nil, err
	}

	directory := storage.NewDirectory(dbClient, logger)
	return engine.New(&engine.Config{
		Store:     storage.NewJobStore(dbClient, logger),
		Directory: directory,
		Matcher:   matcher.New(directory, logger),
		Rules: engine.Rules{
			ImmediateLeadTime:  cfg.Booking.ImmediateLeadTime,
			CancellationWindow: cfg.Booking.CancellationWindow,
			Location:           loc,
		},
		Logger: logger,
	}), nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(app config.AppConfig, logger *slog.Logger, bookingEngine *engine.Engine, dbClient *postgresql.Client, rabbitClient *rabbitmq.Client) *gin.Engine {
	if app.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger:      logger,
		Engine:      bookingEngine,
		Publisher:   publisher.New(rabbitClient, logger),
		Health:      dbClient,
		ServiceName: app.Name,
	})
}
