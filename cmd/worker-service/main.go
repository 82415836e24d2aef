package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/matcher"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify/redisscheduler"
	"github.com/cuongbtq/interpreter-booking/internal/channel"
	"github.com/cuongbtq/interpreter-booking/internal/config"
	"github.com/cuongbtq/interpreter-booking/internal/storage"
	"github.com/cuongbtq/interpreter-booking/internal/worker"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
	"github.com/cuongbtq/interpreter-booking/shared/redis"
	"github.com/cuongbtq/interpreter-booking/shared/telemetry"
	"github.com/google/uuid"
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

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		appLogger = logger.NewDefault()
		appLogger.Warn("Falling back to console logger", slog.Any("error", err))
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
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

	redisClient, err := initRedis(&cfg.Redis, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		redisClient.Close()
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	cleanup := func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			appLogger.Warn("Failed to flush telemetry", slog.Any("error", err))
		}
		dbClient.Close()
		redisClient.Close()
		rabbitClient.Close()
	}
	defer cleanup()

	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}

	directory := storage.NewDirectory(dbClient, appLogger.Logger)
	scheduler := redisscheduler.New(redisClient.GetClient(), cfg.Redis.DeferredKey, appLogger.Logger)
	dispatcher := initDispatcher(&cfg.Notification, loc, directory, scheduler, appLogger.Logger)

	if backlog, err := scheduler.Pending(context.Background()); err != nil {
		appLogger.Warn("Failed to count deferred pushes", slog.Any("error", err))
	} else {
		appLogger.Info("Deferred pushes waiting", slog.Int64("count", backlog))
	}

	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		Source:        rabbitClient,
		Handler:       notify.NewHandler(dispatcher, directory, appLogger.Logger),
		Deferred:      scheduler,
		Sender:        dispatcher,
		WorkerID:      workerID,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		EventTimeout:  cfg.Worker.EventTimeout,
		PollInterval:  cfg.Worker.PollInterval,
		PollBatchSize: cfg.Worker.PollBatchSize,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerID),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
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

// initPostgreSQL opens the directory database
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

// initRedis connects the deferred push store
func initRedis(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	return redis.NewClient(&redis.Config{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}, logger)
}

// initRabbitMQ declares the queue and binds it to the event exchange
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	bindingKey := cfg.BindingKey
	if bindingKey == "" {
		bindingKey = "#"
	}

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
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		BindingKey:         bindingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
	}, logger)
}

// initDispatcher builds the notification dispatcher over the provider clients
func initDispatcher(cfg *config.NotificationConfig, loc *time.Location, directory *storage.Directory, scheduler notify.Scheduler, logger *slog.Logger) *notify.Dispatcher {
	hours := notify.DefaultBusinessHours()
	if cfg.BusinessHours.EndHour > 0 {
		hours.StartHour = cfg.BusinessHours.StartHour
		hours.EndHour = cfg.BusinessHours.EndHour
	}
	hours.Location = loc

	return notify.NewDispatcher(&notify.Config{
		Pusher: channel.NewPushClient(&channel.PushConfig{
			BaseURL: cfg.Push.BaseURL,
			AppID:   cfg.Push.AppID,
			APIKey:  cfg.Push.APIKey,
			Title:   cfg.Push.Title,
			Timeout: cfg.Push.Timeout,
		}, logger),
		Mailer: channel.NewSMTPMailer(&channel.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, logger),
		SMS: channel.NewSMSClient(&channel.SMSConfig{
			BaseURL:  cfg.SMS.BaseURL,
			Username: cfg.SMS.Username,
			Password: cfg.SMS.Password,
			From:     cfg.SMS.From,
			Timeout:  cfg.SMS.Timeout,
		}, logger),
		Scheduler:   scheduler,
		Finder:      matcher.New(directory, logger),
		Directory:   directory,
		Hours:       hours,
		Timeout:     cfg.Timeout,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	})
}
