package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config holds metrics export configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	ExportInterval time.Duration
	Writer         io.Writer
}

// ShutdownFunc flushes and stops the meter provider
type ShutdownFunc func(ctx context.Context) error

// Setup installs a global MeterProvider that periodically exports to
// cfg.Writer. When disabled the global no-op provider stays in place.
func Setup(cfg *Config, logger *slog.Logger) (ShutdownFunc, error) {
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return func(context.Context) error { return nil }, nil
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}
	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = time.Minute
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(writer))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	logger.Info("Telemetry enabled",
		slog.String("service", cfg.ServiceName),
		slog.Duration("export_interval", interval),
	)

	return provider.Shutdown, nil
}
