package notify

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/cuongbtq/interpreter-booking/notify"

// Outcome labels a delivery attempt
type Outcome string

const (
	OutcomeSent     Outcome = "sent"
	OutcomeDeferred Outcome = "deferred"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Metrics counts notification deliveries per channel and outcome
type Metrics struct {
	deliveries metric.Int64Counter
}

// NewMetrics creates metrics on the global MeterProvider
func NewMetrics() *Metrics {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates metrics on the given meter
func NewMetricsWithMeter(meter metric.Meter) *Metrics {
	// on error the API hands back a noop counter
	deliveries, _ := meter.Int64Counter(
		"booking.notification.deliveries",
		metric.WithDescription("Notification delivery attempts"),
		metric.WithUnit("{notification}"),
	)
	return &Metrics{deliveries: deliveries}
}

func (m *Metrics) record(ctx context.Context, channel string, outcome Outcome, messageType string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", string(outcome)),
		attribute.String("type", messageType),
	))
}
