// Package publisher forwards committed lifecycle events to the message bus.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
)

// Broker is the subset of the RabbitMQ client the publisher needs
type Broker interface {
	PublishWithRetry(ctx context.Context, msg rabbitmq.Message) error
}

// Publisher serialises events and publishes them with the event type as
// routing key
type Publisher struct {
	broker Broker
	logger *slog.Logger
}

// New creates a Publisher
func New(broker Broker, logger *slog.Logger) *Publisher {
	return &Publisher{
		broker: broker,
		logger: logger,
	}
}

// Encode builds the bus message of an event
func Encode(ev domain.Event) (rabbitmq.Message, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return rabbitmq.Message{}, fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}
	return rabbitmq.Message{
		ID:          ev.ID,
		Type:        string(ev.Type),
		RoutingKey:  string(ev.Type),
		ContentType: "application/json",
		Body:        body,
	}, nil
}

// PublishEvents publishes each event. Failures are logged and never returned:
// the transition that produced them is already committed.
func (p *Publisher) PublishEvents(ctx context.Context, events []domain.Event) {
	for _, ev := range events {
		msg, err := Encode(ev)
		if err == nil {
			err = p.broker.PublishWithRetry(ctx, msg)
		}
		if err != nil {
			p.logger.Error("Failed to publish booking event",
				slog.String("event_id", ev.ID),
				slog.String("event_type", string(ev.Type)),
				slog.Int64("job_id", ev.Job.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.logger.Debug("Booking event published",
			slog.String("event_id", ev.ID),
			slog.String("event_type", string(ev.Type)),
		)
	}
}
