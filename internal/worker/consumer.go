package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer starts consuming with the configured prefetch and returns the delivery channel
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if w.source == nil {
		return nil, fmt.Errorf("delivery source is nil")
	}

	deliveries, err := w.source.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	return deliveries, nil
}

// decodeEvent parses a delivery body into a booking event
func decodeEvent(body []byte) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	if ev.Type == "" || ev.Job.ID <= 0 {
		return ev, fmt.Errorf("%w: missing type or job", domain.ErrInvalidEvent)
	}
	return ev, nil
}

// startMessageDispatcher decodes deliveries and hands them to the worker pool
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - stopChan closed")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			ev, err := decodeEvent(delivery.Body)
			if err != nil {
				w.logger.Error("Failed to decode event message",
					slog.String("error", err.Error()),
					slog.String("message_id", delivery.MessageId),
				)
				// Malformed messages are dead-lettered, never requeued
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			select {
			case w.eventsChan <- &eventMessage{event: ev, delivery: delivery}:
				w.logger.Debug("Event dispatched to worker pool",
					slog.String("event_id", ev.ID),
					slog.String("type", string(ev.Type)),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.requeueOnShutdown(delivery)
				return
			case <-w.stopChan:
				w.requeueOnShutdown(delivery)
				return
			}
		}
	}
}

func (w *Worker) requeueOnShutdown(delivery amqp.Delivery) {
	w.logger.Info("Message dispatcher stopped while dispatching event")
	if nackErr := delivery.Nack(false, true); nackErr != nil {
		w.logger.Error("Failed to NACK message on shutdown",
			slog.String("error", nackErr.Error()),
		)
	}
}
