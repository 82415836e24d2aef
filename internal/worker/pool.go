package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg := <-w.eventsChan:
			w.handleMessage(ctx, workerName, msg)
		}
	}
}

// handleMessage processes one event and settles its delivery
func (w *Worker) handleMessage(ctx context.Context, workerName string, msg *eventMessage) {
	ev := msg.event
	log := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("event_id", ev.ID),
		slog.String("type", string(ev.Type)),
		slog.Int64("job_id", ev.Job.ID),
	)

	err := w.processEvent(ctx, ev)
	if err == nil {
		if ackErr := msg.delivery.Ack(false); ackErr != nil {
			log.Error("Failed to ACK message", slog.String("error", ackErr.Error()))
			return
		}
		log.Info("Event processed successfully")
		return
	}

	requeue := shouldRequeue(err, msg.delivery.Redelivered)
	log.Error("Event processing failed",
		slog.String("error", err.Error()),
		slog.Bool("requeue", requeue),
	)
	if nackErr := msg.delivery.Nack(false, requeue); nackErr != nil {
		log.Error("Failed to NACK message", slog.String("error", nackErr.Error()))
	}
}

// processEvent runs the notification handler under the event timeout
func (w *Worker) processEvent(ctx context.Context, ev domain.Event) error {
	eventCtx, cancel := context.WithTimeout(ctx, w.eventTimeout)
	defer cancel()

	if err := w.handler.Handle(eventCtx, ev); err != nil {
		return fmt.Errorf("failed to handle event %s: %w", ev.Type, err)
	}
	return nil
}

// shouldRequeue requeues transient failures once; a redelivered message is
// dead-lettered so a persistent fault cannot loop forever.
func shouldRequeue(err error, redelivered bool) bool {
	if errors.Is(err, domain.ErrInvalidEvent) {
		return false
	}

	var retryableErr *domain.RetryableError
	if errors.As(err, &retryableErr) {
		return !redelivered
	}

	return false
}
