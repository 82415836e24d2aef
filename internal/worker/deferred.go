package worker

import (
	"context"
	"log/slog"
	"time"
)

// pollDeferred sends night-time pushes once business hours begin
func (w *Worker) pollDeferred(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("Deferred push poller started",
		slog.Duration("interval", w.pollInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.flushDeferred(ctx)
		}
	}
}

// flushDeferred sends every due push; it returns how many were sent
func (w *Worker) flushDeferred(ctx context.Context) int {
	pushes, err := w.deferred.Due(ctx, w.clock.Now(), w.pollBatchSize)
	if err != nil {
		w.logger.Error("Failed to read deferred pushes",
			slog.String("error", err.Error()),
		)
	}

	sent := 0
	for _, push := range pushes {
		if err := w.sender.SendScheduled(ctx, push); err != nil {
			w.logger.Error("Failed to send deferred push",
				slog.String("id", push.ID),
				slog.Int64("job_id", push.JobID),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}

	if sent > 0 {
		w.logger.Info("Deferred pushes sent", slog.Int("count", sent))
	}
	return sent
}
