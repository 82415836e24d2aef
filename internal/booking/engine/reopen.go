package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/expiry"
)

// Reopen puts a job back on offer after its translator dropped out. A timed
// out job is preserved and a pending copy is created in its place.
func (e *Engine) Reopen(ctx context.Context, actor domain.Actor, jobID int64) (*Result, error) {
	var (
		job      *domain.Job
		previous int64
		found    bool
	)
	now := e.now()

	err := e.store.RunInTx(ctx, func(ctx context.Context, tx domain.Store) error {
		locked, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to lock job %d: %w", jobID, err)
		}
		found = true

		if locked.Status != domain.StatusTimedOut {
			locked.Status = domain.StatusPending
			locked.CreatedAt = now
			locked.UpdatedAt = now
			locked.WillExpireAt = expiry.At(locked.Due, now)
			if err := tx.UpdateJob(ctx, locked); err != nil {
				return fmt.Errorf("failed to reset job %d: %w", jobID, err)
			}
			job = locked
		} else {
			reopened := *locked
			reopened.ID = 0
			reopened.Status = domain.StatusPending
			reopened.CreatedAt = now
			reopened.UpdatedAt = now
			reopened.WillExpireAt = expiry.At(locked.Due, now)
			reopened.AdminComments = fmt.Sprintf(msgReopeningOf, locked.ID)
			reopened.SessionTime = ""
			reopened.EndAt = nil
			reopened.WithdrawAt = nil
			reopened.Ignore = false
			reopened.IgnoreExpired = false
			reopened.Cust16HourEmail = false
			reopened.Cust48HourEmail = false
			if err := tx.CreateJob(ctx, &reopened); err != nil {
				return fmt.Errorf("failed to copy job %d: %w", jobID, err)
			}
			job = &reopened
			previous = locked.ID
		}

		if err := tx.CancelOpenAssignments(ctx, jobID, now); err != nil {
			return fmt.Errorf("failed to cancel assignments of job %d: %w", jobID, err)
		}
		placeholder := &domain.Assignment{
			JobID:        jobID,
			TranslatorID: actor.ID,
			AssignedAt:   now,
			CancelAt:     ptrTime(now),
		}
		if err := tx.CreateAssignment(ctx, placeholder); err != nil {
			return fmt.Errorf("failed to record reopen of job %d: %w", jobID, err)
		}
		return nil
	})
	if err != nil {
		if !found {
			return nil, err
		}
		e.logger.Error("Failed to reopen job",
			slog.Int64("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return fail(ReasonTryAgain, msgTryAgain), nil
	}

	e.logger.Info("Job reopened",
		slog.Int64("job_id", job.ID),
		slog.Int64("previous_job_id", previous),
		slog.Int64("actor_id", actor.ID),
	)

	ev := domain.NewEvent(domain.EventJobReopened, job, actor, now)
	ev.PreviousJobID = previous
	e.attachCandidates(ctx, &ev, 0)
	return success(job, msgReopened, ev), nil
}
