package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/expiry"
)

// CancelJob withdraws a booking. Customers withdraw their own job; a
// translator or an admin returns an assigned job to the pool.
func (e *Engine) CancelJob(ctx context.Context, actor domain.Actor, jobID int64) (*Result, error) {
	var (
		res          *Result
		job          *domain.Job
		translatorID int64
	)
	now := e.now()

	err := e.store.RunInTx(ctx, func(ctx context.Context, tx domain.Store) error {
		locked, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to lock job %d: %w", jobID, err)
		}
		if locked.Status != domain.StatusPending && locked.Status != domain.StatusAssigned {
			res = fail(ReasonInvalidState, msgNotCancellable)
			return nil
		}

		current, err := tx.CurrentAssignment(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to get assignment of job %d: %w", jobID, err)
		}

		if actor.Role == domain.RoleCustomer {
			if locked.UserID != actor.ID {
				res = fail(ReasonNotPermitted, msgNotYourBooking)
				return nil
			}
			locked.WithdrawAt = ptrTime(now)
			if locked.Due.Sub(now) >= e.rules.CancellationWindow {
				locked.Status = domain.StatusWithdrawBefore24
			} else {
				locked.Status = domain.StatusWithdrawAfter24
			}
		} else {
			if current == nil {
				res = fail(ReasonNotAssigned, msgNoTranslator)
				return nil
			}
			if actor.Role == domain.RoleTranslator && current.TranslatorID != actor.ID {
				res = fail(ReasonNotPermitted, msgNotYourBooking)
				return nil
			}
			if actor.Role != domain.RoleTranslator && !actor.Role.IsAdmin() {
				res = fail(ReasonNotPermitted, msgNotYourBooking)
				return nil
			}
			if locked.Due.Sub(now) <= e.rules.CancellationWindow {
				res = fail(ReasonCancellationWindow, msgCancellationWindow)
				return nil
			}
			locked.Status = domain.StatusPending
			locked.CreatedAt = now
			locked.WillExpireAt = expiry.At(locked.Due, now)
		}

		if current != nil {
			translatorID = current.TranslatorID
			if err := tx.CloseAssignment(ctx, current.ID, domain.AssignmentClose{CancelAt: ptrTime(now)}); err != nil {
				return fmt.Errorf("failed to cancel assignment %d: %w", current.ID, err)
			}
		}

		locked.UpdatedAt = now
		if err := tx.UpdateJob(ctx, locked); err != nil {
			return fmt.Errorf("failed to update job %d: %w", jobID, err)
		}
		job = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}

	e.logger.Info("Job cancelled",
		slog.Int64("job_id", job.ID),
		slog.Int64("actor_id", actor.ID),
		slog.String("role", string(actor.Role)),
		slog.String("status", string(job.Status)),
	)

	if actor.Role == domain.RoleCustomer {
		ev := domain.NewEvent(domain.EventJobWithdrawn, job, actor, now)
		ev.TranslatorID = translatorID
		return success(job, msgCancelled, ev), nil
	}

	ev := domain.NewEvent(domain.EventTranslatorCancelled, job, actor, now)
	ev.TranslatorID = translatorID
	e.attachCandidates(ctx, &ev, translatorID)
	return success(job, msgCancelled, ev), nil
}
