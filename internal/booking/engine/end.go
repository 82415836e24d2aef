package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// EndJob completes a started session. The session time is measured from the
// scheduled due, not from the actual start.
func (e *Engine) EndJob(ctx context.Context, actor domain.Actor, jobID int64) (*Result, error) {
	var (
		res          *Result
		job          *domain.Job
		translatorID int64
		elapsed      time.Duration
	)
	now := e.now()

	err := e.store.RunInTx(ctx, func(ctx context.Context, tx domain.Store) error {
		locked, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to lock job %d: %w", jobID, err)
		}
		if locked.Status != domain.StatusStarted {
			res = success(locked, "")
			return nil
		}

		current, err := tx.CurrentAssignment(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to get assignment of job %d: %w", jobID, err)
		}
		if current == nil {
			res = fail(ReasonNotAssigned, msgNoTranslator)
			return nil
		}

		elapsed = now.Sub(locked.Due)
		locked.Status = domain.StatusCompleted
		locked.EndAt = ptrTime(now)
		locked.SessionTime = FormatSessionTime(elapsed)
		locked.UpdatedAt = now
		if err := tx.UpdateJob(ctx, locked); err != nil {
			return fmt.Errorf("failed to update job %d: %w", jobID, err)
		}

		err = tx.CloseAssignment(ctx, current.ID, domain.AssignmentClose{
			CompletedAt: ptrTime(now),
			CompletedBy: ptrInt64(actor.ID),
		})
		if err != nil {
			return fmt.Errorf("failed to complete assignment %d: %w", current.ID, err)
		}
		translatorID = current.TranslatorID
		job = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}

	e.checkSessionLength(job, elapsed)

	e.logger.Info("Session ended",
		slog.Int64("job_id", job.ID),
		slog.Int64("translator_id", translatorID),
		slog.String("session_time", job.SessionTime),
	)

	ev := domain.NewEvent(domain.EventSessionEnded, job, actor, now)
	ev.TranslatorID = translatorID
	return success(job, msgSessionEnded, ev), nil
}

// CustomerNotCall marks a booking as not carried out because the customer
// never showed up
func (e *Engine) CustomerNotCall(ctx context.Context, actor domain.Actor, jobID int64) (*Result, error) {
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
		if locked.Status != domain.StatusAssigned && locked.Status != domain.StatusStarted {
			res = fail(ReasonInvalidState, fmt.Sprintf(msgStatusForbidden, locked.Status, domain.StatusNotCarriedOutCustomer))
			return nil
		}

		current, err := tx.CurrentAssignment(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to get assignment of job %d: %w", jobID, err)
		}
		if current != nil {
			translatorID = current.TranslatorID
			err = tx.CloseAssignment(ctx, current.ID, domain.AssignmentClose{
				CompletedAt: ptrTime(now),
				CompletedBy: ptrInt64(current.TranslatorID),
			})
			if err != nil {
				return fmt.Errorf("failed to complete assignment %d: %w", current.ID, err)
			}
		}

		locked.Status = domain.StatusNotCarriedOutCustomer
		locked.EndAt = ptrTime(now)
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

	ev := domain.NewEvent(domain.EventCustomerNotCall, job, actor, now)
	ev.TranslatorID = translatorID
	return success(job, msgNotCarriedOut, ev), nil
}

// FormatSessionTime renders a duration as total hours, minutes and seconds
// without padding, e.g. 1:5:0
func FormatSessionTime(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%d:%d", total/3600, (total/60)%60, total%60)
}

func (e *Engine) checkSessionLength(job *domain.Job, elapsed time.Duration) {
	booked := time.Duration(job.Duration) * time.Minute
	if booked <= 0 || elapsed < 2*booked {
		return
	}
	e.logger.Warn("Session time exceeds twice the booked duration",
		slog.Int64("job_id", job.ID),
		slog.Int("duration_min", job.Duration),
		slog.String("session_time", job.SessionTime),
	)
}
