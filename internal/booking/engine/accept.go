package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

var (
	errAlreadyTaken  = errors.New("job already taken")
	errAlreadyBooked = errors.New("translator already booked")
)

// AcceptJob assigns a pending job to the acting translator. At most one
// concurrent acceptance wins; the others get already_taken. Accepts by the
// same translator serialize so overlapping claims cannot both succeed.
func (e *Engine) AcceptJob(ctx context.Context, actor domain.Actor, jobID int64) (*Result, error) {
	if actor.Role != domain.RoleTranslator {
		return fail(ReasonNotPermitted, msgOnlyTranslatorsAccept), nil
	}

	var job *domain.Job
	now := e.now()
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx domain.Store) error {
		if err := tx.LockTranslator(ctx, actor.ID); err != nil {
			return fmt.Errorf("failed to lock translator %d: %w", actor.ID, err)
		}
		locked, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to lock job %d: %w", jobID, err)
		}
		job = locked

		booked, err := tx.HasOverlappingAssignment(ctx, actor.ID, locked.ID, locked.Due, locked.End())
		if err != nil {
			return fmt.Errorf("failed to check bookings of translator %d: %w", actor.ID, err)
		}
		if booked {
			return errAlreadyBooked
		}
		if locked.Status != domain.StatusPending {
			return errAlreadyTaken
		}

		if _, err := tx.InsertAssignmentIfAbsent(ctx, jobID, actor.ID, now); err != nil {
			if errors.Is(err, domain.ErrAssignmentExists) {
				return errAlreadyTaken
			}
			return fmt.Errorf("failed to insert assignment: %w", err)
		}

		locked.Status = domain.StatusAssigned
		locked.UpdatedAt = now
		if err := tx.UpdateJob(ctx, locked); err != nil {
			return fmt.Errorf("failed to update job %d: %w", jobID, err)
		}
		return nil
	})
	if errors.Is(err, errAlreadyBooked) {
		return fail(ReasonAlreadyBooked, fmt.Sprintf(msgAlreadyBooked, job.Due.Format(dueLayout))), nil
	}
	if errors.Is(err, errAlreadyTaken) {
		return fail(ReasonAlreadyTaken, msgAlreadyTaken), nil
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("Job accepted",
		slog.Int64("job_id", job.ID),
		slog.Int64("translator_id", actor.ID),
	)

	ev := domain.NewEvent(domain.EventJobAccepted, job, actor, now)
	ev.TranslatorID = actor.ID

	message := fmt.Sprintf(msgAccepted,
		e.languageName(ctx, job.FromLanguageID), job.Duration, job.Due.Format(dueLayout))
	return success(job, message, ev), nil
}
