package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// JobEmailRequest sets the contact details used for the booking confirmation
type JobEmailRequest struct {
	UserEmail    string
	Reference    string
	Address      *string
	Instructions *string
	Town         *string
}

// StoreJobEmail records the confirmation contact of a job and requests the
// confirmation email. Missing address fields fall back to the customer profile.
func (e *Engine) StoreJobEmail(ctx context.Context, actor domain.Actor, jobID int64, req JobEmailRequest) (*Result, error) {
	job, err := e.mutate(ctx, jobID, func(ctx context.Context, job *domain.Job) error {
		customer, err := e.dir.Customer(ctx, job.UserID)
		if err != nil {
			return fmt.Errorf("failed to get customer %d: %w", job.UserID, err)
		}
		job.UserEmail = strings.TrimSpace(req.UserEmail)
		job.Reference = req.Reference
		job.Address = valueOr(req.Address, customer.Address)
		job.Instructions = valueOr(req.Instructions, customer.Instructions)
		job.Town = valueOr(req.Town, customer.Town)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := domain.NewEvent(domain.EventConfirmationRequested, job, actor, e.now())
	return success(job, "", ev), nil
}

// DistanceRequest is a dispatcher's travel and review feed for a job
type DistanceRequest struct {
	Distance        string
	Time            string
	SessionTime     string
	AdminComment    string
	Flagged         bool
	ManuallyHandled bool
	ByAdmin         bool
}

// DistanceFeed updates travel data and review flags of a job
func (e *Engine) DistanceFeed(ctx context.Context, actor domain.Actor, jobID int64, req DistanceRequest) (*Result, error) {
	if req.Flagged && strings.TrimSpace(req.AdminComment) == "" {
		return invalidField("admincomment", msgAddComment), nil
	}

	var job *domain.Job
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx domain.Store) error {
		locked, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to lock job %d: %w", jobID, err)
		}

		if req.Distance != "" || req.Time != "" {
			err := tx.UpsertDistance(ctx, &domain.Distance{
				JobID:           jobID,
				Distance:        req.Distance,
				Time:            req.Time,
				Flagged:         req.Flagged,
				ManuallyHandled: req.ManuallyHandled,
				ByAdmin:         req.ByAdmin,
			})
			if err != nil {
				return fmt.Errorf("failed to store distance of job %d: %w", jobID, err)
			}
		}

		locked.AdminComments = req.AdminComment
		if req.SessionTime != "" {
			locked.SessionTime = req.SessionTime
		}
		locked.ByAdmin = req.ByAdmin
		locked.UpdatedAt = e.now()
		if err := tx.UpdateJob(ctx, locked); err != nil {
			return fmt.Errorf("failed to update job %d: %w", jobID, err)
		}
		job = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Distance feed stored",
		slog.Int64("job_id", jobID),
		slog.Int64("actor_id", actor.ID),
		slog.Bool("flagged", req.Flagged),
	)
	return success(job, msgRecordUpdated), nil
}

// ResendNotifications offers the job to its candidates again
func (e *Engine) ResendNotifications(ctx context.Context, actor domain.Actor, jobID int64) (*Result, error) {
	job, err := e.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ev := domain.NewEvent(domain.EventNotifyRequested, job, actor, e.now())
	e.attachCandidates(ctx, &ev, 0)
	return success(job, msgPushSent, ev), nil
}

// ResendSMSNotifications texts the job to its candidates
func (e *Engine) ResendSMSNotifications(ctx context.Context, actor domain.Actor, jobID int64) (*Result, error) {
	job, err := e.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ev := domain.NewEvent(domain.EventSMSRequested, job, actor, e.now())
	return success(job, msgSMSSent, ev), nil
}

// SendExpiredNotification tells the customer nobody took the job
func (e *Engine) SendExpiredNotification(ctx context.Context, actor domain.Actor, jobID int64) (*Result, error) {
	job, err := e.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ev := domain.NewEvent(domain.EventJobExpired, job, actor, e.now())
	return success(job, msgPushSent, ev), nil
}

// IgnoreExpiring hides the job from the expiring list
func (e *Engine) IgnoreExpiring(ctx context.Context, jobID int64) (*Result, error) {
	job, err := e.mutate(ctx, jobID, func(_ context.Context, job *domain.Job) error {
		job.Ignore = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return success(job, msgRecordUpdated), nil
}

// IgnoreExpired hides the job from the expired list
func (e *Engine) IgnoreExpired(ctx context.Context, jobID int64) (*Result, error) {
	job, err := e.mutate(ctx, jobID, func(_ context.Context, job *domain.Job) error {
		job.IgnoreExpired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return success(job, msgRecordUpdated), nil
}

// PotentialJobs returns the pending jobs the translator qualifies for
func (e *Engine) PotentialJobs(ctx context.Context, translatorID int64) ([]domain.Job, error) {
	profile, err := e.dir.Profile(ctx, translatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get translator %d: %w", translatorID, err)
	}
	if profile.Languages == nil {
		if profile.Languages, err = e.dir.LanguagesOf(ctx, translatorID); err != nil {
			return nil, fmt.Errorf("failed to get languages of translator %d: %w", translatorID, err)
		}
	}

	pending, err := e.store.ListJobs(ctx, domain.JobFilter{Statuses: []domain.JobStatus{domain.StatusPending}})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(pending))
	for i := range pending {
		ok, err := e.matcher.IsEligible(ctx, &pending[i], profile)
		if err != nil {
			return nil, err
		}
		if ok {
			jobs = append(jobs, pending[i])
		}
	}
	return jobs, nil
}

// mutate applies fn to the locked job and stores it
func (e *Engine) mutate(ctx context.Context, jobID int64, fn func(ctx context.Context, job *domain.Job) error) (*domain.Job, error) {
	var job *domain.Job
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx domain.Store) error {
		locked, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to lock job %d: %w", jobID, err)
		}
		if err := fn(ctx, locked); err != nil {
			return err
		}
		locked.UpdatedAt = e.now()
		if err := tx.UpdateJob(ctx, locked); err != nil {
			return fmt.Errorf("failed to update job %d: %w", jobID, err)
		}
		job = locked
		return nil
	})
	return job, err
}

func valueOr(v *string, fallback string) string {
	if v != nil && strings.TrimSpace(*v) != "" {
		return *v
	}
	return fallback
}
