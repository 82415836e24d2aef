package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/expiry"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
)

// UpdateJobRequest is an admin edit. Zero values leave a field unchanged.
type UpdateJobRequest struct {
	TranslatorID    int64
	TranslatorEmail string
	Due             *time.Time
	FromLanguageID  int64
	Status          domain.JobStatus
	SessionTime     string
	AdminComments   *string
	Reference       *string
}

// rejection is a sub-change that was refused without touching the job
type rejection struct {
	field   string
	reason  Reason
	message string
}

// adminUpdate carries the state of one UpdateJob call across sub-changes
type adminUpdate struct {
	actor   domain.Actor
	req     UpdateJobRequest
	now     time.Time
	job     *domain.Job
	current *domain.Assignment

	previousTranslator int64
	translatorChanged  bool
	previousDue        *time.Time
	previousLanguage   int64

	changes  []Change
	events   []domain.Event
	rejected *rejection
}

func (u *adminUpdate) reject(field string, reason Reason, message string) {
	if u.rejected == nil {
		u.rejected = &rejection{field: field, reason: reason, message: message}
	}
}

// translatorID is the translator holding the job after the translator step
func (u *adminUpdate) translatorID() int64 {
	if u.current == nil {
		return 0
	}
	return u.current.TranslatorID
}

func (u *adminUpdate) event(t domain.EventType) domain.Event {
	ev := domain.NewEvent(t, u.job, u.actor, u.now)
	ev.TranslatorID = u.translatorID()
	return ev
}

// UpdateJob applies an admin edit. Translator, due, language and status are
// validated and applied independently in that order; a refused sub-change is
// reported next to the changes that did apply.
func (e *Engine) UpdateJob(ctx context.Context, actor domain.Actor, jobID int64, req UpdateJobRequest) (*Result, error) {
	if !actor.Role.IsAdmin() {
		return fail(ReasonNotPermitted, msgAdminOnly), nil
	}

	u := &adminUpdate{actor: actor, req: req, now: e.now()}

	err := e.store.RunInTx(ctx, func(ctx context.Context, tx domain.Store) error {
		job, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to lock job %d: %w", jobID, err)
		}
		u.job = job

		if u.current, err = tx.LatestAssignment(ctx, jobID); err != nil {
			return fmt.Errorf("failed to get assignment of job %d: %w", jobID, err)
		}

		if err := e.changeTranslator(ctx, tx, u); err != nil {
			return err
		}
		e.changeDue(u)
		e.changeLanguage(ctx, u)
		if err := e.changeStatus(ctx, tx, u); err != nil {
			return err
		}

		if req.AdminComments != nil {
			job.AdminComments = *req.AdminComments
		}
		if req.Reference != nil {
			job.Reference = *req.Reference
		}
		job.UpdatedAt = u.now
		if err := tx.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("failed to update job %d: %w", jobID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Booking updated by admin",
		logger.Audit(
			slog.Int64("actor_id", actor.ID),
			slog.String("actor_name", actor.Name),
			slog.Int64("job_id", jobID),
			slog.String("changes", describeChanges(u.changes)),
		),
	)

	events := u.events
	if u.job.Due.After(u.now) {
		events = append(e.changeEvents(u), events...)
	}

	if u.rejected != nil {
		res := invalidField(u.rejected.field, u.rejected.message)
		res.Reason = u.rejected.reason
		res.JobID = jobID
		res.Job = u.job
		res.Changes = u.changes
		res.Events = events
		return res, nil
	}

	res := success(u.job, msgUpdated, events...)
	res.Changes = u.changes
	return res, nil
}

func (e *Engine) changeTranslator(ctx context.Context, tx domain.Store, u *adminUpdate) error {
	if u.req.TranslatorID == 0 && u.req.TranslatorEmail == "" {
		return nil
	}

	var (
		target *domain.TranslatorProfile
		err    error
		field  = "translator"
	)
	if u.req.TranslatorEmail != "" {
		field = "translator_email"
		target, err = e.dir.TranslatorByEmail(ctx, u.req.TranslatorEmail)
	} else {
		target, err = e.dir.Profile(ctx, u.req.TranslatorID)
	}
	if errors.Is(err, domain.ErrTranslatorNotFound) {
		u.reject(field, ReasonValidation, msgUnknownTranslator)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve translator: %w", err)
	}

	if u.current != nil && u.current.TranslatorID == target.UserID {
		return nil
	}

	old := ""
	if u.current != nil {
		u.previousTranslator = u.current.TranslatorID
		old = strconv.FormatInt(u.current.TranslatorID, 10)
		if u.current.IsOpen() {
			err := tx.CloseAssignment(ctx, u.current.ID, domain.AssignmentClose{CancelAt: ptrTime(u.now)})
			if err != nil {
				return fmt.Errorf("failed to cancel assignment %d: %w", u.current.ID, err)
			}
		}
	}

	next, err := tx.InsertAssignmentIfAbsent(ctx, u.job.ID, target.UserID, u.now)
	if err != nil {
		return fmt.Errorf("failed to assign translator %d: %w", target.UserID, err)
	}
	u.current = next
	u.translatorChanged = true
	u.changes = append(u.changes, Change{
		Field: "translator",
		Old:   old,
		New:   strconv.FormatInt(target.UserID, 10),
	})
	return nil
}

func (e *Engine) changeDue(u *adminUpdate) {
	if u.req.Due == nil || u.req.Due.Equal(u.job.Due) {
		return
	}
	previous := u.job.Due
	u.previousDue = &previous
	u.job.Due = u.req.Due.In(e.rules.Location)
	u.changes = append(u.changes, Change{
		Field: "due",
		Old:   previous.Format(dueLayout),
		New:   u.job.Due.Format(dueLayout),
	})
}

func (e *Engine) changeLanguage(ctx context.Context, u *adminUpdate) {
	if u.req.FromLanguageID == 0 || u.req.FromLanguageID == u.job.FromLanguageID {
		return
	}
	u.previousLanguage = u.job.FromLanguageID
	u.changes = append(u.changes, Change{
		Field: "language",
		Old:   e.languageName(ctx, u.job.FromLanguageID),
		New:   e.languageName(ctx, u.req.FromLanguageID),
	})
	u.job.FromLanguageID = u.req.FromLanguageID
}

// changeStatus applies the admin status table, keyed by the current status
func (e *Engine) changeStatus(ctx context.Context, tx domain.Store, u *adminUpdate) error {
	next := u.req.Status
	old := u.job.Status
	if next == "" || next == old {
		return nil
	}

	comment := ""
	if u.req.AdminComments != nil {
		comment = strings.TrimSpace(*u.req.AdminComments)
	}
	forbidden := func() {
		u.reject("status", ReasonStatusNotAllowed, fmt.Sprintf(msgStatusForbidden, old, next))
	}
	needsComment := func() bool {
		if comment == "" {
			u.reject("admin_comments", ReasonMissingAdminComment, msgNeedsComment)
			return true
		}
		return false
	}

	switch old {
	case domain.StatusTimedOut:
		switch {
		case next == domain.StatusPending:
			u.job.Status = domain.StatusPending
			u.job.CreatedAt = u.now
			u.job.WillExpireAt = expiry.At(u.job.Due, u.now)
			candidates, err := e.candidates(ctx, u.job, 0)
			if err != nil {
				return err
			}
			ev := u.event(domain.EventStatusReopened)
			ev.Candidates = candidates
			u.events = append(u.events, ev)
		case u.translatorChanged:
			u.job.Status = next
			u.events = append(u.events, u.event(domain.EventAcceptanceConfirmed))
		default:
			forbidden()
			return nil
		}

	case domain.StatusCompleted:
		if next != domain.StatusTimedOut {
			forbidden()
			return nil
		}
		if needsComment() {
			return nil
		}
		u.job.Status = next

	case domain.StatusStarted:
		if next != domain.StatusCompleted {
			forbidden()
			return nil
		}
		if strings.TrimSpace(u.req.SessionTime) == "" {
			u.reject("session_time", ReasonMissingSessionTime, msgNeedsSession)
			return nil
		}
		u.job.Status = next
		u.job.SessionTime = strings.TrimSpace(u.req.SessionTime)
		u.job.EndAt = ptrTime(u.now)
		if u.current != nil && u.current.IsOpen() {
			err := tx.CloseAssignment(ctx, u.current.ID, domain.AssignmentClose{
				CompletedAt: ptrTime(u.now),
				CompletedBy: ptrInt64(u.actor.ID),
			})
			if err != nil {
				return fmt.Errorf("failed to complete assignment %d: %w", u.current.ID, err)
			}
		}
		u.events = append(u.events, u.event(domain.EventSessionCompletedByAdmin))

	case domain.StatusPending:
		switch {
		case next == domain.StatusAssigned && u.translatorChanged:
			u.job.Status = next
			u.events = append(u.events, u.event(domain.EventAssignedByAdmin))
		case next == domain.StatusAssigned:
			u.reject("translator", ReasonValidation, msgNoTranslator)
			return nil
		default:
			if next == domain.StatusTimedOut && needsComment() {
				return nil
			}
			u.job.Status = next
			u.events = append(u.events, u.event(domain.EventBookingCancelled))
		}

	case domain.StatusWithdrawAfter24:
		if next != domain.StatusTimedOut {
			forbidden()
			return nil
		}
		if needsComment() {
			return nil
		}
		u.job.Status = next

	case domain.StatusAssigned:
		switch next {
		case domain.StatusWithdrawBefore24, domain.StatusWithdrawAfter24, domain.StatusTimedOut:
		default:
			forbidden()
			return nil
		}
		if next == domain.StatusTimedOut && needsComment() {
			return nil
		}
		withdrawn := u.event(domain.EventWithdrawnByAdmin)
		if u.current != nil && u.current.IsOpen() {
			err := tx.CloseAssignment(ctx, u.current.ID, domain.AssignmentClose{CancelAt: ptrTime(u.now)})
			if err != nil {
				return fmt.Errorf("failed to cancel assignment %d: %w", u.current.ID, err)
			}
		}
		u.job.Status = next
		if next != domain.StatusTimedOut {
			u.job.WithdrawAt = ptrTime(u.now)
			withdrawn.Job = *u.job
			u.events = append(u.events, withdrawn)
		}

	default:
		forbidden()
		return nil
	}

	u.changes = append(u.changes, Change{Field: "status", Old: string(old), New: string(next)})
	return nil
}

// changeEvents notifies the parties of due, translator and language edits
func (e *Engine) changeEvents(u *adminUpdate) []domain.Event {
	var events []domain.Event
	if u.previousDue != nil {
		ev := u.event(domain.EventDueChanged)
		ev.PreviousDue = u.previousDue
		events = append(events, ev)
	}
	if u.translatorChanged {
		ev := u.event(domain.EventTranslatorChanged)
		ev.PreviousTranslatorID = u.previousTranslator
		events = append(events, ev)
	}
	if u.previousLanguage != 0 {
		ev := u.event(domain.EventLanguageChanged)
		ev.PreviousLanguageID = u.previousLanguage
		events = append(events, ev)
	}
	return events
}

func describeChanges(changes []Change) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s: %q -> %q", c.Field, c.Old, c.New))
	}
	return strings.Join(parts, ", ")
}
