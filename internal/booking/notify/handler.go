package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Handler turns committed lifecycle events into notifications
type Handler struct {
	d      *Dispatcher
	dir    domain.Directory
	logger *slog.Logger
}

// NewHandler creates a Handler delivering through d
func NewHandler(d *Dispatcher, dir domain.Directory, logger *slog.Logger) *Handler {
	return &Handler{
		d:      d,
		dir:    dir,
		logger: logger,
	}
}

// parties holds the resolved recipients of one event
type parties struct {
	language   string
	customer   domain.Recipient
	translator *domain.Recipient
}

// Handle delivers the notifications of ev. Directory faults are returned as
// retryable errors before anything is sent; delivery failures are only logged.
func (h *Handler) Handle(ctx context.Context, ev domain.Event) error {
	job := &ev.Job

	p, err := h.resolve(ctx, job, ev.TranslatorID)
	if err != nil {
		return err
	}

	switch ev.Type {
	case domain.EventJobCreated, domain.EventNotifyRequested, domain.EventJobReopened:
		return h.pushCandidates(ctx, ev, p.language)

	case domain.EventConfirmationRequested:
		h.email(ctx, p.customer, fmt.Sprintf("Vi har mottagit er tolkbokning. Bokningsnr: #%d", job.ID), TemplateJobCreated, job, nil)

	case domain.EventJobAccepted:
		h.email(ctx, p.customer, fmt.Sprintf("Bekräftelse - tolk har accepterat er bokning (bokning # %d)", job.ID), TemplateJobAccepted, job, nil)
		h.d.Notify(ctx, []domain.Recipient{p.customer}, job, JobAcceptedMessage(job, p.language), Options{})

	case domain.EventJobWithdrawn:
		if p.translator == nil {
			return nil
		}
		h.d.Notify(ctx, []domain.Recipient{*p.translator}, job, JobCancelledMessage(job, p.language), Options{})
		h.email(ctx, *p.translator, fmt.Sprintf("Avbokning av bokningsnr: #%d", job.ID), TemplateJobCancelTranslator, job, nil)

	case domain.EventTranslatorCancelled:
		name := ""
		if p.translator != nil {
			name = p.translator.Name
		}
		h.d.Notify(ctx, []domain.Recipient{p.customer}, job, TranslatorCancelledMessage(job, p.language, name), Options{})
		return h.pushCandidates(ctx, ev, p.language)

	case domain.EventSessionEnded, domain.EventSessionCompletedByAdmin:
		h.sessionEnded(ctx, job, p)

	case domain.EventStatusReopened:
		h.email(ctx, p.customer, fmt.Sprintf("Bokning återöppnad #%d", job.ID), TemplateJobReopened, job, nil)
		return h.pushCandidates(ctx, ev, p.language)

	case domain.EventAcceptanceConfirmed:
		h.email(ctx, p.customer, fmt.Sprintf("Bekräftelse - tolk har accepterat er bokning (bokning # %d)", job.ID), TemplateJobAccepted, job, nil)

	case domain.EventAssignedByAdmin:
		h.email(ctx, p.customer, fmt.Sprintf("Bekräftelse - tolk har accepterat er bokning (bokning # %d)", job.ID), TemplateJobAccepted, job, nil)
		recipients := []domain.Recipient{p.customer}
		if p.translator != nil {
			h.email(ctx, *p.translator, fmt.Sprintf("Ny tolkning tilldelad (bokning # %d)", job.ID), TemplateJobAssignedTranslator, job, nil)
			recipients = append(recipients, *p.translator)
		}
		h.d.Notify(ctx, recipients, job, SessionStartRemindMessage(job, p.language), Options{})

	case domain.EventBookingCancelled:
		h.email(ctx, p.customer, fmt.Sprintf("Avbokning av bokningsnr: #%d", job.ID), TemplateStatusChangedCustomer, job, nil)

	case domain.EventWithdrawnByAdmin:
		h.email(ctx, p.customer, fmt.Sprintf("Avbokning av bokningsnr: #%d", job.ID), TemplateStatusChangedCustomer, job, nil)
		if p.translator != nil {
			h.email(ctx, *p.translator, fmt.Sprintf("Avbokning av bokningsnr: #%d", job.ID), TemplateJobCancelTranslator, job, nil)
		}

	case domain.EventDueChanged:
		subject := fmt.Sprintf("Meddelande om ändring av tolkbokning för uppdrag # %d", job.ID)
		data := map[string]any{}
		if ev.PreviousDue != nil {
			data["old_time"] = ev.PreviousDue.Format(dueLayout)
		}
		h.email(ctx, p.customer, subject, TemplateChangedDate, job, data)
		if p.translator != nil {
			h.email(ctx, *p.translator, subject, TemplateChangedDate, job, data)
		}

	case domain.EventTranslatorChanged:
		return h.translatorChanged(ctx, ev, p)

	case domain.EventLanguageChanged:
		subject := fmt.Sprintf("Meddelande om ändring av tolkbokning för uppdrag # %d", job.ID)
		data := map[string]any{"old_language_id": ev.PreviousLanguageID}
		h.email(ctx, p.customer, subject, TemplateChangedLanguage, job, data)
		if p.translator != nil {
			h.email(ctx, *p.translator, subject, TemplateChangedLanguage, job, data)
		}

	case domain.EventSMSRequested:
		report, err := h.d.NotifySMS(ctx, job)
		if err != nil {
			return domain.NewRetryableError(err)
		}
		h.logger.Info("SMS resend finished",
			slog.Int64("job_id", job.ID),
			slog.Int("sent", report.Sent),
			slog.Int("failed", len(report.Failures)),
		)

	case domain.EventJobExpired:
		h.d.Notify(ctx, []domain.Recipient{p.customer}, job, JobExpiredMessage(job, p.language), Options{})

	case domain.EventCustomerNotCall:
		h.logger.Debug("No notification for event", slog.String("type", string(ev.Type)))

	default:
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidEvent, ev.Type)
	}

	return nil
}

func (h *Handler) resolve(ctx context.Context, job *domain.Job, translatorID int64) (*parties, error) {
	language, err := h.dir.LanguageName(ctx, job.FromLanguageID)
	if err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("failed to get language name: %w", err))
	}

	customer, err := h.dir.Customer(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil, fmt.Errorf("%w: customer %d", domain.ErrInvalidEvent, job.UserID)
		}
		return nil, domain.NewRetryableError(fmt.Errorf("failed to get customer: %w", err))
	}

	p := &parties{language: language, customer: customer.Recipient()}
	if job.UserEmail != "" {
		p.customer.Email = job.UserEmail
	}

	if translatorID != 0 {
		t, err := h.translator(ctx, translatorID)
		if err != nil {
			return nil, err
		}
		p.translator = t
	}

	return p, nil
}

func (h *Handler) translator(ctx context.Context, id int64) (*domain.Recipient, error) {
	profile, err := h.dir.Profile(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTranslatorNotFound) {
			h.logger.Warn("Translator not found for notification", slog.Int64("user_id", id))
			return nil, nil
		}
		return nil, domain.NewRetryableError(fmt.Errorf("failed to get translator %d: %w", id, err))
	}
	r := profile.Recipient()
	return &r, nil
}

// pushCandidates offers the job to the event's candidate translators.
// Emergency bookings skip translators who opted out of them.
func (h *Handler) pushCandidates(ctx context.Context, ev domain.Event, language string) error {
	job := &ev.Job

	var (
		recipients []domain.Recipient
		err        error
	)
	if ev.CandidatesPending {
		recipients, err = h.findCandidates(ctx, ev)
	} else {
		recipients, err = h.candidateRecipients(ctx, ev)
	}
	if err != nil {
		return err
	}

	if len(recipients) == 0 {
		h.logger.Info("No translators to notify", slog.Int64("job_id", job.ID), slog.String("type", string(ev.Type)))
		return nil
	}

	h.d.Notify(ctx, recipients, job, SuitableJobMessage(job, language), Options{})
	return nil
}

// candidateRecipients loads the profiles of the ids carried by the event
func (h *Handler) candidateRecipients(ctx context.Context, ev domain.Event) ([]domain.Recipient, error) {
	recipients := make([]domain.Recipient, 0, len(ev.Candidates))
	for _, id := range ev.Candidates {
		profile, err := h.dir.Profile(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrTranslatorNotFound) {
				continue
			}
			return nil, domain.NewRetryableError(fmt.Errorf("failed to get translator %d: %w", id, err))
		}
		if ev.Job.Immediate && profile.NoEmergency {
			continue
		}
		recipients = append(recipients, profile.Recipient())
	}
	return recipients, nil
}

// findCandidates runs the eligibility match for events whose candidates
// could not be resolved when the transition committed. The translator who
// cancelled is not offered the job again.
func (h *Handler) findCandidates(ctx context.Context, ev domain.Event) ([]domain.Recipient, error) {
	eligible, err := h.d.finder.FindEligible(ctx, &ev.Job)
	if err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("failed to resolve candidates for job %d: %w", ev.Job.ID, err))
	}

	var exclude int64
	if ev.Type == domain.EventTranslatorCancelled {
		exclude = ev.TranslatorID
	}

	recipients := make([]domain.Recipient, 0, len(eligible))
	for _, profile := range eligible {
		if profile.UserID == exclude || (ev.Job.Immediate && profile.NoEmergency) {
			continue
		}
		recipients = append(recipients, profile.Recipient())
	}
	return recipients, nil
}

func (h *Handler) sessionEnded(ctx context.Context, job *domain.Job, p *parties) {
	subject := SessionEndedSubject(job)
	data := map[string]any{"session_time": job.SessionTime}

	h.email(ctx, p.customer, subject, TemplateSessionEnded, job, withFor(data, "faktura"))
	if p.translator != nil {
		h.email(ctx, *p.translator, subject, TemplateSessionEnded, job, withFor(data, "lön"))
	}
}

func (h *Handler) translatorChanged(ctx context.Context, ev domain.Event, p *parties) error {
	job := &ev.Job
	subject := fmt.Sprintf("Meddelande om tilldelning av tolkuppdrag för uppdrag # %d", job.ID)

	h.email(ctx, p.customer, subject, TemplateChangedTranslatorOwner, job, nil)

	if ev.PreviousTranslatorID != 0 {
		old, err := h.translator(ctx, ev.PreviousTranslatorID)
		if err != nil {
			return err
		}
		if old != nil {
			h.email(ctx, *old, subject, TemplateChangedTranslatorOld, job, nil)
		}
	}

	if p.translator != nil {
		h.email(ctx, *p.translator, subject, TemplateChangedTranslatorNew, job, nil)
	}
	return nil
}

func (h *Handler) email(ctx context.Context, to domain.Recipient, subject, template string, job *domain.Job, extra map[string]any) {
	data := map[string]any{
		"user":   to.Name,
		"job_id": job.ID,
		"job":    *job,
	}
	for k, v := range extra {
		data[k] = v
	}

	if err := h.d.Email(ctx, to, subject, template, data); err != nil {
		h.logger.Warn("Email not delivered",
			slog.Int64("job_id", job.ID),
			slog.Int64("user_id", to.UserID),
			slog.String("template", template),
			slog.String("error", err.Error()),
		)
	}
}

func withFor(data map[string]any, forText string) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["for_text"] = forText
	return out
}
