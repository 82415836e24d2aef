// Package engine implements the booking lifecycle state machine.
//
// Every operation takes the acting user and returns a Result. Expected
// outcomes such as validation failures and business-rule rejections are
// reported in the Result; only not-found and infrastructure faults are
// returned as errors. Side effects are described by the Result's Events and
// delivered by the caller after the transition has been committed.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/clock"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/matcher"
)

// Status is the outcome of an operation
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Reason classifies a business-rule rejection
type Reason string

const (
	ReasonValidation          Reason = "validation"
	ReasonNotPermitted        Reason = "not_permitted"
	ReasonAlreadyBooked       Reason = "already_booked"
	ReasonAlreadyTaken        Reason = "already_taken"
	ReasonInvalidState        Reason = "invalid_state"
	ReasonCancellationWindow  Reason = "cancellation_window"
	ReasonNotAssigned         Reason = "not_assigned"
	ReasonMissingAdminComment Reason = "missing_admin_comment"
	ReasonMissingSessionTime  Reason = "missing_session_time"
	ReasonStatusNotAllowed    Reason = "status_not_allowed"
	ReasonTryAgain            Reason = "try_again"
)

// Change is one applied field change of an admin update
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Result is the structured outcome returned to the request layer
type Result struct {
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	FieldName string         `json:"field_name,omitempty"`
	Reason    Reason         `json:"reason,omitempty"`
	JobID     int64          `json:"id,omitempty"`
	Type      string         `json:"type,omitempty"`
	Job       *domain.Job    `json:"job,omitempty"`
	Changes   []Change       `json:"changes,omitempty"`
	Events    []domain.Event `json:"-"`
}

// OK reports whether the operation succeeded
func (r *Result) OK() bool {
	return r.Status == StatusSuccess
}

func success(job *domain.Job, message string, events ...domain.Event) *Result {
	r := &Result{Status: StatusSuccess, Message: message, Events: events}
	if job != nil {
		r.JobID = job.ID
		r.Job = job
	}
	return r
}

func fail(reason Reason, message string) *Result {
	return &Result{Status: StatusFail, Reason: reason, Message: message}
}

func invalidField(field, message string) *Result {
	return &Result{Status: StatusFail, Reason: ReasonValidation, FieldName: field, Message: message}
}

// Rules holds the business constants of the lifecycle
type Rules struct {
	ImmediateLeadTime  time.Duration
	CancellationWindow time.Duration
	Location           *time.Location
}

// DefaultRules returns the production rules
func DefaultRules() Rules {
	return Rules{
		ImmediateLeadTime:  5 * time.Minute,
		CancellationWindow: 24 * time.Hour,
		Location:           time.Local,
	}
}

// Config holds engine dependencies
type Config struct {
	Store     domain.Store
	Directory domain.Directory
	Matcher   *matcher.Matcher
	Clock     clock.Clock
	Rules     Rules
	Logger    *slog.Logger
}

// Engine runs lifecycle transitions against the store
type Engine struct {
	store   domain.Store
	dir     domain.Directory
	matcher *matcher.Matcher
	clock   clock.Clock
	rules   Rules
	logger  *slog.Logger
}

// New creates an Engine
func New(cfg *Config) *Engine {
	e := &Engine{
		store:   cfg.Store,
		dir:     cfg.Directory,
		matcher: cfg.Matcher,
		clock:   cfg.Clock,
		rules:   cfg.Rules,
		logger:  cfg.Logger,
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if e.matcher == nil {
		e.matcher = matcher.New(cfg.Directory, cfg.Logger)
	}
	defaults := DefaultRules()
	if e.rules.ImmediateLeadTime <= 0 {
		e.rules.ImmediateLeadTime = defaults.ImmediateLeadTime
	}
	if e.rules.CancellationWindow <= 0 {
		e.rules.CancellationWindow = defaults.CancellationWindow
	}
	if e.rules.Location == nil {
		e.rules.Location = defaults.Location
	}
	return e
}

func (e *Engine) now() time.Time {
	return e.clock.Now().In(e.rules.Location)
}

// candidates returns the translators to offer job to, without exclude
func (e *Engine) candidates(ctx context.Context, job *domain.Job, exclude int64) ([]int64, error) {
	ids, err := e.matcher.CandidateIDs(ctx, job, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve candidates for job %d: %w", job.ID, err)
	}
	return ids, nil
}

// attachCandidates sets the translators the event offers the job to. The
// transition is already committed, so a failed lookup is logged and the
// event is marked for the consumer to resolve.
func (e *Engine) attachCandidates(ctx context.Context, ev *domain.Event, exclude int64) {
	ids, err := e.candidates(ctx, &ev.Job, exclude)
	if err != nil {
		e.logger.Warn("Candidate lookup deferred to consumer",
			slog.Int64("job_id", ev.Job.ID),
			slog.String("event", string(ev.Type)),
			slog.Any("error", err),
		)
		ev.CandidatesPending = true
		return
	}
	ev.Candidates = ids
}

func (e *Engine) languageName(ctx context.Context, id int64) string {
	name, err := e.dir.LanguageName(ctx, id)
	if err != nil {
		e.logger.Warn("Failed to resolve language name",
			slog.Int64("language_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Sprintf("#%d", id)
	}
	return name
}

// GetJob returns a job or domain.ErrJobNotFound
func (e *Engine) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %d: %w", id, err)
	}
	return job, nil
}

// ListJobs returns a page of jobs plus one extra row when more exist
func (e *Engine) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	jobs, err := e.store.ListJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func ptrInt64(v int64) *int64 {
	return &v
}
