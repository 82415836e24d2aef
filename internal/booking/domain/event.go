package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a lifecycle side effect
type EventType string

const (
	EventJobCreated            EventType = "job.created"
	EventConfirmationRequested EventType = "job.confirmation_requested"
	EventJobAccepted           EventType = "job.accepted"
	EventJobWithdrawn          EventType = "job.withdrawn"
	EventTranslatorCancelled   EventType = "job.translator_cancelled"
	EventSessionEnded          EventType = "session.ended"
	EventCustomerNotCall       EventType = "job.not_carried_out"
	EventJobReopened           EventType = "job.reopened"
	EventDueChanged            EventType = "job.due_changed"
	EventTranslatorChanged     EventType = "job.translator_changed"
	EventLanguageChanged       EventType = "job.language_changed"
	EventNotifyRequested       EventType = "job.notify_requested"
	EventSMSRequested          EventType = "job.sms_requested"
	EventJobExpired            EventType = "job.expired"

	// Emitted by the admin status sub-rules
	EventStatusReopened          EventType = "status.reopened"
	EventAcceptanceConfirmed     EventType = "status.acceptance_confirmed"
	EventSessionCompletedByAdmin EventType = "status.session_completed"
	EventAssignedByAdmin         EventType = "status.assigned"
	EventBookingCancelled        EventType = "status.booking_cancelled"
	EventWithdrawnByAdmin        EventType = "status.withdrawn"
)

// Event records a committed lifecycle transition and what it needs to notify
type Event struct {
	ID                   string     `json:"id"`
	Type                 EventType  `json:"type"`
	OccurredAt           time.Time  `json:"occurred_at"`
	Actor                Actor      `json:"actor"`
	Job                  Job        `json:"job"`
	TranslatorID         int64      `json:"translator_id,omitempty"`
	PreviousTranslatorID int64      `json:"previous_translator_id,omitempty"`
	PreviousJobID        int64      `json:"previous_job_id,omitempty"`
	PreviousDue          *time.Time `json:"previous_due,omitempty"`
	PreviousLanguageID   int64      `json:"previous_language_id,omitempty"`
	Candidates           []int64    `json:"candidates,omitempty"`
	// CandidatesPending is set when the lookup failed after commit; the
	// consumer resolves the candidates itself
	CandidatesPending bool `json:"candidates_pending,omitempty"`
}

// NewEvent creates an event carrying a snapshot of the job
func NewEvent(t EventType, job *Job, actor Actor, at time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		OccurredAt: at,
		Actor:      actor,
		Job:        *job,
	}
}
