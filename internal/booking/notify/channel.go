// Package notify delivers booking notifications over push, SMS and email.
package notify

import (
	"context"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Email is one templated email
type Email struct {
	To       string         `json:"to"`
	Name     string         `json:"name"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// PushMessage is one push notification addressed to a single recipient
type PushMessage struct {
	ID        string            `json:"id"`
	Recipient domain.Recipient  `json:"recipient"`
	JobID     int64             `json:"job_id"`
	Type      MessageType       `json:"type"`
	Contents  string            `json:"contents"`
	Sound     string            `json:"sound,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	SendAfter *time.Time        `json:"send_after,omitempty"`
}

// Mailer sends emails
type Mailer interface {
	SendEmail(ctx context.Context, email Email) error
}

// Pusher sends push notifications. A non-nil SendAfter asks the provider
// to hold the message until that instant.
type Pusher interface {
	SendPush(ctx context.Context, msg PushMessage) error
}

// SMSSender sends text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Scheduler holds pushes until their send time
type Scheduler interface {
	Schedule(ctx context.Context, msg PushMessage, at time.Time) error
}

// EligibleFinder resolves the translators qualified for a job
type EligibleFinder interface {
	FindEligible(ctx context.Context, job *domain.Job) ([]domain.TranslatorProfile, error)
}
