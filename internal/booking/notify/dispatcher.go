package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/clock"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/oklog/ulid/v2"
)

const (
	channelPush  = "push"
	channelSMS   = "sms"
	channelEmail = "email"

	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 8
)

// ErrNoAddress is returned when a recipient lacks the address a channel needs
var ErrNoAddress = errors.New("recipient has no address for channel")

// DelayPolicy controls night-time deferral of a push batch
type DelayPolicy int

const (
	// DelayAuto defers recipients who opted out of night-time pushes while it is night
	DelayAuto DelayPolicy = iota
	// DelayNever always sends immediately
	DelayNever
)

// Options tunes a single Notify call
type Options struct {
	Delay DelayPolicy
}

// Failure is one recipient's delivery error
type Failure struct {
	UserID int64
	Err    error
}

// Report summarizes a push batch
type Report struct {
	Sent     int
	Deferred int
	Skipped  int
	Failures []Failure
}

// SMSReport summarizes an SMS batch
type SMSReport struct {
	Sent     int
	Failures []Failure
}

// Config holds dispatcher dependencies
type Config struct {
	Pusher      Pusher
	Mailer      Mailer
	SMS         SMSSender
	Scheduler   Scheduler
	Finder      EligibleFinder
	Directory   domain.Directory
	Clock       clock.Clock
	Hours       BusinessHours
	Timeout     time.Duration
	Concurrency int
	Metrics     *Metrics
	Logger      *slog.Logger
}

// Dispatcher sends notifications and records an audit trail of every batch
type Dispatcher struct {
	pusher      Pusher
	mailer      Mailer
	sms         SMSSender
	scheduler   Scheduler
	finder      EligibleFinder
	dir         domain.Directory
	clock       clock.Clock
	hours       BusinessHours
	timeout     time.Duration
	concurrency int
	metrics     *Metrics
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(cfg *Config) *Dispatcher {
	d := &Dispatcher{
		pusher:      cfg.Pusher,
		mailer:      cfg.Mailer,
		sms:         cfg.SMS,
		scheduler:   cfg.Scheduler,
		finder:      cfg.Finder,
		dir:         cfg.Directory,
		clock:       cfg.Clock,
		hours:       cfg.Hours,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
	if d.clock == nil {
		d.clock = clock.System{}
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	if d.concurrency <= 0 {
		d.concurrency = defaultConcurrency
	}
	if d.metrics == nil {
		d.metrics = NewMetrics()
	}
	return d
}

// ShouldDelay reports whether a push to r at now must wait for business hours
func (d *Dispatcher) ShouldDelay(now time.Time, r domain.Recipient) bool {
	return r.NoNighttime && d.hours.IsNight(now)
}

// Notify pushes msg to every recipient. Opted-out recipients are skipped and
// one recipient's failure never affects another.
func (d *Dispatcher) Notify(ctx context.Context, recipients []domain.Recipient, job *domain.Job, msg Message, opts Options) Report {
	now := d.clock.Now()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report Report
		sem    = make(chan struct{}, d.concurrency)
		sentTo = make([]int64, 0, len(recipients))
	)

	for _, r := range recipients {
		if r.NoNotification {
			report.Skipped++
			d.metrics.record(ctx, channelPush, OutcomeSkipped, string(msg.Type))
			continue
		}

		push := PushMessage{
			ID:        ulid.Make().String(),
			Recipient: r,
			JobID:     job.ID,
			Type:      msg.Type,
			Contents:  msg.Text,
			Sound:     msg.Sound,
			Data:      msg.Data,
		}
		delayed := opts.Delay == DelayAuto && d.ShouldDelay(now, r)
		if delayed {
			at := d.hours.NextBusinessTime(now)
			push.SendAfter = &at
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(push PushMessage, delayed bool) {
			defer wg.Done()
			defer func() { <-sem }()

			err := d.deliverPush(ctx, push, delayed)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failures = append(report.Failures, Failure{UserID: push.Recipient.UserID, Err: err})
				d.metrics.record(ctx, channelPush, OutcomeFailed, string(push.Type))
				d.logger.Warn("Failed to send push notification",
					slog.Int64("job_id", push.JobID),
					slog.Int64("user_id", push.Recipient.UserID),
					slog.String("error", err.Error()),
				)
			case delayed:
				report.Deferred++
				sentTo = append(sentTo, push.Recipient.UserID)
				d.metrics.record(ctx, channelPush, OutcomeDeferred, string(push.Type))
			default:
				report.Sent++
				sentTo = append(sentTo, push.Recipient.UserID)
				d.metrics.record(ctx, channelPush, OutcomeSent, string(push.Type))
			}
		}(push, delayed)
	}
	wg.Wait()

	d.logger.Info("Notification dispatched",
		logger.Audit(
			slog.String("channel", channelPush),
			slog.String("type", string(msg.Type)),
			slog.Int64("job_id", job.ID),
			slog.Any("recipients", sentTo),
			slog.String("content", msg.Text),
			slog.Time("at", now),
		),
		slog.Int("sent", report.Sent),
		slog.Int("deferred", report.Deferred),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failures)),
	)

	return report
}

func (d *Dispatcher) deliverPush(ctx context.Context, push PushMessage, delayed bool) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if delayed && d.scheduler != nil {
		if err := d.scheduler.Schedule(ctx, push, *push.SendAfter); err != nil {
			return fmt.Errorf("failed to schedule push: %w", err)
		}
		return nil
	}

	if err := d.pusher.SendPush(ctx, push); err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	return nil
}

// SendScheduled delivers a push previously held by the scheduler
func (d *Dispatcher) SendScheduled(ctx context.Context, push PushMessage) error {
	push.SendAfter = nil
	err := d.deliverPush(ctx, push, false)
	if err != nil {
		d.metrics.record(ctx, channelPush, OutcomeFailed, string(push.Type))
		return err
	}
	d.metrics.record(ctx, channelPush, OutcomeSent, string(push.Type))
	return nil
}

// NotifySMS texts every eligible translator about job and reports how many
// messages went out. Per-recipient failures are collected, never raised.
func (d *Dispatcher) NotifySMS(ctx context.Context, job *domain.Job) (SMSReport, error) {
	var report SMSReport

	translators, err := d.finder.FindEligible(ctx, job)
	if err != nil {
		return report, fmt.Errorf("failed to find eligible translators: %w", err)
	}

	language, err := d.dir.LanguageName(ctx, job.FromLanguageID)
	if err != nil {
		return report, fmt.Errorf("failed to get language name: %w", err)
	}

	city := job.Town
	if city == "" {
		if customer, err := d.dir.Customer(ctx, job.UserID); err == nil {
			city = customer.Town
		}
	}

	text := SMSMessage(job, language, city)
	sentTo := make([]int64, 0, len(translators))

	for _, t := range translators {
		if err := d.sendSMS(ctx, t.Mobile, text); err != nil {
			report.Failures = append(report.Failures, Failure{UserID: t.UserID, Err: err})
			d.metrics.record(ctx, channelSMS, OutcomeFailed, string(MessageSuitableJob))
			d.logger.Warn("Failed to send SMS",
				slog.Int64("job_id", job.ID),
				slog.Int64("user_id", t.UserID),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.Sent++
		sentTo = append(sentTo, t.UserID)
		d.metrics.record(ctx, channelSMS, OutcomeSent, string(MessageSuitableJob))
	}

	d.logger.Info("SMS notifications dispatched",
		logger.Audit(
			slog.String("channel", channelSMS),
			slog.Int64("job_id", job.ID),
			slog.Any("recipients", sentTo),
			slog.String("content", text),
			slog.Time("at", d.clock.Now()),
		),
		slog.Int("sent", report.Sent),
		slog.Int("failed", len(report.Failures)),
	)

	return report, nil
}

func (d *Dispatcher) sendSMS(ctx context.Context, to, text string) error {
	if to == "" {
		return ErrNoAddress
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sms.SendSMS(ctx, to, text); err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	return nil
}

// Email sends one templated email and records it in the audit log
func (d *Dispatcher) Email(ctx context.Context, to domain.Recipient, subject, template string, data map[string]any) error {
	if to.Email == "" {
		d.metrics.record(ctx, channelEmail, OutcomeSkipped, template)
		return ErrNoAddress
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.mailer.SendEmail(ctx, Email{
		To:       to.Email,
		Name:     to.Name,
		Subject:  subject,
		Template: template,
		Data:     data,
	})
	if err != nil {
		d.metrics.record(ctx, channelEmail, OutcomeFailed, template)
		d.logger.Warn("Failed to send email",
			slog.Int64("user_id", to.UserID),
			slog.String("template", template),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	d.metrics.record(ctx, channelEmail, OutcomeSent, template)
	d.logger.Info("Email dispatched",
		logger.Audit(
			slog.String("channel", channelEmail),
			slog.String("template", template),
			slog.String("subject", subject),
			slog.Int64("user_id", to.UserID),
			slog.Time("at", d.clock.Now()),
		),
	)
	return nil
}
