package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/expiry"
)

// Job-for tokens accepted on creation
const (
	JobForMale            = "male"
	JobForFemale          = "female"
	JobForNormal          = "normal"
	JobForCertified       = "certified"
	JobForCertifiedLaw    = "certified_in_law"
	JobForCertifiedHealth = "certified_in_helth"
)

// DueDateLayout and DueTimeLayout parse the requested due of a regular job
const (
	DueDateLayout = "1/2/2006"
	DueTimeLayout = "15:04"
)

// CreateJobRequest is a customer's booking request
type CreateJobRequest struct {
	FromLanguageID       int64
	Immediate            bool
	DueDate              string
	DueTime              string
	Duration             int
	CustomerPhoneType    bool
	CustomerPhysicalType bool
	JobFor               []string
	Address              string
	Instructions         string
	Town                 string
	UserEmail            string
	Reference            string
	ByAdmin              bool
}

// CreateJob validates the request and stores a pending job
func (e *Engine) CreateJob(ctx context.Context, actor domain.Actor, req CreateJobRequest) (*Result, error) {
	if actor.Role != domain.RoleCustomer {
		return fail(ReasonNotPermitted, msgOnlyCustomersCreate), nil
	}

	customer, err := e.dir.Customer(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get customer %d: %w", actor.ID, err)
	}

	if res := validateCreate(req); res != nil {
		return res, nil
	}

	now := e.now()
	job := &domain.Job{
		UserID:               actor.ID,
		FromLanguageID:       req.FromLanguageID,
		Duration:             req.Duration,
		Immediate:            req.Immediate,
		Status:               domain.StatusPending,
		CustomerPhoneType:    req.CustomerPhoneType,
		CustomerPhysicalType: req.CustomerPhysicalType,
		Address:              req.Address,
		Instructions:         req.Instructions,
		Town:                 req.Town,
		UserEmail:            req.UserEmail,
		Reference:            req.Reference,
		ByAdmin:              req.ByAdmin,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	resultType := "regular"
	if req.Immediate {
		resultType = "immediate"
		job.Due = now.Add(e.rules.ImmediateLeadTime)
		job.CustomerPhoneType = true
	} else {
		due, err := time.ParseInLocation(DueDateLayout+" "+DueTimeLayout,
			strings.TrimSpace(req.DueDate)+" "+strings.TrimSpace(req.DueTime), e.rules.Location)
		if err != nil {
			return invalidField("due_date", msgInvalidDue), nil
		}
		if !due.After(now) {
			return invalidField("due_date", msgPastDue), nil
		}
		job.Due = due
	}

	gender, certified, err := ParseJobFor(req.JobFor)
	if err != nil {
		return invalidField("job_for", msgUnknownJobFor), nil
	}
	job.Gender = gender
	job.Certified = certified

	jobType, ok := JobTypeForConsumer(customer.ConsumerType)
	if !ok {
		return invalidField("consumer_type", msgUnknownConsumerType), nil
	}
	job.JobType = jobType
	job.WillExpireAt = expiry.At(job.Due, now)

	if err := e.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	ev := domain.NewEvent(domain.EventJobCreated, job, actor, now)
	e.attachCandidates(ctx, &ev, 0)

	e.logger.Info("Job created",
		slog.Int64("job_id", job.ID),
		slog.Int64("customer_id", actor.ID),
		slog.String("type", resultType),
		slog.Int("candidates", len(ev.Candidates)),
	)

	res := success(job, "", ev)
	res.Type = resultType
	return res, nil
}

func validateCreate(req CreateJobRequest) *Result {
	if req.FromLanguageID == 0 {
		return invalidField("from_language_id", msgFillAllFields)
	}
	if req.Immediate {
		if req.Duration <= 0 {
			return invalidField("duration", msgFillAllFields)
		}
		return nil
	}
	if strings.TrimSpace(req.DueDate) == "" {
		return invalidField("due_date", msgFillAllFields)
	}
	if strings.TrimSpace(req.DueTime) == "" {
		return invalidField("due_time", msgFillAllFields)
	}
	if !req.CustomerPhoneType && !req.CustomerPhysicalType {
		return invalidField("customer_phone_type", msgMakeAChoice)
	}
	if req.Duration <= 0 {
		return invalidField("duration", msgFillAllFields)
	}
	return nil
}

// ParseJobFor derives the gender and certification requirement from the
// job-for selection. At most one gender and one certified kind may be
// chosen; normal combines with either.
func ParseJobFor(tokens []string) (domain.Gender, domain.Certification, error) {
	var (
		gender                         domain.Gender
		normal, certified, law, health bool
	)
	for _, t := range tokens {
		switch t {
		case JobForMale, JobForFemale:
			g := domain.GenderMale
			if t == JobForFemale {
				g = domain.GenderFemale
			}
			if gender != domain.GenderNone && gender != g {
				return "", "", fmt.Errorf("conflicting job_for genders %q and %q", gender, g)
			}
			gender = g
		case JobForNormal:
			normal = true
		case JobForCertified:
			certified = true
		case JobForCertifiedLaw:
			law = true
		case JobForCertifiedHealth:
			health = true
		default:
			return "", "", fmt.Errorf("unknown job_for token %q", t)
		}
	}

	levels := 0
	for _, set := range []bool{certified, law, health} {
		if set {
			levels++
		}
	}
	if levels > 1 {
		return "", "", fmt.Errorf("job_for %v combines more than one certification", tokens)
	}

	var cert domain.Certification
	switch {
	case normal && certified:
		cert = domain.CertificationBoth
	case normal && law:
		cert = domain.CertificationNLaw
	case normal && health:
		cert = domain.CertificationNHealth
	case normal:
		cert = domain.CertificationNormal
	case certified:
		cert = domain.CertificationYes
	case law:
		cert = domain.CertificationLaw
	case health:
		cert = domain.CertificationHealth
	}
	return gender, cert, nil
}

// JobTypeForConsumer maps a customer's consumer type to the job type
func JobTypeForConsumer(c domain.ConsumerType) (domain.JobType, bool) {
	switch c {
	case domain.ConsumerRWS:
		return domain.JobTypeRWS, true
	case domain.ConsumerNGO:
		return domain.JobTypeUnpaid, true
	case domain.ConsumerPaid:
		return domain.JobTypePaid, true
	}
	return "", false
}
