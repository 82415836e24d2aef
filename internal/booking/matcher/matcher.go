// Package matcher selects the translators qualified to be offered a job.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

var certifiedLevels = []domain.TranslatorLevel{
	domain.LevelCertified,
	domain.LevelCertifiedLaw,
	domain.LevelCertifiedHealth,
}

var laymanLevels = []domain.TranslatorLevel{
	domain.LevelLayman,
	domain.LevelReadCourses,
}

// Matcher filters the active translator pool against a job's requirements
type Matcher struct {
	dir    domain.Directory
	logger *slog.Logger
}

// New creates a Matcher reading from dir
func New(dir domain.Directory, logger *slog.Logger) *Matcher {
	return &Matcher{
		dir:    dir,
		logger: logger,
	}
}

// FindEligible returns the translators qualified for job, ordered by user id
func (m *Matcher) FindEligible(ctx context.Context, job *domain.Job) ([]domain.TranslatorProfile, error) {
	translators, err := m.dir.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active translators: %w", err)
	}

	criteria, err := m.criteriaFor(ctx, job)
	if err != nil {
		return nil, err
	}

	eligible := make([]domain.TranslatorProfile, 0, len(translators))
	for i := range translators {
		p := &translators[i]
		if p.Languages == nil {
			if p.Languages, err = m.dir.LanguagesOf(ctx, p.UserID); err != nil {
				return nil, fmt.Errorf("failed to get languages of translator %d: %w", p.UserID, err)
			}
		}
		if criteria.Eligible(p) {
			eligible = append(eligible, *p)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].UserID < eligible[j].UserID
	})

	m.logger.Debug("Eligible translators resolved",
		slog.Int64("job_id", job.ID),
		slog.Int("pool_size", len(translators)),
		slog.Int("eligible", len(eligible)),
	)

	return eligible, nil
}

// CandidateIDs returns the ids of the eligible translators, dropping exclude
func (m *Matcher) CandidateIDs(ctx context.Context, job *domain.Job, exclude int64) ([]int64, error) {
	eligible, err := m.FindEligible(ctx, job)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(eligible))
	for _, p := range eligible {
		if p.UserID == exclude {
			continue
		}
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

// IsEligible reports whether a single translator qualifies for job
func (m *Matcher) IsEligible(ctx context.Context, job *domain.Job, profile *domain.TranslatorProfile) (bool, error) {
	criteria, err := m.criteriaFor(ctx, job)
	if err != nil {
		return false, err
	}
	return criteria.Eligible(profile), nil
}

func (m *Matcher) criteriaFor(ctx context.Context, job *domain.Job) (*Criteria, error) {
	blacklist, err := m.dir.BlacklistOf(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get blacklist of customer %d: %w", job.UserID, err)
	}

	criteria := &Criteria{
		Job:       job,
		Blacklist: make(map[int64]struct{}, len(blacklist)),
	}
	for _, id := range blacklist {
		criteria.Blacklist[id] = struct{}{}
	}

	if job.IsPhysicalOnly() {
		customer, err := m.dir.Customer(ctx, job.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get customer %d: %w", job.UserID, err)
		}
		criteria.RequesterTowns = customer.Towns
	}

	return criteria, nil
}

// Criteria is a job's requirements resolved against its requester
type Criteria struct {
	Job            *domain.Job
	Blacklist      map[int64]struct{}
	RequesterTowns []string
}

// Eligible applies the filters in order: job type, language, gender,
// certification, blacklist, then the physical-only town check
func (c *Criteria) Eligible(p *domain.TranslatorProfile) bool {
	if jt, ok := JobTypeFor(p.Type); !ok || jt != c.Job.JobType {
		return false
	}

	if !p.SpeaksLanguage(c.Job.FromLanguageID) {
		return false
	}

	if c.Job.Gender != domain.GenderNone && p.Gender != c.Job.Gender {
		return false
	}

	if levels := AcceptedLevels(c.Job.Certified); levels != nil && !containsLevel(levels, p.Level) {
		return false
	}

	if _, blocked := c.Blacklist[p.UserID]; blocked {
		return false
	}

	if c.Job.IsPhysicalOnly() && !intersects(p.Towns, c.RequesterTowns) {
		return false
	}

	return true
}

// JobTypeFor maps a translator's contract type to the job type it serves
func JobTypeFor(t domain.TranslatorType) (domain.JobType, bool) {
	switch t {
	case domain.TranslatorProfessional:
		return domain.JobTypePaid, true
	case domain.TranslatorRWS:
		return domain.JobTypeRWS, true
	case domain.TranslatorVolunteer:
		return domain.JobTypeUnpaid, true
	}
	return "", false
}

// AcceptedLevels returns the translator levels allowed for a certification
// requirement. A nil result accepts any level.
func AcceptedLevels(c domain.Certification) []domain.TranslatorLevel {
	switch c {
	case domain.CertificationYes:
		return certifiedLevels
	case domain.CertificationBoth:
		levels := make([]domain.TranslatorLevel, 0, len(certifiedLevels)+len(laymanLevels))
		levels = append(levels, certifiedLevels...)
		return append(levels, laymanLevels...)
	case domain.CertificationLaw, domain.CertificationNLaw:
		return []domain.TranslatorLevel{domain.LevelCertifiedLaw}
	case domain.CertificationHealth, domain.CertificationNHealth:
		return []domain.TranslatorLevel{domain.LevelCertifiedHealth}
	case domain.CertificationNormal:
		return laymanLevels
	}
	return nil
}

func containsLevel(levels []domain.TranslatorLevel, level domain.TranslatorLevel) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	for _, s := range a {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
