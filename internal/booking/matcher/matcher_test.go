package matcher

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	customerID = 100
	swedish    = 1
	arabic     = 2
)

func newTestMatcher(t *testing.T, translators ...domain.TranslatorProfile) (*Matcher, *memstore.Directory) {
	t.Helper()

	dir := memstore.NewDirectory()
	dir.AddCustomer(domain.Customer{
		UserID:       customerID,
		ConsumerType: domain.ConsumerPaid,
		Towns:        []string{"Stockholm"},
	})
	for _, p := range translators {
		dir.AddTranslator(p)
	}

	return New(dir, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func translator(id int64, mutate ...func(*domain.TranslatorProfile)) domain.TranslatorProfile {
	p := domain.TranslatorProfile{
		UserID:    id,
		Email:     "t@example.com",
		Type:      domain.TranslatorProfessional,
		Languages: []int64{swedish},
		Gender:    domain.GenderFemale,
		Level:     domain.LevelCertified,
		Towns:     []string{"Stockholm"},
		Active:    true,
	}
	for _, m := range mutate {
		m(&p)
	}
	return p
}

func baseJob() *domain.Job {
	return &domain.Job{
		ID:                1,
		UserID:            customerID,
		FromLanguageID:    swedish,
		JobType:           domain.JobTypePaid,
		CustomerPhoneType: true,
	}
}

func ids(profiles []domain.TranslatorProfile) []int64 {
	out := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.UserID)
	}
	return out
}

func TestFindEligible_Filters(t *testing.T) {
	tests := []struct {
		name       string
		job        func() *domain.Job
		translator domain.TranslatorProfile
		eligible   bool
	}{
		{
			name:       "fully qualified translator",
			job:        baseJob,
			translator: translator(1),
			eligible:   true,
		},
		{
			name: "volunteer cannot take paid job",
			job:  baseJob,
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Type = domain.TranslatorVolunteer
			}),
			eligible: false,
		},
		{
			name: "rws translator takes rws job",
			job: func() *domain.Job {
				j := baseJob()
				j.JobType = domain.JobTypeRWS
				return j
			},
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Type = domain.TranslatorRWS
			}),
			eligible: true,
		},
		{
			name: "volunteer takes unpaid job",
			job: func() *domain.Job {
				j := baseJob()
				j.JobType = domain.JobTypeUnpaid
				return j
			},
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Type = domain.TranslatorVolunteer
			}),
			eligible: true,
		},
		{
			name: "missing language",
			job:  baseJob,
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Languages = []int64{arabic}
			}),
			eligible: false,
		},
		{
			name: "gender mismatch",
			job: func() *domain.Job {
				j := baseJob()
				j.Gender = domain.GenderMale
				return j
			},
			translator: translator(1),
			eligible:   false,
		},
		{
			name: "law certification rejects health specialist",
			job: func() *domain.Job {
				j := baseJob()
				j.Certified = domain.CertificationLaw
				return j
			},
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Level = domain.LevelCertifiedHealth
			}),
			eligible: false,
		},
		{
			name: "n_law certification accepts law specialist",
			job: func() *domain.Job {
				j := baseJob()
				j.Certified = domain.CertificationNLaw
				return j
			},
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Level = domain.LevelCertifiedLaw
			}),
			eligible: true,
		},
		{
			name: "normal certification rejects certified",
			job: func() *domain.Job {
				j := baseJob()
				j.Certified = domain.CertificationNormal
				return j
			},
			translator: translator(1),
			eligible:   false,
		},
		{
			name: "both certification accepts layman",
			job: func() *domain.Job {
				j := baseJob()
				j.Certified = domain.CertificationBoth
				return j
			},
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Level = domain.LevelLayman
			}),
			eligible: true,
		},
		{
			name: "physical-only job outside requester towns",
			job: func() *domain.Job {
				j := baseJob()
				j.CustomerPhoneType = false
				j.CustomerPhysicalType = true
				return j
			},
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Towns = []string{"Uppsala"}
			}),
			eligible: false,
		},
		{
			name: "physical-only job inside requester towns",
			job: func() *domain.Job {
				j := baseJob()
				j.CustomerPhoneType = false
				j.CustomerPhysicalType = true
				return j
			},
			translator: translator(1),
			eligible:   true,
		},
		{
			name: "phone job ignores towns",
			job:  baseJob,
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Towns = []string{"Uppsala"}
			}),
			eligible: true,
		},
		{
			name: "inactive translator is not in the pool",
			job:  baseJob,
			translator: translator(1, func(p *domain.TranslatorProfile) {
				p.Active = false
			}),
			eligible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMatcher(t, tt.translator)

			got, err := m.FindEligible(context.Background(), tt.job())
			require.NoError(t, err)

			if tt.eligible {
				assert.Equal(t, []int64{tt.translator.UserID}, ids(got))
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestFindEligible_ExcludesBlacklisted(t *testing.T) {
	m, dir := newTestMatcher(t, translator(1), translator(2), translator(3))
	dir.Block(customerID, 2)

	got, err := m.FindEligible(context.Background(), baseJob())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestFindEligible_OrderedByUserID(t *testing.T) {
	m, _ := newTestMatcher(t, translator(9), translator(4), translator(7))

	got, err := m.FindEligible(context.Background(), baseJob())
	require.NoError(t, err)

	assert.Equal(t, []int64{4, 7, 9}, ids(got))
}

func TestFindEligible_LoadsMissingLanguages(t *testing.T) {
	m, _ := newTestMatcher(t, translator(1, func(p *domain.TranslatorProfile) {
		p.Languages = nil
	}))

	got, err := m.FindEligible(context.Background(), baseJob())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCandidateIDs_DropsExcluded(t *testing.T) {
	m, _ := newTestMatcher(t, translator(1), translator(2))

	got, err := m.CandidateIDs(context.Background(), baseJob(), 1)
	require.NoError(t, err)

	assert.Equal(t, []int64{2}, got)
}

func TestAcceptedLevels(t *testing.T) {
	tests := []struct {
		cert     domain.Certification
		expected []domain.TranslatorLevel
	}{
		{domain.CertificationNone, nil},
		{domain.CertificationYes, certifiedLevels},
		{domain.CertificationLaw, []domain.TranslatorLevel{domain.LevelCertifiedLaw}},
		{domain.CertificationNLaw, []domain.TranslatorLevel{domain.LevelCertifiedLaw}},
		{domain.CertificationHealth, []domain.TranslatorLevel{domain.LevelCertifiedHealth}},
		{domain.CertificationNHealth, []domain.TranslatorLevel{domain.LevelCertifiedHealth}},
		{domain.CertificationNormal, laymanLevels},
		{domain.CertificationBoth, append(append([]domain.TranslatorLevel{}, certifiedLevels...), laymanLevels...)},
	}

	for _, tt := range tests {
		t.Run(string(tt.cert), func(t *testing.T) {
			assert.Equal(t, tt.expected, AcceptedLevels(tt.cert))
		})
	}
}
