package engine

import (
	"context"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statusEvents = []domain.EventType{
	domain.EventStatusReopened,
	domain.EventAcceptanceConfirmed,
	domain.EventSessionCompletedByAdmin,
	domain.EventAssignedByAdmin,
	domain.EventBookingCancelled,
	domain.EventWithdrawnByAdmin,
}

func strPtr(s string) *string {
	return &s
}

func TestUpdateJob_StatusRules(t *testing.T) {
	tests := []struct {
		name             string
		from             domain.JobStatus
		to               domain.JobStatus
		held             bool
		changeTranslator bool
		comment          string
		sessionTime      string
		wantStatus       domain.JobStatus
		wantReason       Reason
		wantEvent        domain.EventType
	}{
		{
			name:       "timed out reopened to pending",
			from:       domain.StatusTimedOut,
			to:         domain.StatusPending,
			wantStatus: domain.StatusPending,
			wantEvent:  domain.EventStatusReopened,
		},
		{
			name:             "timed out confirmed with a new translator",
			from:             domain.StatusTimedOut,
			to:               domain.StatusAssigned,
			changeTranslator: true,
			wantStatus:       domain.StatusAssigned,
			wantEvent:        domain.EventAcceptanceConfirmed,
		},
		{
			name:       "timed out to assigned without translator",
			from:       domain.StatusTimedOut,
			to:         domain.StatusAssigned,
			wantStatus: domain.StatusTimedOut,
			wantReason: ReasonStatusNotAllowed,
		},
		{
			name:       "completed to timed out without comment",
			from:       domain.StatusCompleted,
			to:         domain.StatusTimedOut,
			wantStatus: domain.StatusCompleted,
			wantReason: ReasonMissingAdminComment,
		},
		{
			name:       "completed to timed out with comment",
			from:       domain.StatusCompleted,
			to:         domain.StatusTimedOut,
			comment:    "Kunden ringde aldrig",
			wantStatus: domain.StatusTimedOut,
		},
		{
			name:       "completed back to pending",
			from:       domain.StatusCompleted,
			to:         domain.StatusPending,
			wantStatus: domain.StatusCompleted,
			wantReason: ReasonStatusNotAllowed,
		},
		{
			name:       "started to completed without session time",
			from:       domain.StatusStarted,
			to:         domain.StatusCompleted,
			held:       true,
			wantStatus: domain.StatusStarted,
			wantReason: ReasonMissingSessionTime,
		},
		{
			name:        "started to completed with session time",
			from:        domain.StatusStarted,
			to:          domain.StatusCompleted,
			held:        true,
			sessionTime: "1:0:0",
			wantStatus:  domain.StatusCompleted,
			wantEvent:   domain.EventSessionCompletedByAdmin,
		},
		{
			name:             "pending assigned to a translator",
			from:             domain.StatusPending,
			to:               domain.StatusAssigned,
			changeTranslator: true,
			wantStatus:       domain.StatusAssigned,
			wantEvent:        domain.EventAssignedByAdmin,
		},
		{
			name:       "pending assigned without translator",
			from:       domain.StatusPending,
			to:         domain.StatusAssigned,
			wantStatus: domain.StatusPending,
			wantReason: ReasonValidation,
		},
		{
			name:       "pending withdrawn",
			from:       domain.StatusPending,
			to:         domain.StatusWithdrawBefore24,
			wantStatus: domain.StatusWithdrawBefore24,
			wantEvent:  domain.EventBookingCancelled,
		},
		{
			name:       "pending timed out without comment",
			from:       domain.StatusPending,
			to:         domain.StatusTimedOut,
			wantStatus: domain.StatusPending,
			wantReason: ReasonMissingAdminComment,
		},
		{
			name:       "pending timed out with comment",
			from:       domain.StatusPending,
			to:         domain.StatusTimedOut,
			comment:    "Ingen tolk tillgänglig",
			wantStatus: domain.StatusTimedOut,
			wantEvent:  domain.EventBookingCancelled,
		},
		{
			name:       "late withdrawal timed out with comment",
			from:       domain.StatusWithdrawAfter24,
			to:         domain.StatusTimedOut,
			comment:    "Avbokad per telefon",
			wantStatus: domain.StatusTimedOut,
		},
		{
			name:       "late withdrawal timed out without comment",
			from:       domain.StatusWithdrawAfter24,
			to:         domain.StatusTimedOut,
			wantStatus: domain.StatusWithdrawAfter24,
			wantReason: ReasonMissingAdminComment,
		},
		{
			name:       "late withdrawal back to pending",
			from:       domain.StatusWithdrawAfter24,
			to:         domain.StatusPending,
			wantStatus: domain.StatusWithdrawAfter24,
			wantReason: ReasonStatusNotAllowed,
		},
		{
			name:       "assigned withdrawn late",
			from:       domain.StatusAssigned,
			to:         domain.StatusWithdrawAfter24,
			held:       true,
			wantStatus: domain.StatusWithdrawAfter24,
			wantEvent:  domain.EventWithdrawnByAdmin,
		},
		{
			name:       "assigned timed out without comment",
			from:       domain.StatusAssigned,
			to:         domain.StatusTimedOut,
			held:       true,
			wantStatus: domain.StatusAssigned,
			wantReason: ReasonMissingAdminComment,
		},
		{
			name:       "assigned to started",
			from:       domain.StatusAssigned,
			to:         domain.StatusStarted,
			held:       true,
			wantStatus: domain.StatusAssigned,
			wantReason: ReasonStatusNotAllowed,
		},
		{
			name:       "early withdrawal is final",
			from:       domain.StatusWithdrawBefore24,
			to:         domain.StatusPending,
			wantStatus: domain.StatusWithdrawBefore24,
			wantReason: ReasonStatusNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, tt.from, now.Add(48*time.Hour))
			if tt.held {
				f.assign(t, job.ID, anna.ID)
			}

			req := UpdateJobRequest{Status: tt.to, SessionTime: tt.sessionTime}
			if tt.comment != "" {
				req.AdminComments = strPtr(tt.comment)
			}
			if tt.changeTranslator {
				req.TranslatorID = omar.ID
			}

			res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, f.job(t, job.ID).Status)
			if tt.wantReason != "" {
				assert.Equal(t, StatusFail, res.Status)
				assert.Equal(t, tt.wantReason, res.Reason)
			} else {
				assert.True(t, res.OK(), res.Message)
			}

			if tt.wantEvent != "" {
				findEvent(t, res, tt.wantEvent)
			} else {
				for _, ev := range res.Events {
					assert.NotContains(t, statusEvents, ev.Type)
				}
			}
			assert.LessOrEqual(t, len(f.openAssignments(job.ID)), 1)
		})
	}
}

func TestUpdateJob_StatusEventsOnlyOnAppliedTransitions(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusCompleted, now.Add(48*time.Hour))

	res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, UpdateJobRequest{
		Status: domain.StatusTimedOut,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Changes)
}

func TestUpdateJob_WithdrawClosesAssignment(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, now.Add(48*time.Hour))
	f.assign(t, job.ID, anna.ID)

	res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, UpdateJobRequest{
		Status: domain.StatusWithdrawBefore24,
	})
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)

	assert.Empty(t, f.openAssignments(job.ID))
	ev := findEvent(t, res, domain.EventWithdrawnByAdmin)
	assert.Equal(t, anna.ID, ev.TranslatorID)
	assert.Equal(t, domain.StatusWithdrawBefore24, ev.Job.Status)
}

func TestUpdateJob_ChangeTranslator(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, now.Add(48*time.Hour))
	f.assign(t, job.ID, anna.ID)

	res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, UpdateJobRequest{
		TranslatorEmail: "omar@example.com",
	})
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)

	open := f.openAssignments(job.ID)
	require.Len(t, open, 1)
	assert.Equal(t, omar.ID, open[0].TranslatorID)
	assert.Equal(t, []Change{{Field: "translator", Old: "1", New: "2"}}, res.Changes)

	ev := findEvent(t, res, domain.EventTranslatorChanged)
	assert.Equal(t, omar.ID, ev.TranslatorID)
	assert.Equal(t, anna.ID, ev.PreviousTranslatorID)
}

func TestUpdateJob_SameTranslatorIsNoChange(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, now.Add(48*time.Hour))
	f.assign(t, job.ID, anna.ID)

	res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, UpdateJobRequest{TranslatorID: anna.ID})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Empty(t, res.Events)
	assert.Len(t, f.store.Assignments(job.ID), 1)
}

func TestUpdateJob_UnknownTranslator(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, now.Add(48*time.Hour))

	res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, UpdateJobRequest{
		TranslatorEmail: "okand@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, "translator_email", res.FieldName)
	assert.Empty(t, f.store.Assignments(job.ID))
}

func TestUpdateJob_DueAndLanguageChanges(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, now.Add(48*time.Hour))
	newDue := now.Add(72 * time.Hour)

	res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, UpdateJobRequest{
		Due:            &newDue,
		FromLanguageID: 2,
		Reference:      strPtr("REF-77"),
		AdminComments:  strPtr("Flyttad på kundens begäran"),
	})
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)

	stored := f.job(t, job.ID)
	assert.True(t, stored.Due.Equal(newDue))
	assert.Equal(t, int64(2), stored.FromLanguageID)
	assert.Equal(t, "REF-77", stored.Reference)
	assert.Equal(t, "Flyttad på kundens begäran", stored.AdminComments)

	assert.Equal(t, []Change{
		{Field: "due", Old: "2024-05-12 12:00", New: "2024-05-13 12:00"},
		{Field: "language", Old: "Svensk", New: "Arabisk"},
	}, res.Changes)

	due := findEvent(t, res, domain.EventDueChanged)
	require.NotNil(t, due.PreviousDue)
	assert.True(t, due.PreviousDue.Equal(job.Due))
	assert.Equal(t, int64(1), findEvent(t, res, domain.EventLanguageChanged).PreviousLanguageID)
}

func TestUpdateJob_NoChangeNoticesForPastDue(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, now.Add(48*time.Hour))
	past := now.Add(-2 * time.Hour)

	res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, UpdateJobRequest{
		Due:            &past,
		FromLanguageID: 2,
	})
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)

	assert.Len(t, res.Changes, 2)
	assert.Empty(t, res.Events)
}

func TestUpdateJob_RejectedStatusKeepsOtherChanges(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusCompleted, now.Add(48*time.Hour))
	newDue := now.Add(96 * time.Hour)

	res, err := f.engine.UpdateJob(context.Background(), admin, job.ID, UpdateJobRequest{
		Due:    &newDue,
		Status: domain.StatusTimedOut,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, ReasonMissingAdminComment, res.Reason)
	assert.Equal(t, "admin_comments", res.FieldName)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "due", res.Changes[0].Field)

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.True(t, stored.Due.Equal(newDue))
	findEvent(t, res, domain.EventDueChanged)
}

func TestUpdateJob_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, now.Add(48*time.Hour))

	res, err := f.engine.UpdateJob(context.Background(), anna, job.ID, UpdateJobRequest{Status: domain.StatusTimedOut})
	require.NoError(t, err)
	assert.Equal(t, ReasonNotPermitted, res.Reason)
	assert.Equal(t, domain.StatusPending, f.job(t, job.ID).Status)
}

func TestUpdateJob_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.UpdateJob(context.Background(), admin, 404, UpdateJobRequest{})
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}
