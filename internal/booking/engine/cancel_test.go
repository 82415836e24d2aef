package engine

import (
	"context"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/expiry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelJob_CustomerWithdrawal(t *testing.T) {
	tests := []struct {
		name       string
		lead       time.Duration
		assigned   bool
		wantStatus domain.JobStatus
	}{
		{"exactly 24 hours ahead", 24 * time.Hour, true, domain.StatusWithdrawBefore24},
		{"one minute inside the window", 24*time.Hour - time.Minute, true, domain.StatusWithdrawAfter24},
		{"two days ahead while pending", 48 * time.Hour, false, domain.StatusWithdrawBefore24},
		{"overdue booking", -time.Hour, true, domain.StatusWithdrawAfter24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			status := domain.StatusPending
			if tt.assigned {
				status = domain.StatusAssigned
			}
			job := f.seedJob(t, status, now.Add(tt.lead))
			if tt.assigned {
				f.assign(t, job.ID, anna.ID)
			}

			res, err := f.engine.CancelJob(context.Background(), customer, job.ID)
			require.NoError(t, err)
			require.True(t, res.OK(), res.Message)

			stored := f.job(t, job.ID)
			assert.Equal(t, tt.wantStatus, stored.Status)
			require.NotNil(t, stored.WithdrawAt)
			assert.True(t, stored.WithdrawAt.Equal(now))
			assert.Empty(t, f.openAssignments(job.ID))

			ev := findEvent(t, res, domain.EventJobWithdrawn)
			if tt.assigned {
				assert.Equal(t, anna.ID, ev.TranslatorID)
			} else {
				assert.Zero(t, ev.TranslatorID)
			}
		})
	}
}

func TestCancelJob_TranslatorReturnsJob(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, now.Add(24*time.Hour+time.Minute))
	f.assign(t, job.ID, anna.ID)

	res, err := f.engine.CancelJob(context.Background(), anna, job.ID)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.True(t, stored.CreatedAt.Equal(now))
	assert.True(t, stored.WillExpireAt.Equal(expiry.At(stored.Due, now)))
	assert.Empty(t, f.openAssignments(job.ID))

	ev := findEvent(t, res, domain.EventTranslatorCancelled)
	assert.Equal(t, anna.ID, ev.TranslatorID)
	assert.Equal(t, []int64{2}, ev.Candidates)
}

func TestCancelJob_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.JobStatus
		lead       time.Duration
		holder     int64
		actor      domain.Actor
		wantReason Reason
	}{
		{
			name:       "translator at exactly 24 hours",
			status:     domain.StatusAssigned,
			lead:       24 * time.Hour,
			holder:     anna.ID,
			actor:      anna,
			wantReason: ReasonCancellationWindow,
		},
		{
			name:       "admin inside the window",
			status:     domain.StatusAssigned,
			lead:       3 * time.Hour,
			holder:     anna.ID,
			actor:      admin,
			wantReason: ReasonCancellationWindow,
		},
		{
			name:       "translator not holding the job",
			status:     domain.StatusAssigned,
			lead:       72 * time.Hour,
			holder:     anna.ID,
			actor:      omar,
			wantReason: ReasonNotPermitted,
		},
		{
			name:       "translator on unassigned job",
			status:     domain.StatusPending,
			lead:       72 * time.Hour,
			actor:      anna,
			wantReason: ReasonNotAssigned,
		},
		{
			name:       "customer cancelling someone else's booking",
			status:     domain.StatusPending,
			lead:       72 * time.Hour,
			actor:      domain.Actor{ID: 555, Role: domain.RoleCustomer},
			wantReason: ReasonNotPermitted,
		},
		{
			name:       "completed booking",
			status:     domain.StatusCompleted,
			lead:       -time.Hour,
			actor:      customer,
			wantReason: ReasonInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, tt.status, now.Add(tt.lead))
			if tt.holder != 0 {
				f.assign(t, job.ID, tt.holder)
			}

			res, err := f.engine.CancelJob(context.Background(), tt.actor, job.ID)
			require.NoError(t, err)

			assert.Equal(t, StatusFail, res.Status)
			assert.Equal(t, tt.wantReason, res.Reason)
			assert.Empty(t, res.Events)
			assert.Equal(t, tt.status, f.job(t, job.ID).Status)
			if tt.holder != 0 {
				assert.Len(t, f.openAssignments(job.ID), 1)
			}
		})
	}
}

func TestCancelJob_WindowMessage(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, now.Add(2*time.Hour))
	f.assign(t, job.ID, anna.ID)

	res, err := f.engine.CancelJob(context.Background(), anna, job.ID)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "+46 73 75 86 865")
}
