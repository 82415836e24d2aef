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

func TestReopen_ResetsSameRecord(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, now.Add(72*time.Hour))
	f.assign(t, job.ID, anna.ID)

	res, err := f.engine.Reopen(context.Background(), anna, job.ID)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "Tolk cancelled!", res.Message)

	assert.Equal(t, job.ID, res.JobID)
	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.True(t, stored.CreatedAt.Equal(now))
	assert.True(t, stored.WillExpireAt.Equal(expiry.At(stored.Due, now)))

	assert.Empty(t, f.openAssignments(job.ID))
	assignments := f.store.Assignments(job.ID)
	require.Len(t, assignments, 2)
	placeholder := assignments[1]
	assert.Equal(t, anna.ID, placeholder.TranslatorID)
	require.NotNil(t, placeholder.CancelAt)

	ev := findEvent(t, res, domain.EventJobReopened)
	assert.Zero(t, ev.PreviousJobID)
	assert.Equal(t, []int64{1, 2}, ev.Candidates)
}

func TestReopen_TimedOutCreatesCopy(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusTimedOut, now.Add(6*time.Hour))

	res, err := f.engine.Reopen(context.Background(), admin, job.ID)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)

	require.NotEqual(t, job.ID, res.JobID)
	copied := f.job(t, res.JobID)
	assert.Equal(t, domain.StatusPending, copied.Status)
	assert.Equal(t, "This booking is a reopening of booking #1", copied.AdminComments)
	assert.True(t, copied.Due.Equal(job.Due))
	assert.Equal(t, job.FromLanguageID, copied.FromLanguageID)

	assert.Equal(t, domain.StatusTimedOut, f.job(t, job.ID).Status)
	assert.Equal(t, job.ID, findEvent(t, res, domain.EventJobReopened).PreviousJobID)
}

func TestReopen_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Reopen(context.Background(), admin, 404)
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}
