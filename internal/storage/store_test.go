package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListQuery(t *testing.T) {
	due := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    domain.JobFilter
		wantParts []string
		wantArgs  int
	}{
		{
			name:      "no filter lists everything",
			filter:    domain.JobFilter{},
			wantParts: []string{"WHERE 1=1 ORDER BY due DESC, id DESC"},
			wantArgs:  0,
		},
		{
			name:      "requester page",
			filter:    domain.JobFilter{UserID: 100, PageSize: 20},
			wantParts: []string{"AND user_id = $1", "LIMIT $2"},
			wantArgs:  2,
		},
		{
			name: "history with cursor",
			filter: domain.JobFilter{
				UserID:   100,
				Statuses: []domain.JobStatus{domain.StatusCompleted, domain.StatusTimedOut},
				PageSize: 10,
				Cursor:   &domain.JobCursor{Due: due, JobID: 42},
			},
			wantParts: []string{
				"AND user_id = $1",
				"AND status = ANY($2)",
				"AND (due, id) < ($3, $4)",
				"LIMIT $5",
			},
			wantArgs: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListQuery(tt.filter)

			for _, part := range tt.wantParts {
				assert.Contains(t, query, part)
			}
			assert.Len(t, args, tt.wantArgs)
			assert.True(t, strings.HasSuffix(query, tt.wantParts[len(tt.wantParts)-1]))
		})
	}
}

func TestBuildListQuery_FetchesOneExtraRow(t *testing.T) {
	_, args := buildListQuery(domain.JobFilter{PageSize: 20})

	require.Len(t, args, 1)
	assert.Equal(t, 21, args[0])
}

func TestBuildListQuery_StatusesBindAsArray(t *testing.T) {
	_, args := buildListQuery(domain.JobFilter{Statuses: []domain.JobStatus{domain.StatusPending}})

	require.Len(t, args, 1)
	assert.Equal(t, pq.Array([]string{"pending"}), args[0])
}

func TestSchema_HasOpenAssignmentIndex(t *testing.T) {
	assert.Contains(t, Schema, "CREATE UNIQUE INDEX IF NOT EXISTS translator_assignments_open_idx")
	assert.Contains(t, Schema, "WHERE cancel_at IS NULL AND completed_at IS NULL")
}

func TestBindJobInsert_DefaultsUpdatedAt(t *testing.T) {
	created := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	job := &domain.Job{UserID: 100, FromLanguageID: 1, Status: domain.StatusPending, CreatedAt: created}

	query, args, err := bindJobInsert(job)
	require.NoError(t, err)

	assert.Contains(t, query, "RETURNING id")
	assert.Equal(t, created, job.UpdatedAt)
	require.Len(t, args, 28)
	// created_at and updated_at are the 24th and 25th bound columns
	assert.Equal(t, created, args[23])
	assert.Equal(t, created, args[24])
}

func TestBindJobInsert_KeepsExplicitUpdatedAt(t *testing.T) {
	created := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	job := &domain.Job{CreatedAt: created, UpdatedAt: updated}

	_, args, err := bindJobInsert(job)
	require.NoError(t, err)
	assert.Equal(t, updated, args[24])
}

func TestLockTranslator_RequiresTransaction(t *testing.T) {
	s := &JobStore{}

	err := s.LockTranslator(context.Background(), 1)
	assert.ErrorIs(t, err, errNotInTx)
}
