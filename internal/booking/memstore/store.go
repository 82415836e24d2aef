// Package memstore provides in-memory implementations of the booking store
// and translator directory for local runs and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// compile-time interface checks
var (
	_ domain.Store     = (*Store)(nil)
	_ domain.Directory = (*Directory)(nil)
)

// Store is an in-memory domain.Store.
// RunInTx serializes transactions and rolls back on error; it is not reentrant.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	jobs             map[int64]domain.Job
	assignments      []domain.Assignment
	distances        map[int64]domain.Distance
	nextJobID        int64
	nextAssignmentID int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		jobs:      make(map[int64]domain.Job),
		distances: make(map[int64]domain.Distance),
	}
}

type snapshot struct {
	jobs             map[int64]domain.Job
	assignments      []domain.Assignment
	distances        map[int64]domain.Distance
	nextJobID        int64
	nextAssignmentID int64
}

// RunInTx runs fn with exclusive write access and restores state if fn fails
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		jobs:             make(map[int64]domain.Job, len(s.jobs)),
		assignments:      make([]domain.Assignment, len(s.assignments)),
		distances:        make(map[int64]domain.Distance, len(s.distances)),
		nextJobID:        s.nextJobID,
		nextAssignmentID: s.nextAssignmentID,
	}
	for k, v := range s.jobs {
		snap.jobs[k] = v
	}
	copy(snap.assignments, s.assignments)
	for k, v := range s.distances {
		snap.distances[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = snap.jobs
	s.assignments = snap.assignments
	s.distances = snap.distances
	s.nextJobID = snap.nextJobID
	s.nextAssignmentID = snap.nextAssignmentID
}

// GetJob returns a copy of the job
func (s *Store) GetJob(_ context.Context, id int64) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &job, nil
}

// LockJob is GetJob; isolation comes from RunInTx
func (s *Store) LockJob(ctx context.Context, id int64) (*domain.Job, error) {
	return s.GetJob(ctx, id)
}

// CreateJob assigns the next id and stores a copy
func (s *Store) CreateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextJobID++
	job.ID = s.nextJobID
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	s.jobs[job.ID] = *job
	return nil
}

// UpdateJob replaces the stored job
func (s *Store) UpdateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	s.jobs[job.ID] = *job
	return nil
}

// ListJobs returns jobs ordered by due descending, then id descending.
// One extra row is returned when more pages exist.
func (s *Store) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Job
	for _, job := range s.jobs {
		if filter.UserID != 0 && job.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, job.Status) {
			continue
		}
		if c := filter.Cursor; c != nil {
			if job.Due.After(c.Due) || (job.Due.Equal(c.Due) && job.ID >= c.JobID) {
				continue
			}
		}
		out = append(out, job)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Due.Equal(out[j].Due) {
			return out[i].Due.After(out[j].Due)
		}
		return out[i].ID > out[j].ID
	})

	if filter.PageSize > 0 && len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}

// InsertAssignmentIfAbsent creates an open assignment unless one exists
func (s *Store) InsertAssignmentIfAbsent(_ context.Context, jobID, translatorID int64, at time.Time) (*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openAssignmentLocked(jobID) != nil {
		return nil, domain.ErrAssignmentExists
	}

	a := domain.Assignment{
		JobID:        jobID,
		TranslatorID: translatorID,
		AssignedAt:   at,
	}
	s.appendLocked(&a)
	return &a, nil
}

// CreateAssignment stores a copy of a, refusing a second open assignment
func (s *Store) CreateAssignment(_ context.Context, a *domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.IsOpen() && s.openAssignmentLocked(a.JobID) != nil {
		return domain.ErrAssignmentExists
	}
	s.appendLocked(a)
	return nil
}

// CurrentAssignment returns the open assignment or nil
func (s *Store) CurrentAssignment(_ context.Context, jobID int64) (*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a := s.openAssignmentLocked(jobID); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

// LatestAssignment returns the open assignment, else the last completed one
func (s *Store) LatestAssignment(_ context.Context, jobID int64) (*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a := s.openAssignmentLocked(jobID); a != nil {
		cp := *a
		return &cp, nil
	}
	for i := len(s.assignments) - 1; i >= 0; i-- {
		a := s.assignments[i]
		if a.JobID == jobID && a.CompletedAt != nil {
			return &a, nil
		}
	}
	return nil, nil
}

// CloseAssignment sets the closing fields on an assignment
func (s *Store) CloseAssignment(_ context.Context, id int64, c domain.AssignmentClose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.assignments {
		if s.assignments[i].ID != id {
			continue
		}
		if c.CancelAt != nil {
			s.assignments[i].CancelAt = c.CancelAt
		}
		if c.CompletedAt != nil {
			s.assignments[i].CompletedAt = c.CompletedAt
		}
		if c.CompletedBy != nil {
			s.assignments[i].CompletedBy = c.CompletedBy
		}
		return nil
	}
	return domain.ErrAssignmentNotFound
}

// CancelOpenAssignments cancels every open assignment of the job
func (s *Store) CancelOpenAssignments(_ context.Context, jobID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.assignments {
		a := &s.assignments[i]
		if a.JobID == jobID && a.IsOpen() {
			cancelAt := at
			a.CancelAt = &cancelAt
		}
	}
	return nil
}

// LockTranslator is a no-op; RunInTx already serializes every transaction
func (s *Store) LockTranslator(context.Context, int64) error {
	return nil
}

// HasOverlappingAssignment checks the translator's open assignments on other jobs
func (s *Store) HasOverlappingAssignment(_ context.Context, translatorID, excludeJobID int64, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.assignments {
		if a.TranslatorID != translatorID || a.JobID == excludeJobID || !a.IsOpen() {
			continue
		}
		job, ok := s.jobs[a.JobID]
		if !ok {
			continue
		}
		if job.Due.Before(to) && from.Before(job.End()) {
			return true, nil
		}
	}
	return false, nil
}

// UpsertDistance stores the distance record of a job
func (s *Store) UpsertDistance(_ context.Context, d *domain.Distance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.distances[d.JobID] = *d
	return nil
}

// Distance returns the stored distance record of a job
func (s *Store) Distance(jobID int64) (domain.Distance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.distances[jobID]
	return d, ok
}

// Assignments returns a copy of every assignment of a job in insertion order
func (s *Store) Assignments(jobID int64) []domain.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) openAssignmentLocked(jobID int64) *domain.Assignment {
	for i := range s.assignments {
		if s.assignments[i].JobID == jobID && s.assignments[i].IsOpen() {
			return &s.assignments[i]
		}
	}
	return nil
}

func (s *Store) appendLocked(a *domain.Assignment) {
	s.nextAssignmentID++
	a.ID = s.nextAssignmentID
	s.assignments = append(s.assignments, *a)
}

func hasStatus(statuses []domain.JobStatus, st domain.JobStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}
