// Package storage is the PostgreSQL implementation of the booking store and
// user directory.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var Schema string

const uniqueViolation = "23505"

var errNotInTx = errors.New("translator lock requires a transaction")

const jobColumns = `
	id, user_id, from_language_id, due, duration, immediate, status,
	gender, certified, job_type, customer_phone_type, customer_physical_type,
	address, instructions, town, user_email, reference, admin_comments,
	session_time, by_admin, ignore, ignore_expired, cust_16_hour_email,
	cust_48_hour_email, created_at, updated_at, will_expire_at, end_at, withdraw_at`

const assignmentColumns = `id, job_id, translator_id, assigned_at, cancel_at, completed_at, completed_by`

const openAssignment = `cancel_at IS NULL AND completed_at IS NULL`

// querier is satisfied by both *sqlx.DB and *sqlx.Tx
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// JobStore implements domain.Store on PostgreSQL
type JobStore struct {
	pg     *postgresql.Client
	q      querier
	logger *slog.Logger
}

var _ domain.Store = (*JobStore)(nil)

// NewJobStore creates a JobStore backed by the client's pool
func NewJobStore(pg *postgresql.Client, logger *slog.Logger) *JobStore {
	return &JobStore{
		pg:     pg,
		q:      pg.GetDB(),
		logger: logger,
	}
}

// Migrate applies the embedded schema
func Migrate(ctx context.Context, pg *postgresql.Client) error {
	return pg.ApplySchema(ctx, Schema)
}

// RunInTx runs fn against a store bound to one transaction. Nested calls
// reuse the outer transaction.
func (s *JobStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	if _, inTx := s.q.(*sqlx.Tx); inTx {
		return fn(ctx, s)
	}
	return s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &JobStore{pg: s.pg, q: tx, logger: s.logger})
	})
}

func (s *JobStore) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	return s.getJob(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

// LockJob reads the job with a row lock held until the transaction ends
func (s *JobStore) LockJob(ctx context.Context, id int64) (*domain.Job, error) {
	return s.getJob(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
}

func (s *JobStore) getJob(ctx context.Context, query string, id int64) (*domain.Job, error) {
	var job domain.Job
	if err := s.q.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	query, args, err := bindJobInsert(job)
	if err != nil {
		return err
	}

	if err := s.q.QueryRowxContext(ctx, s.q.Rebind(query), args...).Scan(&job.ID); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// bindJobInsert defaults updated_at to created_at before binding
func bindJobInsert(job *domain.Job) (string, []interface{}, error) {
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	query, args, err := sqlx.Named(`
		INSERT INTO jobs (
			user_id, from_language_id, due, duration, immediate, status,
			gender, certified, job_type, customer_phone_type, customer_physical_type,
			address, instructions, town, user_email, reference, admin_comments,
			session_time, by_admin, ignore, ignore_expired, cust_16_hour_email,
			cust_48_hour_email, created_at, updated_at, will_expire_at, end_at, withdraw_at
		) VALUES (
			:user_id, :from_language_id, :due, :duration, :immediate, :status,
			:gender, :certified, :job_type, :customer_phone_type, :customer_physical_type,
			:address, :instructions, :town, :user_email, :reference, :admin_comments,
			:session_time, :by_admin, :ignore, :ignore_expired, :cust_16_hour_email,
			:cust_48_hour_email, :created_at, :updated_at, :will_expire_at, :end_at, :withdraw_at
		)
		RETURNING id
	`, job)
	if err != nil {
		return "", nil, fmt.Errorf("failed to bind job insert: %w", err)
	}
	return query, args, nil
}

func (s *JobStore) UpdateJob(ctx context.Context, job *domain.Job) error {
	result, err := sqlx.NamedExecContext(ctx, s.q, `
		UPDATE jobs SET
			from_language_id = :from_language_id,
			due = :due,
			duration = :duration,
			status = :status,
			gender = :gender,
			certified = :certified,
			customer_phone_type = :customer_phone_type,
			customer_physical_type = :customer_physical_type,
			address = :address,
			instructions = :instructions,
			town = :town,
			user_email = :user_email,
			reference = :reference,
			admin_comments = :admin_comments,
			session_time = :session_time,
			by_admin = :by_admin,
			ignore = :ignore,
			ignore_expired = :ignore_expired,
			cust_16_hour_email = :cust_16_hour_email,
			cust_48_hour_email = :cust_48_hour_email,
			created_at = :created_at,
			updated_at = :updated_at,
			will_expire_at = :will_expire_at,
			end_at = :end_at,
			withdraw_at = :withdraw_at
		WHERE id = :id
	`, job)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// ListJobs returns jobs ordered by due descending, then id descending.
// One extra row is fetched to tell whether more pages exist.
func (s *JobStore) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query, args := buildListQuery(filter)

	var jobs []domain.Job
	if err := s.q.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func buildListQuery(filter domain.JobFilter) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(`SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`)
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != 0 {
		fmt.Fprintf(&b, " AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		fmt.Fprintf(&b, " AND status = ANY($%d)", argIdx)
		args = append(args, pq.Array(statuses))
		argIdx++
	}

	if filter.Cursor != nil {
		fmt.Fprintf(&b, " AND (due, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.Due, filter.Cursor.JobID)
		argIdx += 2
	}

	b.WriteString(" ORDER BY due DESC, id DESC")

	if filter.PageSize > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", argIdx)
		args = append(args, filter.PageSize+1)
	}

	return b.String(), args
}

// InsertAssignmentIfAbsent claims the job for the translator unless an open
// assignment already exists. The partial unique index on open assignments
// backs the NOT EXISTS check against concurrent inserts.
func (s *JobStore) InsertAssignmentIfAbsent(ctx context.Context, jobID, translatorID int64, at time.Time) (*domain.Assignment, error) {
	query := `
		INSERT INTO translator_assignments (job_id, translator_id, assigned_at)
		SELECT $1::bigint, $2::bigint, $3::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM translator_assignments
			WHERE job_id = $1 AND ` + openAssignment + `
		)
		ON CONFLICT DO NOTHING
		RETURNING ` + assignmentColumns

	var a domain.Assignment
	err := s.q.QueryRowxContext(ctx, query, jobID, translatorID, at).StructScan(&a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Assignment claim lost",
				slog.Int64("job_id", jobID),
				slog.Int64("translator_id", translatorID),
			)
			return nil, domain.ErrAssignmentExists
		}
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}
	return &a, nil
}

func (s *JobStore) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO translator_assignments (job_id, translator_id, assigned_at, cancel_at, completed_at, completed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.q.QueryRowxContext(ctx, query,
		a.JobID, a.TranslatorID, a.AssignedAt, a.CancelAt, a.CompletedAt, a.CompletedBy,
	).Scan(&a.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAssignmentExists
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (s *JobStore) CurrentAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM translator_assignments
		WHERE job_id = $1 AND ` + openAssignment + ` LIMIT 1`
	return s.getAssignment(ctx, query, jobID)
}

// LatestAssignment returns the open assignment, else the last completed one
func (s *JobStore) LatestAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM translator_assignments
		WHERE job_id = $1 AND (` + openAssignment + ` OR completed_at IS NOT NULL)
		ORDER BY (` + openAssignment + `) DESC, completed_at DESC NULLS LAST, id DESC
		LIMIT 1`
	return s.getAssignment(ctx, query, jobID)
}

func (s *JobStore) getAssignment(ctx context.Context, query string, jobID int64) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := s.q.GetContext(ctx, &a, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (s *JobStore) CloseAssignment(ctx context.Context, id int64, c domain.AssignmentClose) error {
	query := `
		UPDATE translator_assignments SET
			cancel_at = COALESCE($2, cancel_at),
			completed_at = COALESCE($3, completed_at),
			completed_by = COALESCE($4, completed_by)
		WHERE id = $1
	`
	result, err := s.q.ExecContext(ctx, query, id, c.CancelAt, c.CompletedAt, c.CompletedBy)
	if err != nil {
		return fmt.Errorf("failed to close assignment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAssignmentNotFound
	}
	return nil
}

func (s *JobStore) CancelOpenAssignments(ctx context.Context, jobID int64, at time.Time) error {
	query := `UPDATE translator_assignments SET cancel_at = $2 WHERE job_id = $1 AND ` + openAssignment
	if _, err := s.q.ExecContext(ctx, query, jobID, at); err != nil {
		return fmt.Errorf("failed to cancel assignments: %w", err)
	}
	return nil
}

// LockTranslator takes a transaction-scoped advisory lock keyed by the
// translator id. It must run inside RunInTx.
func (s *JobStore) LockTranslator(ctx context.Context, translatorID int64) error {
	if _, inTx := s.q.(*sqlx.Tx); !inTx {
		return errNotInTx
	}
	if _, err := s.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, translatorID); err != nil {
		return fmt.Errorf("failed to lock translator: %w", err)
	}
	return nil
}

// HasOverlappingAssignment reports whether the translator holds an open
// assignment on another job whose session overlaps [from, to)
func (s *JobStore) HasOverlappingAssignment(ctx context.Context, translatorID, excludeJobID int64, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM translator_assignments a
			JOIN jobs j ON j.id = a.job_id
			WHERE a.translator_id = $1
			  AND a.job_id <> $2
			  AND a.cancel_at IS NULL
			  AND a.completed_at IS NULL
			  AND j.due < $4
			  AND $3 < j.due + make_interval(mins => j.duration)
		)
	`
	var booked bool
	if err := s.q.GetContext(ctx, &booked, query, translatorID, excludeJobID, from, to); err != nil {
		return false, fmt.Errorf("failed to check overlapping assignments: %w", err)
	}
	return booked, nil
}

func (s *JobStore) UpsertDistance(ctx context.Context, d *domain.Distance) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO distances (job_id, distance, time, flagged, manually_handled, by_admin)
		VALUES (:job_id, :distance, :time, :flagged, :manually_handled, :by_admin)
		ON CONFLICT (job_id) DO UPDATE SET
			distance = EXCLUDED.distance,
			time = EXCLUDED.time,
			flagged = EXCLUDED.flagged,
			manually_handled = EXCLUDED.manually_handled,
			by_admin = EXCLUDED.by_admin
	`, d)
	if err != nil {
		return fmt.Errorf("failed to upsert distance: %w", err)
	}
	return nil
}
