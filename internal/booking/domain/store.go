package domain

import (
	"context"
	"time"
)

// Store persists jobs and their assignment history.
// Every method is atomic at record granularity; RunInTx groups a
// read-modify-write so concurrent writers on the same job serialize.
type Store interface {
	// GetJob returns ErrJobNotFound when the id is absent
	GetJob(ctx context.Context, id int64) (*Job, error)
	// LockJob reads the job and holds it for the rest of the transaction
	LockJob(ctx context.Context, id int64) (*Job, error)
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)

	// InsertAssignmentIfAbsent returns ErrAssignmentExists when an open assignment already exists
	InsertAssignmentIfAbsent(ctx context.Context, jobID, translatorID int64, at time.Time) (*Assignment, error)
	CreateAssignment(ctx context.Context, a *Assignment) error
	// CurrentAssignment returns the open assignment or nil
	CurrentAssignment(ctx context.Context, jobID int64) (*Assignment, error)
	// LatestAssignment returns the open assignment, else the most recently completed one, else nil
	LatestAssignment(ctx context.Context, jobID int64) (*Assignment, error)
	CloseAssignment(ctx context.Context, id int64, close AssignmentClose) error
	CancelOpenAssignments(ctx context.Context, jobID int64, at time.Time) error
	// LockTranslator serializes assignment claims by one translator until
	// the transaction ends
	LockTranslator(ctx context.Context, translatorID int64) error
	// HasOverlappingAssignment reports whether the translator holds an open
	// assignment on another job whose session overlaps [from, to)
	HasOverlappingAssignment(ctx context.Context, translatorID, excludeJobID int64, from, to time.Time) (bool, error)

	UpsertDistance(ctx context.Context, d *Distance) error

	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// Directory is the read-only view of users owned by the identity subsystem
type Directory interface {
	ListActive(ctx context.Context) ([]TranslatorProfile, error)
	// Profile returns ErrTranslatorNotFound when the id is absent
	Profile(ctx context.Context, userID int64) (*TranslatorProfile, error)
	TranslatorByEmail(ctx context.Context, email string) (*TranslatorProfile, error)
	LanguagesOf(ctx context.Context, userID int64) ([]int64, error)
	BlacklistOf(ctx context.Context, customerID int64) ([]int64, error)
	// Customer returns ErrCustomerNotFound when the id is absent
	Customer(ctx context.Context, userID int64) (*Customer, error)
	LanguageName(ctx context.Context, languageID int64) (string, error)
}
