package domain

import "time"

// Job is one interpreter booking
type Job struct {
	ID                   int64         `db:"id" json:"id"`
	UserID               int64         `db:"user_id" json:"user_id"`
	FromLanguageID       int64         `db:"from_language_id" json:"from_language_id"`
	Due                  time.Time     `db:"due" json:"due"`
	Duration             int           `db:"duration" json:"duration"`
	Immediate            bool          `db:"immediate" json:"immediate"`
	Status               JobStatus     `db:"status" json:"status"`
	Gender               Gender        `db:"gender" json:"gender,omitempty"`
	Certified            Certification `db:"certified" json:"certified,omitempty"`
	JobType              JobType       `db:"job_type" json:"job_type"`
	CustomerPhoneType    bool          `db:"customer_phone_type" json:"customer_phone_type"`
	CustomerPhysicalType bool          `db:"customer_physical_type" json:"customer_physical_type"`
	Address              string        `db:"address" json:"address,omitempty"`
	Instructions         string        `db:"instructions" json:"instructions,omitempty"`
	Town                 string        `db:"town" json:"town,omitempty"`
	UserEmail            string        `db:"user_email" json:"user_email,omitempty"`
	Reference            string        `db:"reference" json:"reference,omitempty"`
	AdminComments        string        `db:"admin_comments" json:"admin_comments,omitempty"`
	SessionTime          string        `db:"session_time" json:"session_time,omitempty"`
	ByAdmin              bool          `db:"by_admin" json:"by_admin"`
	Ignore               bool          `db:"ignore" json:"ignore"`
	IgnoreExpired        bool          `db:"ignore_expired" json:"ignore_expired"`
	Cust16HourEmail      bool          `db:"cust_16_hour_email" json:"cust_16_hour_email"`
	Cust48HourEmail      bool          `db:"cust_48_hour_email" json:"cust_48_hour_email"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
	WillExpireAt         time.Time     `db:"will_expire_at" json:"will_expire_at"`
	EndAt                *time.Time    `db:"end_at" json:"end_at,omitempty"`
	WithdrawAt           *time.Time    `db:"withdraw_at" json:"withdraw_at,omitempty"`
}

// IsPhysicalOnly reports whether the job is on-site with no phone fallback
func (j *Job) IsPhysicalOnly() bool {
	return !j.CustomerPhoneType && j.CustomerPhysicalType
}

// End returns the scheduled end of the session
func (j *Job) End() time.Time {
	return j.Due.Add(time.Duration(j.Duration) * time.Minute)
}

// Assignment is one translator's claim on a job
type Assignment struct {
	ID           int64      `db:"id" json:"id"`
	JobID        int64      `db:"job_id" json:"job_id"`
	TranslatorID int64      `db:"translator_id" json:"translator_id"`
	AssignedAt   time.Time  `db:"assigned_at" json:"assigned_at"`
	CancelAt     *time.Time `db:"cancel_at" json:"cancel_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy  *int64     `db:"completed_by" json:"completed_by,omitempty"`
}

// IsOpen reports whether the assignment is the job's current one
func (a *Assignment) IsOpen() bool {
	return a.CancelAt == nil && a.CompletedAt == nil
}

// AssignmentClose describes how an assignment is closed
type AssignmentClose struct {
	CancelAt    *time.Time
	CompletedAt *time.Time
	CompletedBy *int64
}

// Distance holds per-job travel data maintained by dispatchers
type Distance struct {
	JobID           int64  `db:"job_id" json:"job_id"`
	Distance        string `db:"distance" json:"distance"`
	Time            string `db:"time" json:"time"`
	Flagged         bool   `db:"flagged" json:"flagged"`
	ManuallyHandled bool   `db:"manually_handled" json:"manually_handled"`
	ByAdmin         bool   `db:"by_admin" json:"by_admin"`
}

// JobFilter selects jobs for listing
type JobFilter struct {
	UserID   int64
	Statuses []JobStatus
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is a keyset position in a due-descending listing
type JobCursor struct {
	Due   time.Time
	JobID int64
}
