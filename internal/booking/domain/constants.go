package domain

import "fmt"

// JobStatus is the lifecycle state of a booking
type JobStatus string

const (
	StatusPending               JobStatus = "pending"
	StatusAssigned              JobStatus = "assigned"
	StatusStarted               JobStatus = "started"
	StatusCompleted             JobStatus = "completed"
	StatusTimedOut              JobStatus = "timedout"
	StatusWithdrawBefore24      JobStatus = "withdrawbefore24"
	StatusWithdrawAfter24       JobStatus = "withdrawafter24"
	StatusNotCarriedOutCustomer JobStatus = "not_carried_out_customer"
)

var allStatuses = []JobStatus{
	StatusPending,
	StatusAssigned,
	StatusStarted,
	StatusCompleted,
	StatusTimedOut,
	StatusWithdrawBefore24,
	StatusWithdrawAfter24,
	StatusNotCarriedOutCustomer,
}

// ParseJobStatus converts a raw status string to a JobStatus
func ParseJobStatus(s string) (JobStatus, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// IsTerminal reports whether no further lifecycle transitions leave this status
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusWithdrawBefore24, StatusWithdrawAfter24, StatusNotCarriedOutCustomer:
		return true
	}
	return false
}

// IsHistory reports whether the job belongs in a requester's history view
func (s JobStatus) IsHistory() bool {
	return s.IsTerminal() || s == StatusTimedOut
}

// HistoryStatuses lists every status shown in the history view
func HistoryStatuses() []JobStatus {
	out := make([]JobStatus, 0, len(allStatuses))
	for _, st := range allStatuses {
		if st.IsHistory() {
			out = append(out, st)
		}
	}
	return out
}

// JobType is the billing category of a booking
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeUnpaid JobType = "unpaid"
	JobTypeRWS    JobType = "rws"
)

// Gender is the requested interpreter gender; empty means no preference
type Gender string

const (
	GenderNone   Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Certification is the certification requirement of a job; empty means any
type Certification string

const (
	CertificationNone    Certification = ""
	CertificationNormal  Certification = "normal"
	CertificationYes     Certification = "yes"
	CertificationLaw     Certification = "law"
	CertificationHealth  Certification = "health"
	CertificationBoth    Certification = "both"
	CertificationNLaw    Certification = "n_law"
	CertificationNHealth Certification = "n_health"
)

// TranslatorType classifies a translator's contract
type TranslatorType string

const (
	TranslatorProfessional TranslatorType = "professional"
	TranslatorRWS          TranslatorType = "rwstranslator"
	TranslatorVolunteer    TranslatorType = "volunteer"
)

// TranslatorLevel is a translator's certification level
type TranslatorLevel string

const (
	LevelCertified       TranslatorLevel = "Certified"
	LevelCertifiedLaw    TranslatorLevel = "Certified with specialisation in law"
	LevelCertifiedHealth TranslatorLevel = "Certified with specialisation in health care"
	LevelLayman          TranslatorLevel = "Layman"
	LevelReadCourses     TranslatorLevel = "Read Translation courses"
)

// ConsumerType classifies a customer account
type ConsumerType string

const (
	ConsumerRWS  ConsumerType = "rwsconsumer"
	ConsumerNGO  ConsumerType = "ngo"
	ConsumerPaid ConsumerType = "paid"
)

// Role is the acting user's role
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTranslator Role = "translator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsAdmin reports whether the role may use the admin update path
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// ParseRole converts a raw role string to a Role
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleTranslator, RoleAdmin, RoleSuperAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
