package dto

import (
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/engine"
)

type CreateJobRequest struct {
	FromLanguageID       int64    `json:"from_language_id"`
	Immediate            bool     `json:"immediate"`
	DueDate              string   `json:"due_date"`
	DueTime              string   `json:"due_time"`
	Duration             int      `json:"duration"`
	CustomerPhoneType    bool     `json:"customer_phone_type"`
	CustomerPhysicalType bool     `json:"customer_physical_type"`
	JobFor               []string `json:"job_for"`
	Address              string   `json:"address"`
	Instructions         string   `json:"instructions"`
	Town                 string   `json:"town"`
	UserEmail            string   `json:"user_email" binding:"omitempty,email"`
	Reference            string   `json:"reference"`
	ByAdmin              bool     `json:"by_admin"`
}

func (r *CreateJobRequest) ToEngine() engine.CreateJobRequest {
	return engine.CreateJobRequest{
		FromLanguageID:       r.FromLanguageID,
		Immediate:            r.Immediate,
		DueDate:              r.DueDate,
		DueTime:              r.DueTime,
		Duration:             r.Duration,
		CustomerPhoneType:    r.CustomerPhoneType,
		CustomerPhysicalType: r.CustomerPhysicalType,
		JobFor:               r.JobFor,
		Address:              r.Address,
		Instructions:         r.Instructions,
		Town:                 r.Town,
		UserEmail:            r.UserEmail,
		Reference:            r.Reference,
		ByAdmin:              r.ByAdmin,
	}
}

type UpdateJobRequest struct {
	TranslatorID    int64      `json:"translator_id"`
	TranslatorEmail string     `json:"translator_email" binding:"omitempty,email"`
	Due             *time.Time `json:"due"`
	FromLanguageID  int64      `json:"from_language_id"`
	Status          string     `json:"status"`
	SessionTime     string     `json:"session_time"`
	AdminComments   *string    `json:"admin_comments"`
	Reference       *string    `json:"reference"`
}

type JobEmailRequest struct {
	UserEmail    string  `json:"user_email" binding:"required,email"`
	Reference    string  `json:"reference"`
	Address      *string `json:"address"`
	Instructions *string `json:"instructions"`
	Town         *string `json:"town"`
}

type DistanceRequest struct {
	Distance        string `json:"distance"`
	Time            string `json:"time"`
	SessionTime     string `json:"session_time"`
	AdminComment    string `json:"admincomment"`
	Flagged         bool   `json:"flagged"`
	ManuallyHandled bool   `json:"manually_handled"`
	ByAdmin         bool   `json:"by_admin"`
}

type ListJobsRequest struct {
	UserID   int64    `form:"user_id"`
	Status   []string `form:"status"`
	History  bool     `form:"history"`
	PageSize int      `form:"page_size"`
	Cursor   string   `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	ID                   int64  `json:"id"`
	UserID               int64  `json:"user_id"`
	FromLanguageID       int64  `json:"from_language_id"`
	Due                  string `json:"due"`
	Duration             int    `json:"duration"`
	Immediate            bool   `json:"immediate"`
	Status               string `json:"status"`
	Gender               string `json:"gender,omitempty"`
	Certified            string `json:"certified,omitempty"`
	JobType              string `json:"job_type"`
	CustomerPhoneType    bool   `json:"customer_phone_type"`
	CustomerPhysicalType bool   `json:"customer_physical_type"`
	Address              string `json:"address,omitempty"`
	Instructions         string `json:"instructions,omitempty"`
	Town                 string `json:"town,omitempty"`
	UserEmail            string `json:"user_email,omitempty"`
	Reference            string `json:"reference,omitempty"`
	AdminComments        string `json:"admin_comments,omitempty"`
	SessionTime          string `json:"session_time,omitempty"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
	WillExpireAt         string `json:"will_expire_at"`
	EndAt                string `json:"end_at,omitempty"`
	WithdrawAt           string `json:"withdraw_at,omitempty"`
}

func ToJobDTO(job *domain.Job) JobDTO {
	return JobDTO{
		ID:                   job.ID,
		UserID:               job.UserID,
		FromLanguageID:       job.FromLanguageID,
		Due:                  job.Due.Format(time.RFC3339),
		Duration:             job.Duration,
		Immediate:            job.Immediate,
		Status:               string(job.Status),
		Gender:               string(job.Gender),
		Certified:            string(job.Certified),
		JobType:              string(job.JobType),
		CustomerPhoneType:    job.CustomerPhoneType,
		CustomerPhysicalType: job.CustomerPhysicalType,
		Address:              job.Address,
		Instructions:         job.Instructions,
		Town:                 job.Town,
		UserEmail:            job.UserEmail,
		Reference:            job.Reference,
		AdminComments:        job.AdminComments,
		SessionTime:          job.SessionTime,
		CreatedAt:            job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            job.UpdatedAt.Format(time.RFC3339),
		WillExpireAt:         job.WillExpireAt.Format(time.RFC3339),
		EndAt:                formatOptional(job.EndAt),
		WithdrawAt:           formatOptional(job.WithdrawAt),
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

type ResultResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	FieldName string          `json:"field_name,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	ID        int64           `json:"id,omitempty"`
	Type      string          `json:"type,omitempty"`
	Job       *JobDTO         `json:"job,omitempty"`
	Changes   []engine.Change `json:"changes,omitempty"`
}

func ToResultResponse(res *engine.Result) ResultResponse {
	out := ResultResponse{
		Status:    string(res.Status),
		Message:   res.Message,
		FieldName: res.FieldName,
		Reason:    string(res.Reason),
		ID:        res.JobID,
		Type:      res.Type,
		Changes:   res.Changes,
	}
	if res.Job != nil {
		job := ToJobDTO(res.Job)
		out.Job = &job
	}
	return out
}
