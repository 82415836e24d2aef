package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cuongbtq/interpreter-booking/internal/api/dto"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/engine"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func actorFrom(c *gin.Context) domain.Actor {
	actor, _ := c.MustGet(ActorKey).(domain.Actor)
	return actor
}

func (h *JobHandler) jobID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid job_id", slog.String("job_id", c.Param("job_id")))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

// respond publishes the events of a committed transition and writes the result
func (h *JobHandler) respond(c *gin.Context, op string, res *engine.Result, err error) {
	if err != nil {
		h.fail(c, op, err)
		return
	}

	if len(res.Events) > 0 && h.publisher != nil {
		h.publisher.PublishEvents(c.Request.Context(), res.Events)
	}

	status := http.StatusOK
	if !res.OK() {
		status = http.StatusUnprocessableEntity
		h.logger.Info("Booking operation rejected",
			slog.String("operation", op),
			slog.String("reason", string(res.Reason)),
			slog.String("field", res.FieldName),
		)
	}
	c.JSON(status, dto.ToResultResponse(res))
}

func (h *JobHandler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, domain.ErrTranslatorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Translator not found"})
	case errors.Is(err, domain.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
	default:
		h.logger.Error("Booking operation failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to " + op,
		})
	}
}

func (h *JobHandler) badRequest(c *gin.Context, err error) {
	h.logger.Error("Invalid request body", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "Invalid request body",
	})
}

// CreateJob handles POST /api/v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.engine.CreateJob(c.Request.Context(), actorFrom(c), req.ToEngine())
	h.respond(c, "create job", res, err)
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.engine.GetJob(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get job", err)
		return
	}

	actor := actorFrom(c)
	if actor.Role == domain.RoleCustomer && job.UserID != actor.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, dto.ToJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs
// Customers see their own bookings; admins may filter by user_id.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	actor := actorFrom(c)
	filter := domain.JobFilter{
		UserID:   req.UserID,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}
	switch {
	case actor.Role == domain.RoleCustomer:
		filter.UserID = actor.ID
	case !actor.Role.IsAdmin():
		c.JSON(http.StatusForbidden, gin.H{"error": "Only customers and admins can list bookings"})
		return
	}

	if req.History {
		filter.Statuses = domain.HistoryStatuses()
	}
	for _, raw := range req.Status {
		st, err := domain.ParseJobStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	jobs, err := h.engine.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list jobs", err)
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, len(jobs))}
	for i := range jobs {
		resp.Jobs[i] = dto.ToJobDTO(&jobs[i])
	}
	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = EncodeJobCursor(&domain.JobCursor{Due: last.Due, JobID: last.ID})
	}

	c.JSON(http.StatusOK, resp)
}

// AcceptJob handles POST /api/v1/jobs/:job_id/accept
func (h *JobHandler) AcceptJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.AcceptJob(c.Request.Context(), actorFrom(c), id)
	h.respond(c, "accept job", res, err)
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.CancelJob(c.Request.Context(), actorFrom(c), id)
	h.respond(c, "cancel job", res, err)
}

// EndJob handles POST /api/v1/jobs/:job_id/end
func (h *JobHandler) EndJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.EndJob(c.Request.Context(), actorFrom(c), id)
	h.respond(c, "end job", res, err)
}

// CustomerNotCall handles POST /api/v1/jobs/:job_id/not-carried-out
func (h *JobHandler) CustomerNotCall(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.CustomerNotCall(c.Request.Context(), actorFrom(c), id)
	h.respond(c, "mark job not carried out", res, err)
}

// ReopenJob handles POST /api/v1/jobs/:job_id/reopen
func (h *JobHandler) ReopenJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.Reopen(c.Request.Context(), actorFrom(c), id)
	h.respond(c, "reopen job", res, err)
}

// UpdateJob handles PUT /api/v1/jobs/:job_id
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	update := engine.UpdateJobRequest{
		TranslatorID:    req.TranslatorID,
		TranslatorEmail: req.TranslatorEmail,
		Due:             req.Due,
		FromLanguageID:  req.FromLanguageID,
		SessionTime:     req.SessionTime,
		AdminComments:   req.AdminComments,
		Reference:       req.Reference,
	}
	if req.Status != "" {
		st, err := domain.ParseJobStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		update.Status = st
	}

	res, err := h.engine.UpdateJob(c.Request.Context(), actorFrom(c), id, update)
	h.respond(c, "update job", res, err)
}

// StoreJobEmail handles POST /api/v1/jobs/:job_id/email
func (h *JobHandler) StoreJobEmail(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	var req dto.JobEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.engine.StoreJobEmail(c.Request.Context(), actorFrom(c), id, engine.JobEmailRequest{
		UserEmail:    req.UserEmail,
		Reference:    req.Reference,
		Address:      req.Address,
		Instructions: req.Instructions,
		Town:         req.Town,
	})
	h.respond(c, "store job email", res, err)
}

// DistanceFeed handles POST /api/v1/jobs/:job_id/distance
func (h *JobHandler) DistanceFeed(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	var req dto.DistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.engine.DistanceFeed(c.Request.Context(), actorFrom(c), id, engine.DistanceRequest{
		Distance:        req.Distance,
		Time:            req.Time,
		SessionTime:     req.SessionTime,
		AdminComment:    req.AdminComment,
		Flagged:         req.Flagged,
		ManuallyHandled: req.ManuallyHandled,
		ByAdmin:         req.ByAdmin,
	})
	h.respond(c, "update distance", res, err)
}

// ResendNotifications handles POST /api/v1/jobs/:job_id/resend-notifications
func (h *JobHandler) ResendNotifications(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.ResendNotifications(c.Request.Context(), actorFrom(c), id)
	h.respond(c, "resend notifications", res, err)
}

// ResendSMSNotifications handles POST /api/v1/jobs/:job_id/resend-sms
func (h *JobHandler) ResendSMSNotifications(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.ResendSMSNotifications(c.Request.Context(), actorFrom(c), id)
	h.respond(c, "resend sms", res, err)
}

// SendExpiredNotification handles POST /api/v1/jobs/:job_id/expired-notification
func (h *JobHandler) SendExpiredNotification(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.SendExpiredNotification(c.Request.Context(), actorFrom(c), id)
	h.respond(c, "send expired notification", res, err)
}

// IgnoreExpiring handles POST /api/v1/jobs/:job_id/ignore-expiring
func (h *JobHandler) IgnoreExpiring(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.IgnoreExpiring(c.Request.Context(), id)
	h.respond(c, "ignore expiring job", res, err)
}

// IgnoreExpired handles POST /api/v1/jobs/:job_id/ignore-expired
func (h *JobHandler) IgnoreExpired(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	res, err := h.engine.IgnoreExpired(c.Request.Context(), id)
	h.respond(c, "ignore expired job", res, err)
}

// PotentialJobs handles GET /api/v1/translators/:user_id/potential-jobs
func (h *JobHandler) PotentialJobs(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a positive integer"})
		return
	}

	actor := actorFrom(c)
	if !actor.Role.IsAdmin() && !(actor.Role == domain.RoleTranslator && actor.ID == userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to view these jobs"})
		return
	}

	jobs, err := h.engine.PotentialJobs(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "list potential jobs", err)
		return
	}

	out := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		out[i] = dto.ToJobDTO(&jobs[i])
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}
