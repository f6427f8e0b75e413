package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/interpreter-booking/internal/api/dto"
	"github.com/cuongbtq/interpreter-booking/internal/booking"
	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// jobID reads and validates the :job_id path parameter
func (h *JobHandler) jobID(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		h.badRequest(c, "job_id must be a valid UUID", err)
		return "", false
	}
	return jobID, true
}

// CreateJob handles POST /api/v1/jobs
// Books an interpreter for the acting customer
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req booking.BookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), Actor(c), req)
	h.respond(c, http.StatusCreated, res, err)
}

// GetJob handles GET /api/v1/jobs/:job_id
// Customers only see their own bookings
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	actor := Actor(c)
	if actor.IsCustomer() && job.CustomerID != actor.ID {
		h.forbidden(c)
		return
	}

	detail := dto.JobDetail{Job: job}
	if actor.Role.IsAdmin() {
		detail.AllowedStatuses = booking.AllowedTargets(job.Status)
	}
	c.JSON(http.StatusOK, detail)
}

// GetJobHistory handles GET /api/v1/jobs/:job_id/history
// Returns relations and transition logs, administrators only
func (h *JobHandler) GetJobHistory(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	if !Actor(c).Role.IsAdmin() {
		h.forbidden(c)
		return
	}

	history, err := h.service.History(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs visible to the actor with filtering and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "Invalid query parameters", err)
		return
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.badRequest(c, "Invalid cursor", err)
		return
	}

	filter, err := req.Filter()
	if err != nil {
		h.badRequest(c, "Invalid date range", err)
		return
	}
	filter.Cursor = cursor

	page, err := h.service.ListJobs(c.Request.Context(), Actor(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := dto.ListJobsResponse{
		Jobs:       page.Jobs,
		NextCursor: EncodeJobCursor(page.NextCursor),
	}
	if resp.Jobs == nil {
		resp.Jobs = []domain.Job{}
	}

	h.logger.Debug("Jobs listed",
		slog.Int("count", len(resp.Jobs)),
		slog.Bool("has_more", resp.NextCursor != ""),
	)

	c.JSON(http.StatusOK, resp)
}

// MyJobs handles GET /api/v1/jobs/mine
// Open bookings of a customer or accepted jobs of a translator
func (h *JobHandler) MyJobs(c *gin.Context) {
	jobs, err := h.service.UsersJobs(c.Request.Context(), Actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// MyJobsHistory handles GET /api/v1/jobs/mine/history
// Finished jobs of the actor with cursor pagination
func (h *JobHandler) MyJobsHistory(c *gin.Context) {
	var req dto.JobHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "Invalid query parameters", err)
		return
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.badRequest(c, "Invalid cursor", err)
		return
	}

	page, err := h.service.UsersJobsHistory(c.Request.Context(), Actor(c), cursor, req.PageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := dto.ListJobsResponse{
		Jobs:       page.Jobs,
		NextCursor: EncodeJobCursor(page.NextCursor),
	}
	if resp.Jobs == nil {
		resp.Jobs = []domain.Job{}
	}
	c.JSON(http.StatusOK, resp)
}

// PotentialJobs handles GET /api/v1/jobs/potential
// Pending jobs the acting translator may accept
func (h *JobHandler) PotentialJobs(c *gin.Context) {
	actor := Actor(c)
	if !actor.IsTranslator() {
		h.forbidden(c)
		return
	}

	jobs, err := h.service.PotentialJobs(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Debug("Potential jobs listed",
		slog.String("translator_id", actor.ID),
		slog.Int("count", len(jobs)),
	)

	if jobs == nil {
		jobs = []domain.Job{}
	}
	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: jobs})
}

// UpdateJob handles PATCH /api/v1/jobs/:job_id
// Applies due, language, translator and status changes in one transition,
// administrators only
func (h *JobHandler) UpdateJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var req booking.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	res, err := h.service.ApplyUpdate(c.Request.Context(), jobID, req, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// AcceptJob handles POST /api/v1/jobs/accept
// Claims the job named in the body from the job list
func (h *JobHandler) AcceptJob(c *gin.Context) {
	var req booking.AcceptInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	res, err := h.service.AcceptJob(c.Request.Context(), req, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// AcceptJobWithID handles POST /api/v1/jobs/:job_id/accept
// Claims a job straight from a notification
func (h *JobHandler) AcceptJobWithID(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	res, err := h.service.AcceptJobWithID(c.Request.Context(), jobID, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	res, err := h.service.CancelJob(c.Request.Context(), jobID, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// EndJob handles POST /api/v1/jobs/:job_id/end
func (h *JobHandler) EndJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	res, err := h.service.EndJob(c.Request.Context(), jobID, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// CustomerNotCall handles POST /api/v1/jobs/:job_id/customer-not-call
func (h *JobHandler) CustomerNotCall(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	res, err := h.service.CustomerNotCall(c.Request.Context(), jobID, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// ReopenJob handles POST /api/v1/jobs/:job_id/reopen
func (h *JobHandler) ReopenJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	res, err := h.service.Reopen(c.Request.Context(), jobID, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// StoreJobEmail handles POST /api/v1/jobs/:job_id/email
// Completes a booking with contact details and announces it
func (h *JobHandler) StoreJobEmail(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var req booking.JobEmailInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	res, err := h.service.StoreJobEmail(c.Request.Context(), jobID, req, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// UpdateAdminFields handles PATCH /api/v1/jobs/:job_id/admin
func (h *JobHandler) UpdateAdminFields(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var req booking.AdminFieldsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	res, err := h.service.UpdateAdminFields(c.Request.Context(), jobID, req, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// ResendNotifications handles POST /api/v1/jobs/:job_id/resend-push
func (h *JobHandler) ResendNotifications(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	res, err := h.service.ResendNotifications(c.Request.Context(), jobID, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}

// ResendSMSNotifications handles POST /api/v1/jobs/:job_id/resend-sms
func (h *JobHandler) ResendSMSNotifications(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	res, err := h.service.ResendSMSNotifications(c.Request.Context(), jobID, Actor(c))
	h.respond(c, http.StatusOK, res, err)
}
