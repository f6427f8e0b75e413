package dto

import (
	"fmt"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

const dateLayout = "2006-01-02"

// ListJobsRequest is the query string of GET /api/v1/jobs. Repeated keys
// build the list filters.
type ListJobsRequest struct {
	IDs              []string `form:"id"`
	LanguageIDs      []int64  `form:"lang"`
	Statuses         []string `form:"status"`
	JobType          string   `form:"job_type"`
	ConsumerType     string   `form:"consumer_type"`
	TimeField        string   `form:"filter_timetype" binding:"omitempty,oneof=created due"`
	From             string   `form:"from"`
	To               string   `form:"to"`
	CustomerEmail    string   `form:"customer_email"`
	TranslatorEmails []string `form:"translator_email"`
	LowFeedback      bool     `form:"feedback"`
	PageSize         int      `form:"page_size" binding:"omitempty,min=1,max=100"`
	Cursor           string   `form:"cursor"`
}

// Filter converts the request into a store filter. Dates are either
// RFC 3339 instants or plain days; a plain "to" day is inclusive.
func (r *ListJobsRequest) Filter() (domain.JobFilter, error) {
	filter := domain.JobFilter{
		IDs:              r.IDs,
		LanguageIDs:      r.LanguageIDs,
		JobType:          domain.JobType(r.JobType),
		ConsumerType:     r.ConsumerType,
		TimeField:        domain.TimeField(r.TimeField),
		CustomerEmail:    r.CustomerEmail,
		TranslatorEmails: r.TranslatorEmails,
		LowFeedback:      r.LowFeedback,
		PageSize:         r.PageSize,
	}

	for _, s := range r.Statuses {
		filter.Statuses = append(filter.Statuses, domain.Status(s))
	}

	from, err := parseBound(r.From, false)
	if err != nil {
		return domain.JobFilter{}, fmt.Errorf("invalid from: %w", err)
	}
	to, err := parseBound(r.To, true)
	if err != nil {
		return domain.JobFilter{}, fmt.Errorf("invalid to: %w", err)
	}
	filter.From, filter.To = from, to

	if (from != nil || to != nil) && filter.TimeField == "" {
		filter.TimeField = domain.TimeFieldCreated
	}

	return filter, nil
}

func parseBound(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// JobHistoryRequest is the query string of GET /api/v1/jobs/mine/history
type JobHistoryRequest struct {
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Cursor   string `form:"cursor"`
}

// JobDetail is a single job. Administrators also get the statuses the job
// may be moved to.
type JobDetail struct {
	*domain.Job
	AllowedStatuses []domain.Status `json:"allowed_statuses,omitempty"`
}

// ListJobsResponse is one page of jobs
type ListJobsResponse struct {
	Jobs       []domain.Job `json:"jobs"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewErrorResponse builds a fail body
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Status: "fail", Code: code, Message: message}
}
