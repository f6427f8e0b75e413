package booking

import (
	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// ResultStatus is the outcome of an operation as shown to callers
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFail    ResultStatus = "fail"
)

// Result is the structured payload every operation returns. Business rule
// rejections are a fail Result, never an error.
type Result struct {
	Status            ResultStatus   `json:"status"`
	Code              string         `json:"code,omitempty"`
	Message           string         `json:"message,omitempty"`
	JobID             string         `json:"id,omitempty"`
	Job               *domain.Job    `json:"job,omitempty"`
	Changes           domain.Changes `json:"changes,omitempty"`
	TranslatorChanged bool           `json:"translator_changed,omitempty"`
	StatusChanged     bool           `json:"status_changed,omitempty"`

	// Rejection is set when a status change was refused for the current state
	Rejection *domain.IllegalTransitionError `json:"-"`
}

// OK reports whether the operation succeeded
func (r *Result) OK() bool {
	return r.Status == ResultSuccess
}

func (s *Service) success(code string, args map[string]string) *Result {
	r := &Result{Status: ResultSuccess, Code: code}
	if code != "" {
		r.Message = s.catalog.Text(code, args)
	}
	return r
}

func (s *Service) fail(code string, args map[string]string) *Result {
	return &Result{
		Status:  ResultFail,
		Code:    code,
		Message: s.catalog.Text(code, args),
	}
}

// forbidden refuses an actor with no rights on jobID
func (s *Service) forbidden(jobID string) *Result {
	r := s.fail(domain.CodeForbidden, nil)
	r.JobID = jobID
	return r
}

func (s *Service) reject(from, to domain.Status, code string) *Result {
	r := s.fail(code, nil)
	r.Rejection = &domain.IllegalTransitionError{From: from, To: to, Code: code}
	return r
}
