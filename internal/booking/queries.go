package booking

import (
	"context"
	"slices"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// JobPage is one page of a job listing
type JobPage struct {
	Jobs       []domain.Job
	NextCursor *domain.JobCursor
}

// JobHistory is a job with its full audit trail
type JobHistory struct {
	Job       *domain.Job                  `json:"job"`
	Relations []domain.TranslatorRelation  `json:"relations"`
	Logs      []domain.StatusTransitionLog `json:"logs"`
}

// GetJob returns a single job
func (s *Service) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}
	return job, nil
}

// ListJobs returns one page of jobs visible to actor. Only administrators
// get the full filter set; everyone else sees their consumer type's job
// type, and customers only their own bookings.
func (s *Service) ListJobs(ctx context.Context, actor *domain.User, filter domain.JobFilter) (*JobPage, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = DefaultPageSize
	}
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}

	if !actor.Role.IsAdmin() {
		filter.JobType = domain.JobTypeFor(actor.ConsumerType)
		filter.ConsumerType = ""
		filter.CustomerEmail = ""
		filter.TranslatorEmails = nil
		filter.LowFeedback = false
		if actor.IsCustomer() {
			filter.CustomerID = actor.ID
		}
	}

	return s.page(ctx, filter)
}

// page runs filter and trims the look-ahead row into a cursor
func (s *Service) page(ctx context.Context, filter domain.JobFilter) (*JobPage, error) {
	jobs, err := s.store.ListJobs(ctx, filter)
	if err != nil {
		return nil, domain.NewDependencyError("list jobs", err)
	}

	page := &JobPage{Jobs: jobs}
	if len(jobs) > filter.PageSize {
		page.Jobs = jobs[:filter.PageSize]
		last := page.Jobs[len(page.Jobs)-1]
		page.NextCursor = &domain.JobCursor{CreatedAt: last.CreatedAt, JobID: last.ID}
	}
	return page, nil
}

var (
	openStatuses     = []domain.Status{domain.StatusPending, domain.StatusAssigned, domain.StatusStarted}
	bookedStatuses   = []domain.Status{domain.StatusAssigned, domain.StatusStarted}
	historicStatuses = []domain.Status{
		domain.StatusCompleted,
		domain.StatusWithdrawBefore24,
		domain.StatusWithdrawAfter24,
		domain.StatusTimedOut,
		domain.StatusNotCarriedOutCustomer,
	}
)

// CurrentJobs is a user's open bookings, immediate ones apart
type CurrentJobs struct {
	UserType  domain.Role  `json:"user_type"`
	Emergency []domain.Job `json:"emergency_jobs"`
	Normal    []domain.Job `json:"normal_jobs"`
}

// ownerFilter scopes filter to jobs the user booked or is booked on. ok is
// false for roles that own no jobs.
func ownerFilter(user *domain.User, filter domain.JobFilter) (domain.JobFilter, bool) {
	switch {
	case user.IsCustomer():
		filter.CustomerID = user.ID
	case user.IsTranslator():
		filter.TranslatorID = user.ID
	default:
		return filter, false
	}
	return filter, true
}

// UsersJobs returns the customer's open bookings or the translator's
// accepted ones, earliest due first
func (s *Service) UsersJobs(ctx context.Context, user *domain.User) (*CurrentJobs, error) {
	out := &CurrentJobs{UserType: user.Role, Emergency: []domain.Job{}, Normal: []domain.Job{}}

	statuses := openStatuses
	if user.IsTranslator() {
		statuses = bookedStatuses
	}
	filter, ok := ownerFilter(user, domain.JobFilter{Statuses: statuses, PageSize: MaxPageSize})
	if !ok {
		return out, nil
	}

	jobs, err := s.store.ListJobs(ctx, filter)
	if err != nil {
		return nil, domain.NewDependencyError("list jobs", err)
	}
	slices.SortStableFunc(jobs, byDue)

	for _, job := range jobs {
		if job.Immediate {
			out.Emergency = append(out.Emergency, job)
			continue
		}
		out.Normal = append(out.Normal, job)
	}
	return out, nil
}

// UsersJobsHistory pages through the user's finished jobs, newest first
func (s *Service) UsersJobsHistory(ctx context.Context, user *domain.User, cursor *domain.JobCursor, pageSize int) (*JobPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	filter, ok := ownerFilter(user, domain.JobFilter{
		Statuses: historicStatuses,
		PageSize: pageSize,
		Cursor:   cursor,
	})
	if !ok {
		return &JobPage{}, nil
	}
	return s.page(ctx, filter)
}

// PotentialJobs lists the pending jobs translator could accept now: the
// offer rules of a broadcast apply, and jobs clashing with one of the
// translator's bookings are left out
func (s *Service) PotentialJobs(ctx context.Context, translator *domain.User) ([]domain.Job, error) {
	if !translator.IsTranslator() || len(translator.Languages) == 0 {
		return []domain.Job{}, nil
	}

	jobs, err := s.store.ListJobs(ctx, domain.JobFilter{
		Statuses:    []domain.Status{domain.StatusPending},
		LanguageIDs: translator.Languages,
		PageSize:    MaxPageSize,
	})
	if err != nil {
		return nil, domain.NewDependencyError("list jobs", err)
	}

	out := make([]domain.Job, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		if !domain.EligibleTranslator(job, translator, job.Town) {
			continue
		}
		booked, err := s.store.HasBookingAt(ctx, translator.ID, job.Due, job.ID)
		if err != nil {
			return nil, domain.NewDependencyError("check translator bookings", err)
		}
		if booked {
			continue
		}
		out = append(out, *job)
	}
	slices.SortStableFunc(out, byDue)
	return out, nil
}

func byDue(a, b domain.Job) int {
	return a.Due.Compare(b.Due)
}

// History returns the job with every translator relation and transition log
func (s *Service) History(ctx context.Context, jobID string) (*JobHistory, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}

	rels, err := s.assignment.History(ctx, jobID)
	if err != nil {
		return nil, err
	}

	logs, err := s.store.TransitionLogs(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load transition logs", err)
	}

	return &JobHistory{Job: job, Relations: rels, Logs: logs}, nil
}
