package booking

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// AcceptInput identifies the job a translator claims from the job list
type AcceptInput struct {
	JobID string `json:"job_id"`
}

// AcceptJob claims a pending job for translator from the job list
func (s *Service) AcceptJob(ctx context.Context, in AcceptInput, translator *domain.User) (*Result, error) {
	if in.JobID == "" {
		return nil, domain.NewValidationError("job_id", domain.CodeFieldsRequired)
	}
	return s.accept(ctx, in.JobID, translator)
}

// AcceptJobWithID claims a pending job for translator straight from a
// notification
func (s *Service) AcceptJobWithID(ctx context.Context, jobID string, translator *domain.User) (*Result, error) {
	return s.accept(ctx, jobID, translator)
}

// accept is a compare-and-set: the relation insert and the status change
// commit only while the job is still pending, so of any number of
// concurrent claims exactly one wins.
func (s *Service) accept(ctx context.Context, jobID string, translator *domain.User) (*Result, error) {
	if translator == nil || !translator.IsTranslator() {
		return s.fail(domain.CodeForbidden, nil), nil
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}

	args := s.jobArgs(ctx, job)
	if job.Status != domain.StatusPending {
		return s.lostClaim(job, translator, args), nil
	}

	booked, err := s.store.HasBookingAt(ctx, translator.ID, job.Due, job.ID)
	if err != nil {
		return nil, domain.NewDependencyError("check translator bookings", err)
	}
	if booked {
		res := s.fail(domain.CodeTranslatorBooked, args)
		res.JobID = job.ID
		return res, nil
	}

	now := s.clock.Now()
	work := job.Clone()
	work.Status = domain.StatusAssigned
	work.UpdatedAt = now

	rel := s.assignment.CreateActive(job.ID, translator.ID, now)
	changes := domain.Changes{
		domain.ChangeStatus:     {Old: string(domain.StatusPending), New: string(domain.StatusAssigned)},
		domain.ChangeTranslator: {New: translator.Email},
	}

	err = s.store.Commit(ctx, domain.UnitOfWork{
		Job:           work,
		ExpectStatus:  domain.StatusPending,
		OpenRelations: []domain.TranslatorRelation{rel},
		Log:           newLog(job.ID, translator.ID, domain.StatusPending, domain.StatusAssigned, changes, now),
	})
	if errors.Is(err, domain.ErrStatusChanged) || errors.Is(err, domain.ErrActiveRelationExists) {
		return s.lostClaim(job, translator, args), nil
	}
	if err != nil {
		return nil, domain.NewDependencyError("accept job", err)
	}

	s.logger.Info("Job accepted",
		slog.String("job_id", job.ID),
		slog.String("translator_id", translator.ID),
	)

	nc := s.notificationContext(ctx, work)
	s.emailCustomer(ctx, work, notify.TemplateJobAccepted, messages.SubjectJobAccepted, nc)
	s.sendPush(ctx, translator.ID, notify.PushKindJobAccepted, messages.PushJobAccepted, nc)

	res := s.success(domain.CodeAccepted, args)
	res.JobID = job.ID
	res.Job = work
	return res, nil
}

func (s *Service) lostClaim(job *domain.Job, translator *domain.User, args map[string]string) *Result {
	s.logger.Info("Job already accepted by another translator",
		slog.String("job_id", job.ID),
		slog.String("translator_id", translator.ID),
	)
	res := s.fail(domain.CodeAlreadyAccepted, args)
	res.JobID = job.ID
	return res
}

func (s *Service) jobArgs(ctx context.Context, job *domain.Job) map[string]string {
	return map[string]string{
		"job_id":   job.ID,
		"language": s.languageName(ctx, job.FromLanguageID),
		"duration": strconv.Itoa(job.Duration),
		"due":      s.formatDue(job.Due),
	}
}
