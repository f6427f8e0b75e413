package booking

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// EndJob closes a started session. The session time is the time elapsed
// since due. Only the customer, the active translator or an administrator
// may end it. Calling it on a job that is not started is a successful no-op.
func (s *Service) EndJob(ctx context.Context, jobID string, actor *domain.User) (*Result, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}

	active, err := s.assignment.CurrentActive(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if actor.ID != job.CustomerID && !activeTranslator(actor, active) && !actor.Role.IsAdmin() {
		return s.forbidden(job.ID), nil
	}

	if job.Status != domain.StatusStarted {
		return &Result{Status: ResultSuccess, JobID: job.ID, Job: job}, nil
	}

	now := s.clock.Now()
	work := job.Clone()
	endAt := now
	work.EndAt = &endAt
	work.SessionTime = now.Sub(job.Due)
	work.Status = domain.StatusCompleted
	work.UpdatedAt = now

	changes := domain.Changes{
		domain.ChangeStatus: {Old: string(job.Status), New: string(work.Status)},
	}
	uow := domain.UnitOfWork{
		Job:          work,
		ExpectStatus: job.Status,
		Log:          newLog(job.ID, actor.ID, job.Status, work.Status, changes, now),
	}

	translatorID := ""
	if active != nil {
		translatorID = active.TranslatorID
		uow.CloseRelations = []domain.RelationClose{s.assignment.Complete(active, now, actor.ID)}
	}

	if err := s.commit(ctx, uow); err != nil {
		return nil, err
	}

	s.logger.Info("Session ended",
		slog.String("job_id", job.ID),
		slog.String("actor_id", actor.ID),
		slog.Duration("session_time", work.SessionTime),
	)

	// the counterpart is whichever party did not end the session
	counterpart := job.CustomerID
	if actor.ID == job.CustomerID {
		counterpart = translatorID
	}

	nc := s.notificationContext(ctx, work)
	s.sendSessionEnded(ctx, work, translatorID, nc)
	s.emit(ctx, notify.EventSessionEnded, job.ID, actor.ID, counterpart)

	res := s.success("", nil)
	res.JobID = job.ID
	res.Job = work
	res.StatusChanged = true
	return res, nil
}

// CustomerNotCall records that the customer never showed up. It is reported
// by the active translator or an administrator, and the relation is
// completed in the translator's name either way.
func (s *Service) CustomerNotCall(ctx context.Context, jobID string, actor *domain.User) (*Result, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}

	active, err := s.assignment.CurrentActive(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !activeTranslator(actor, active) && !actor.Role.IsAdmin() {
		return s.forbidden(job.ID), nil
	}

	now := s.clock.Now()
	work := job.Clone()
	endAt := now
	work.EndAt = &endAt
	work.Status = domain.StatusNotCarriedOutCustomer
	work.UpdatedAt = now

	changes := domain.Changes{
		domain.ChangeStatus: {Old: string(job.Status), New: string(work.Status)},
	}
	uow := domain.UnitOfWork{
		Job:          work,
		ExpectStatus: job.Status,
		Log:          newLog(job.ID, actor.ID, job.Status, work.Status, changes, now),
	}
	if active != nil {
		uow.CloseRelations = []domain.RelationClose{s.assignment.Complete(active, now, active.TranslatorID)}
	}

	if err := s.commit(ctx, uow); err != nil {
		return nil, err
	}

	s.logger.Info("Customer did not call",
		slog.String("job_id", job.ID),
		slog.String("actor_id", actor.ID),
	)

	res := s.success("", nil)
	res.JobID = job.ID
	res.Job = work
	res.StatusChanged = job.Status != work.Status
	return res, nil
}

// activeTranslator reports whether actor holds the active relation
func activeTranslator(actor *domain.User, active *domain.TranslatorRelation) bool {
	return active != nil && actor.IsTranslator() && active.TranslatorID == actor.ID
}
