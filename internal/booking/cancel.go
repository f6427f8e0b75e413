package booking

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// CancelJob withdraws a booking on behalf of its customer, or hands it back
// to the pool on behalf of its assigned translator
func (s *Service) CancelJob(ctx context.Context, jobID string, actor *domain.User) (*Result, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}

	active, err := s.assignment.CurrentActive(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsCustomer() && actor.ID == job.CustomerID:
		return s.customerCancel(ctx, job, active, actor)
	case actor.IsTranslator():
		return s.translatorCancel(ctx, job, active, actor)
	}

	res := s.fail(domain.CodeForbidden, nil)
	res.JobID = job.ID
	return res, nil
}

// customerCancel classifies the withdrawal by the notice given
func (s *Service) customerCancel(ctx context.Context, job *domain.Job, active *domain.TranslatorRelation, actor *domain.User) (*Result, error) {
	if job.Status != domain.StatusPending && job.Status != domain.StatusAssigned {
		res := s.fail(domain.CodeNotCancellable, nil)
		res.JobID = job.ID
		return res, nil
	}

	now := s.clock.Now()
	work := job.Clone()
	withdrawAt := now
	work.WithdrawAt = &withdrawAt
	work.UpdatedAt = now
	if job.Due.Sub(now) >= s.config.CancelWindow {
		work.Status = domain.StatusWithdrawBefore24
	} else {
		work.Status = domain.StatusWithdrawAfter24
	}

	changes := domain.Changes{
		domain.ChangeStatus: {Old: string(job.Status), New: string(work.Status)},
	}
	uow := domain.UnitOfWork{
		Job:          work,
		ExpectStatus: job.Status,
		Log:          newLog(job.ID, actor.ID, job.Status, work.Status, changes, now),
	}
	if active != nil {
		uow.CloseRelations = []domain.RelationClose{s.assignment.Close(active, now)}
	}

	if err := s.commit(ctx, uow); err != nil {
		return nil, err
	}

	s.logger.Info("Booking cancelled by customer",
		slog.String("job_id", job.ID),
		slog.String("status", string(work.Status)),
	)

	nc := s.notificationContext(ctx, work)
	translatorID := ""
	if active != nil {
		translatorID = active.TranslatorID
		s.sendPush(ctx, translatorID, notify.PushKindJobCancelled, messages.PushCustomerCancelled, nc)
	}
	s.emit(ctx, notify.EventJobCancelled, job.ID, actor.ID, translatorID)

	res := s.success("", nil)
	res.JobID = job.ID
	res.Job = work
	res.StatusChanged = true
	return res, nil
}

// translatorCancel puts the job back up for grabs when enough notice is
// given; otherwise the translator must call support
func (s *Service) translatorCancel(ctx context.Context, job *domain.Job, active *domain.TranslatorRelation, actor *domain.User) (*Result, error) {
	if active == nil || active.TranslatorID != actor.ID {
		res := s.fail(domain.CodeNotAssignedTranslator, nil)
		res.JobID = job.ID
		return res, nil
	}
	if job.Status != domain.StatusAssigned {
		res := s.fail(domain.CodeNotCancellable, nil)
		res.JobID = job.ID
		return res, nil
	}

	now := s.clock.Now()
	if job.Due.Sub(now) <= s.config.CancelWindow {
		res := s.fail(domain.CodeCancelByPhone, map[string]string{"phone": s.config.SupportPhone})
		res.JobID = job.ID
		return res, nil
	}

	work := job.Clone()
	work.Status = domain.StatusPending
	work.CreatedAt = now
	work.UpdatedAt = now
	work.WillExpireAt = domain.WillExpireAt(work.Due, now)

	changes := domain.Changes{
		domain.ChangeStatus:     {Old: string(job.Status), New: string(work.Status)},
		domain.ChangeTranslator: {Old: actor.Email},
	}
	err := s.commit(ctx, domain.UnitOfWork{
		Job:            work,
		ExpectStatus:   job.Status,
		CloseRelations: []domain.RelationClose{s.assignment.Close(active, now)},
		Log:            newLog(job.ID, actor.ID, job.Status, work.Status, changes, now),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking cancelled by translator",
		slog.String("job_id", job.ID),
		slog.String("translator_id", actor.ID),
	)

	nc := s.notificationContext(ctx, work)
	s.sendPush(ctx, job.CustomerID, notify.PushKindTranslatorCancelled, messages.PushTranslatorCancelled, nc)
	s.broadcast(ctx, notify.ChannelPush, nc, actor.ID)
	s.emit(ctx, notify.EventJobCancelled, job.ID, actor.ID, job.CustomerID)

	res := s.success("", nil)
	res.JobID = job.ID
	res.Job = work
	res.StatusChanged = true
	return res, nil
}
