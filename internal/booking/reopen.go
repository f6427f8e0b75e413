package booking

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// Reopen puts a job back up for grabs. A timed out job is cloned into a new
// pending job that references the old id; any other job is reset in place.
// Both branches cancel the old job's open relation and leave a closed
// relation stamped with the actor as a record of the reopening.
// Administrators only.
func (s *Service) Reopen(ctx context.Context, jobID string, actor *domain.User) (*Result, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}
	if !actor.Role.IsAdmin() {
		return s.forbidden(job.ID), nil
	}

	active, err := s.assignment.CurrentActive(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	target := job.Clone()
	target.Status = domain.StatusPending
	target.CreatedAt = now
	target.UpdatedAt = now
	target.WillExpireAt = domain.WillExpireAt(job.Due, now)

	uow := domain.UnitOfWork{}
	if job.Status == domain.StatusTimedOut {
		target.ID = newID()
		target.WithdrawAt = nil
		target.EndAt = nil
		target.SessionTime = 0
		target.EmailSent = false
		target.Reminder16hSent = false
		target.Reminder48hSent = false
		target.AdminComments = "This booking is a reopening of booking #" + job.ID
		uow.NewJob = target
	} else {
		uow.Job = target
		uow.ExpectStatus = job.Status
	}

	if active != nil {
		uow.CloseRelations = []domain.RelationClose{s.assignment.Close(active, now)}
	}
	record := s.assignment.CreateActive(job.ID, actor.ID, now)
	s.assignment.Close(&record, now).Apply(&record)
	uow.OpenRelations = []domain.TranslatorRelation{record}

	changes := domain.Changes{
		domain.ChangeStatus: {Old: string(job.Status), New: string(domain.StatusPending)},
	}
	uow.Log = newLog(target.ID, actor.ID, job.Status, domain.StatusPending, changes, now)

	if err := s.store.Commit(ctx, uow); err != nil {
		s.logger.Error("Failed to reopen booking",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		res := s.fail(domain.CodeReopenFailed, nil)
		res.JobID = job.ID
		return res, nil
	}

	s.logger.Info("Booking reopened",
		slog.String("job_id", job.ID),
		slog.String("reopened_as", target.ID),
		slog.Bool("cloned", target.ID != job.ID),
	)

	s.broadcast(ctx, notify.ChannelPush, s.notificationContext(ctx, target))

	res := s.success(domain.CodeReopened, nil)
	res.JobID = target.ID
	res.Job = target
	res.StatusChanged = true
	return res, nil
}
