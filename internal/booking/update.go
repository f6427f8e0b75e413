package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// UpdateInput is an administrative edit. Nil fields are left as they are.
type UpdateInput struct {
	Due             *time.Time     `json:"due,omitempty"`
	FromLanguageID  *int64         `json:"from_language_id,omitempty"`
	TranslatorID    *string        `json:"translator_id,omitempty"`
	TranslatorEmail *string        `json:"translator_email,omitempty"`
	Status          *domain.Status `json:"status,omitempty"`
	AdminComments   *string        `json:"admin_comments,omitempty"`
	Reference       *string        `json:"reference,omitempty"`
	SessionTime     *string        `json:"session_time,omitempty"`
	JobFor          []string       `json:"job_for,omitempty"`
}

// ApplyUpdate diffs in against the stored job and commits every changed
// facet at once. The translator is settled first because the status rules
// for pending and timedout depend on it. A refused status change aborts the
// whole update. Administrators only.
func (s *Service) ApplyUpdate(ctx context.Context, jobID string, in UpdateInput, actor *domain.User) (*Result, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}
	if !actor.Role.IsAdmin() {
		return s.forbidden(job.ID), nil
	}

	now := s.clock.Now()
	work := job.Clone()
	changes := domain.Changes{}
	dirty := false

	active, err := s.assignment.CurrentActive(ctx, jobID)
	if err != nil {
		return nil, err
	}

	plan, err := s.assignment.planChange(ctx, jobID, active, in.TranslatorID, in.TranslatorEmail, now)
	if err != nil {
		return nil, err
	}

	translatorID := ""
	if active != nil {
		translatorID = active.TranslatorID
	}
	if plan.Changed {
		changes[domain.ChangeTranslator] = plan.Change
		translatorID = plan.Next.TranslatorID
	}

	oldDue := job.Due
	dueChanged := in.Due != nil && !in.Due.Equal(job.Due)
	if dueChanged {
		work.Due = *in.Due
		work.WillExpireAt = domain.WillExpireAt(work.Due, work.CreatedAt)
		changes[domain.ChangeDue] = domain.Change{Old: s.formatDue(oldDue), New: s.formatDue(work.Due)}
	}

	var oldLanguage string
	langChanged := in.FromLanguageID != nil && *in.FromLanguageID != job.FromLanguageID
	if langChanged {
		oldLanguage = s.languageName(ctx, job.FromLanguageID)
		work.FromLanguageID = *in.FromLanguageID
		changes[domain.ChangeLanguage] = domain.Change{Old: oldLanguage, New: s.languageName(ctx, work.FromLanguageID)}
	}

	if in.JobFor != nil {
		gender, cert := domain.GenderFor(in.JobFor), domain.CertificationFor(in.JobFor)
		if gender != work.Gender || cert != work.Certification {
			work.Gender = gender
			work.Certification = cert
			dirty = true
		}
	}

	var t *transition
	if in.Status != nil && *in.Status != job.Status {
		t = &transition{
			job:               work,
			from:              job.Status,
			to:                *in.Status,
			comment:           deref(in.AdminComments),
			sessionTime:       deref(in.SessionTime),
			translatorChanged: plan.Changed,
			translatorID:      translatorID,
			actor:             actor,
			now:               now,
		}
		if rejected := s.evaluateTransition(t); rejected != nil {
			s.logger.Info("Status change rejected",
				slog.String("job_id", job.ID),
				slog.String("from", string(job.Status)),
				slog.String("to", string(*in.Status)),
				slog.String("code", rejected.Code),
			)
			rejected.JobID = job.ID
			return rejected, nil
		}
		changes[domain.ChangeStatus] = domain.Change{Old: string(job.Status), New: string(work.Status)}
	}

	if in.AdminComments != nil && *in.AdminComments != work.AdminComments {
		work.AdminComments = *in.AdminComments
		dirty = true
	}
	if in.Reference != nil && *in.Reference != work.Reference {
		work.Reference = *in.Reference
		dirty = true
	}

	if len(changes) == 0 && !dirty {
		return &Result{Status: ResultSuccess, JobID: job.ID, Job: job}, nil
	}

	work.UpdatedAt = now
	uow := domain.UnitOfWork{
		Job:            work,
		ExpectStatus:   job.Status,
		CloseRelations: plan.Close,
		OpenRelations:  plan.Open,
	}
	if t != nil && t.end != keepRelation {
		s.endRelation(&uow, active, t.end, actor.ID, now)
	}
	if len(changes) > 0 {
		uow.Log = newLog(job.ID, actor.ID, job.Status, work.Status, changes, now)
	}

	if err := s.commit(ctx, uow); err != nil {
		return nil, err
	}

	s.logger.Info("Booking updated",
		slog.String("job_id", job.ID),
		slog.String("actor_id", actor.ID),
		slog.String("status", string(work.Status)),
		slog.Int("changes", len(changes)),
	)

	nc := s.notificationContext(ctx, work)
	if !work.PastDue(now) {
		if dueChanged {
			dc := nc.WithChange(s.formatDue(oldDue), nc.DueText)
			s.emailCustomer(ctx, work, notify.TemplateJobChangedDate, messages.SubjectJobChanged, dc)
			s.emailUser(ctx, translatorID, notify.TemplateJobChangedDate, messages.SubjectJobChanged, dc)
		}
		if plan.Changed {
			s.sendTranslatorChanged(ctx, work, plan, nc)
		}
		if langChanged {
			lc := nc.WithChange(oldLanguage, nc.Language)
			s.emailCustomer(ctx, work, notify.TemplateJobChangedLang, messages.SubjectJobChanged, lc)
			s.emailUser(ctx, translatorID, notify.TemplateJobChangedLang, messages.SubjectJobChanged, lc)
		}
	}
	if t != nil {
		for _, f := range t.after {
			f(ctx, work, nc)
		}
	}

	return &Result{
		Status:            ResultSuccess,
		JobID:             job.ID,
		Job:               work,
		Changes:           changes,
		TranslatorChanged: plan.Changed,
		StatusChanged:     t != nil,
	}, nil
}

// endRelation closes whichever relation is active once the unit commits. A
// relation opened by this same unit is stamped before insert.
func (s *Service) endRelation(uow *domain.UnitOfWork, active *domain.TranslatorRelation, end relationEnd, actorID string, now time.Time) {
	closeFor := func(rel *domain.TranslatorRelation) domain.RelationClose {
		if end == completeRelation {
			return s.assignment.Complete(rel, now, actorID)
		}
		return s.assignment.Close(rel, now)
	}

	if n := len(uow.OpenRelations); n > 0 {
		rel := &uow.OpenRelations[n-1]
		closeFor(rel).Apply(rel)
		return
	}
	if active != nil {
		uow.CloseRelations = append(uow.CloseRelations, closeFor(active))
	}
}

func (s *Service) sendTranslatorChanged(ctx context.Context, job *domain.Job, plan translatorChange, nc notify.NotificationContext) {
	tc := nc.WithChange(plan.Change.Old, plan.Change.New)
	s.emailCustomer(ctx, job, notify.TemplateJobChangedTranslatorCustomer, messages.SubjectTranslatorChanged, tc)
	if plan.Previous != nil {
		s.emailUser(ctx, plan.Previous.TranslatorID, notify.TemplateJobChangedTranslatorOld, messages.SubjectTranslatorChanged, tc)
	}
	s.emailUser(ctx, plan.Next.TranslatorID, notify.TemplateJobChangedTranslatorNew, messages.SubjectTranslatorChanged, tc)
}

// commit maps guarded-write failures to conflicts
func (s *Service) commit(ctx context.Context, uow domain.UnitOfWork) error {
	err := s.store.Commit(ctx, uow)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrStatusChanged):
		return &domain.ConflictError{Code: domain.CodeJobChanged, Err: err}
	case errors.Is(err, domain.ErrActiveRelationExists):
		return &domain.ConflictError{Code: domain.CodeAlreadyAccepted, Err: err}
	}
	return domain.NewDependencyError("commit booking changes", err)
}
