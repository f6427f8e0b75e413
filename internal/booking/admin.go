package booking

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// JobEmailInput completes a freshly created booking with contact details.
// Empty address fields fall back to the customer profile.
type JobEmailInput struct {
	UserEmail    string `json:"user_email"`
	Reference    string `json:"reference"`
	Address      string `json:"address"`
	Instructions string `json:"instructions"`
	Town         string `json:"town"`
}

// StoreJobEmail saves the booking's contact details, confirms the booking to
// the customer and offers it to eligible translators
func (s *Service) StoreJobEmail(ctx context.Context, jobID string, in JobEmailInput, actor *domain.User) (*Result, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}
	if actor.ID != job.CustomerID && !actor.Role.IsAdmin() {
		return s.fail(domain.CodeForbidden, nil), nil
	}

	customer, err := s.directory.GetUser(ctx, job.CustomerID)
	if err != nil {
		return nil, domain.NewDependencyError("load customer", err)
	}

	now := s.clock.Now()
	work := job.Clone()
	if email := strings.TrimSpace(in.UserEmail); email != "" {
		work.UserEmail = &email
	}
	work.Reference = in.Reference
	work.Address = fallback(in.Address, customer.Address)
	work.Instructions = fallback(in.Instructions, customer.Instructions)
	work.Town = fallback(in.Town, customer.City)
	work.UpdatedAt = now

	if err := s.commit(ctx, domain.UnitOfWork{Job: work, ExpectStatus: job.Status}); err != nil {
		return nil, err
	}

	s.logger.Info("Booking contact details stored",
		slog.String("job_id", job.ID),
		slog.String("town", work.Town),
	)

	nc := s.notificationContext(ctx, work)
	s.emailCustomer(ctx, work, notify.TemplateJobCreated, messages.SubjectJobCreated, nc)
	s.emit(ctx, notify.EventJobCreated, job.ID, actor.ID, "")
	s.broadcast(ctx, notify.ChannelPush, nc)

	res := s.success("", nil)
	res.JobID = job.ID
	res.Job = work
	return res, nil
}

// AdminFieldsInput carries the back-office fields of a booking. Nil fields
// are left as they are.
type AdminFieldsInput struct {
	Distance        *string `json:"distance,omitempty"`
	TravelTime      *string `json:"time,omitempty"`
	AdminComment    *string `json:"admincomment,omitempty"`
	Flagged         *bool   `json:"flagged,omitempty"`
	SessionTime     *string `json:"session_time,omitempty"`
	ManuallyHandled *bool   `json:"manually_handled,omitempty"`
	ByAdmin         *bool   `json:"by_admin,omitempty"`
}

// UpdateAdminFields edits distance, travel time and the back-office flags.
// Flagging a booking requires a comment.
func (s *Service) UpdateAdminFields(ctx context.Context, jobID string, in AdminFieldsInput, actor *domain.User) (*Result, error) {
	if !actor.Role.IsAdmin() {
		return s.fail(domain.CodeForbidden, nil), nil
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}

	if in.Flagged != nil && *in.Flagged && strings.TrimSpace(deref(in.AdminComment)) == "" {
		res := s.fail(domain.CodeFlagCommentRequired, nil)
		res.JobID = job.ID
		return res, nil
	}

	work := job.Clone()
	if in.Distance != nil {
		work.Distance = *in.Distance
	}
	if in.TravelTime != nil {
		work.TravelTime = *in.TravelTime
	}
	if in.AdminComment != nil {
		work.AdminComments = *in.AdminComment
	}
	if in.Flagged != nil {
		work.Flagged = *in.Flagged
	}
	if in.SessionTime != nil && *in.SessionTime != "" {
		session, err := domain.ParseSessionTime(*in.SessionTime)
		if err != nil {
			return nil, domain.NewValidationError("session_time", domain.CodeSessionTimeRequired)
		}
		work.SessionTime = session
	}
	if in.ManuallyHandled != nil {
		work.ManuallyHandled = *in.ManuallyHandled
	}
	if in.ByAdmin != nil {
		work.ByAdmin = *in.ByAdmin
	}
	work.UpdatedAt = s.clock.Now()

	if err := s.commit(ctx, domain.UnitOfWork{Job: work, ExpectStatus: job.Status}); err != nil {
		return nil, err
	}

	s.logger.Info("Booking admin fields updated",
		slog.String("job_id", job.ID),
		slog.String("actor_id", actor.ID),
	)

	res := s.success(domain.CodeAdminFieldsUpdated, nil)
	res.JobID = job.ID
	res.Job = work
	return res, nil
}

// ResendNotifications offers the job to eligible translators again by push
func (s *Service) ResendNotifications(ctx context.Context, jobID string, actor *domain.User) (*Result, error) {
	return s.resend(ctx, jobID, actor, notify.ChannelPush, domain.CodeNotificationsResent)
}

// ResendSMSNotifications offers the job to eligible translators again by SMS
func (s *Service) ResendSMSNotifications(ctx context.Context, jobID string, actor *domain.User) (*Result, error) {
	return s.resend(ctx, jobID, actor, notify.ChannelSMS, domain.CodeSMSNotificationsResent)
}

// resend reports a gateway failure to the caller, unlike the notifications
// that follow a state change
func (s *Service) resend(ctx context.Context, jobID string, actor *domain.User, channel, code string) (*Result, error) {
	if !actor.Role.IsAdmin() {
		return s.fail(domain.CodeForbidden, nil), nil
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load job", err)
	}

	nc := s.notificationContext(ctx, job)
	msg := notify.Broadcast{
		JobID:   job.ID,
		Channel: channel,
		Text:    s.catalog.Text(messages.PushNewJob, textArgs(nc)),
		Context: nc,
	}
	if err := s.gateway.Broadcast(ctx, msg); err != nil {
		return nil, domain.NewDependencyError("resend notifications", err)
	}

	s.logger.Info("Booking notifications resent",
		slog.String("job_id", job.ID),
		slog.String("channel", channel),
	)

	res := s.success(code, nil)
	res.JobID = job.ID
	return res, nil
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
