package booking

import (
	"context"
	"log/slog"
	"slices"
	"strconv"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// Notifications are dispatched after the commit. A failed send is logged and
// never undoes the committed change.

func (s *Service) notificationContext(ctx context.Context, job *domain.Job) notify.NotificationContext {
	nc := notify.NotificationContext{
		JobID:     job.ID,
		Language:  s.languageName(ctx, job.FromLanguageID),
		Duration:  job.Duration,
		Due:       job.Due,
		DueText:   s.formatDue(job.Due),
		Immediate: job.Immediate,
		JobFor:    domain.JobForLabels(job.Gender, job.Certification),
	}
	if customer, err := s.directory.GetUser(ctx, job.CustomerID); err == nil {
		nc.CustomerName = customer.Name
	}
	return nc
}

func (s *Service) languageName(ctx context.Context, id int64) string {
	name, err := s.directory.LanguageName(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to resolve language name",
			slog.Int64("language_id", id),
			slog.String("error", err.Error()),
		)
		return strconv.FormatInt(id, 10)
	}
	return name
}

func textArgs(nc notify.NotificationContext) map[string]string {
	return map[string]string{
		"job_id":   nc.JobID,
		"language": nc.Language,
		"duration": strconv.Itoa(nc.Duration),
		"due":      nc.DueText,
	}
}

func (s *Service) recipient(ctx context.Context, userID string) (notify.Recipient, bool) {
	u, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to resolve notification recipient",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return notify.Recipient{}, false
	}
	return notify.Recipient{UserID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}, true
}

// customerRecipient addresses the customer at the booking's contact email
func (s *Service) customerRecipient(ctx context.Context, job *domain.Job) (notify.Recipient, bool) {
	to, ok := s.recipient(ctx, job.CustomerID)
	if !ok {
		return to, false
	}
	to.Email = job.ContactEmail(to.Email)
	return to, true
}

func (s *Service) sendEmail(ctx context.Context, template, subjectKey string, to notify.Recipient, nc notify.NotificationContext) {
	msg := notify.EmailMessage{
		Template: template,
		To:       to,
		Subject:  s.catalog.Text(subjectKey, textArgs(nc)),
		Context:  nc.For(to.Name),
	}
	if err := s.gateway.SendEmail(ctx, msg); err != nil {
		s.notifyFailed("email", nc.JobID, err, slog.String("template", template), slog.String("user_id", to.UserID))
	}
}

func (s *Service) emailCustomer(ctx context.Context, job *domain.Job, template, subjectKey string, nc notify.NotificationContext) {
	if to, ok := s.customerRecipient(ctx, job); ok {
		s.sendEmail(ctx, template, subjectKey, to, nc)
	}
}

func (s *Service) emailUser(ctx context.Context, userID, template, subjectKey string, nc notify.NotificationContext) {
	if userID == "" {
		return
	}
	if to, ok := s.recipient(ctx, userID); ok {
		s.sendEmail(ctx, template, subjectKey, to, nc)
	}
}

// sendPush honours the recipient's push preferences
func (s *Service) sendPush(ctx context.Context, userID, kind, textKey string, nc notify.NotificationContext) {
	if userID == "" {
		return
	}

	var delay bool
	if s.preferences != nil {
		needs, err := s.preferences.NeedsPush(ctx, userID)
		if err != nil {
			s.notifyFailed("push", nc.JobID, err, slog.String("user_id", userID))
			return
		}
		if !needs {
			s.logger.Debug("Push skipped by user preference",
				slog.String("user_id", userID),
				slog.String("job_id", nc.JobID),
			)
			return
		}
		if delay, err = s.preferences.DelayPush(ctx, userID); err != nil {
			s.logger.Warn("Failed to read push delay preference",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			delay = false
		}
	}

	if nc.Recipient == "" {
		if to, ok := s.recipient(ctx, userID); ok {
			nc = nc.For(to.Name)
		}
	}

	msg := notify.NewPush([]string{userID}, nc.JobID, kind, s.catalog.Text(textKey, textArgs(nc)), nc)
	msg.Delay = delay
	if err := s.gateway.SendPush(ctx, msg); err != nil {
		s.notifyFailed("push", nc.JobID, err, slog.String("user_id", userID), slog.String("kind", kind))
	}
}

// broadcast offers the job to every eligible translator except exclude
func (s *Service) broadcast(ctx context.Context, channel string, nc notify.NotificationContext, exclude ...string) {
	msg := notify.Broadcast{
		JobID:   nc.JobID,
		Channel: channel,
		Text:    s.catalog.Text(messages.PushNewJob, textArgs(nc)),
		Exclude: slices.Clone(exclude),
		Context: nc.For(""),
	}
	if err := s.gateway.Broadcast(ctx, msg); err != nil {
		s.notifyFailed("broadcast", nc.JobID, err, slog.String("channel", channel))
	}
}

func (s *Service) emit(ctx context.Context, name, jobID, actorID, counterpartID string) {
	ev := notify.Event{
		Name:              name,
		JobID:             jobID,
		ActorUserID:       actorID,
		CounterpartUserID: counterpartID,
		OccurredAt:        s.clock.Now(),
	}
	if err := s.gateway.Emit(ctx, ev); err != nil {
		s.notifyFailed("event", jobID, err, slog.String("event", name))
	}
}

func (s *Service) notifyFailed(kind, jobID string, err error, attrs ...any) {
	args := append([]any{
		slog.String("kind", kind),
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	}, attrs...)
	s.logger.Error("Failed to send notification", args...)
}

// sendAccepted confirms an assignment to both parties and schedules the
// session reminders
func (s *Service) sendAccepted(ctx context.Context, job *domain.Job, translatorID string, nc notify.NotificationContext) {
	s.emailCustomer(ctx, job, notify.TemplateJobAccepted, messages.SubjectJobAccepted, nc)
	s.emailUser(ctx, translatorID, notify.TemplateJobAccepted, messages.SubjectJobAccepted, nc)
	s.sendPush(ctx, job.CustomerID, notify.PushKindSessionReminder, messages.PushSessionReminder, nc)
	s.sendPush(ctx, translatorID, notify.PushKindSessionReminder, messages.PushSessionReminder, nc)
}
