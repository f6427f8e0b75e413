package booking

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

type relationEnd int

const (
	keepRelation relationEnd = iota
	cancelRelation
	completeRelation
)

// followUp runs after the commit with the saved job
type followUp func(ctx context.Context, job *domain.Job, nc notify.NotificationContext)

// transition is one requested status change. Rules stage their field
// changes on job and queue their notifications in after.
type transition struct {
	job               *domain.Job
	from              domain.Status
	to                domain.Status
	comment           string
	sessionTime       string
	translatorChanged bool
	translatorID      string
	actor             *domain.User
	now               time.Time

	end   relationEnd
	after []followUp
}

// transitionRule is the row of the state table for one current status
type transitionRule struct {
	allows          func(to domain.Status, translatorChanged bool) bool
	requiresComment func(to domain.Status) bool
	apply           func(s *Service, t *transition) string
}

// transitions is keyed on the status being left. A status with no row is
// terminal.
var transitions = map[domain.Status]transitionRule{
	domain.StatusPending: {
		allows:          anyTarget,
		requiresComment: targetIs(domain.StatusTimedOut),
		apply:           applyFromPending,
	},
	domain.StatusAssigned: {
		allows:          targetIn(domain.StatusWithdrawBefore24, domain.StatusWithdrawAfter24, domain.StatusTimedOut),
		requiresComment: targetIs(domain.StatusTimedOut),
		apply:           applyFromAssigned,
	},
	domain.StatusStarted: {
		allows:          anyTarget,
		requiresComment: alwaysRequired,
		apply:           applyFromStarted,
	},
	domain.StatusWithdrawAfter24: {
		allows:          targetIn(domain.StatusTimedOut),
		requiresComment: alwaysRequired,
		apply:           noEffect,
	},
	domain.StatusTimedOut: {
		allows:          allowsFromTimedOut,
		requiresComment: neverRequired,
		apply:           applyFromTimedOut,
	},
	domain.StatusCompleted: {
		allows:          targetIn(domain.StatusTimedOut),
		requiresComment: alwaysRequired,
		apply:           noEffect,
	},
}

// AllowedTargets lists the statuses a job in from may move to when no
// translator changes in the same update
func AllowedTargets(from domain.Status) []domain.Status {
	rule, ok := transitions[from]
	if !ok {
		return nil
	}

	all := []domain.Status{
		domain.StatusPending, domain.StatusAssigned, domain.StatusStarted, domain.StatusCompleted,
		domain.StatusWithdrawBefore24, domain.StatusWithdrawAfter24, domain.StatusTimedOut,
		domain.StatusNotCarriedOutCustomer,
	}
	var out []domain.Status
	for _, to := range all {
		if to != from && rule.allows(to, false) {
			out = append(out, to)
		}
	}
	return out
}

// evaluateTransition applies the rule for t.from to t, returning a fail
// Result when the change is refused. A refused change leaves t.job untouched.
func (s *Service) evaluateTransition(t *transition) *Result {
	rule, ok := transitions[t.from]
	if !ok || !t.to.Valid() || !rule.allows(t.to, t.translatorChanged) {
		return s.reject(t.from, t.to, domain.CodeTransitionNotAllowed)
	}

	if rule.requiresComment(t.to) && strings.TrimSpace(t.comment) == "" {
		return s.reject(t.from, t.to, domain.CodeCommentRequired)
	}

	staged := t.job.Clone()
	target := t.job
	t.job = staged
	t.job.Status = t.to

	if code := rule.apply(s, t); code != "" {
		t.job = target
		return s.reject(t.from, t.to, code)
	}

	*target = *staged
	t.job = target
	return nil
}

func anyTarget(domain.Status, bool) bool { return true }

func targetIn(targets ...domain.Status) func(domain.Status, bool) bool {
	return func(to domain.Status, _ bool) bool {
		return slices.Contains(targets, to)
	}
}

func targetIs(target domain.Status) func(domain.Status) bool {
	return func(to domain.Status) bool { return to == target }
}

func alwaysRequired(domain.Status) bool { return true }

func neverRequired(domain.Status) bool { return false }

func noEffect(*Service, *transition) string { return "" }

func allowsFromTimedOut(to domain.Status, translatorChanged bool) bool {
	return to == domain.StatusPending || translatorChanged
}

func applyFromPending(s *Service, t *transition) string {
	if t.to == domain.StatusAssigned && t.translatorChanged {
		translatorID := t.translatorID
		t.after = append(t.after, func(ctx context.Context, job *domain.Job, nc notify.NotificationContext) {
			s.sendAccepted(ctx, job, translatorID, nc)
		})
		return ""
	}

	t.after = append(t.after, func(ctx context.Context, job *domain.Job, nc notify.NotificationContext) {
		s.emailCustomer(ctx, job, notify.TemplateStatusChangedCustomer, messages.SubjectBookingCancelled, nc)
	})
	return ""
}

func applyFromAssigned(s *Service, t *transition) string {
	if t.to != domain.StatusWithdrawBefore24 && t.to != domain.StatusWithdrawAfter24 {
		return ""
	}

	withdrawAt := t.now
	t.job.WithdrawAt = &withdrawAt
	t.end = cancelRelation

	translatorID := t.translatorID
	t.after = append(t.after, func(ctx context.Context, job *domain.Job, nc notify.NotificationContext) {
		s.emailCustomer(ctx, job, notify.TemplateStatusChangedCustomer, messages.SubjectBookingCancelled, nc)
		s.emailUser(ctx, translatorID, notify.TemplateJobCancelTranslator, messages.SubjectBookingCancelled, nc)
	})
	return ""
}

func applyFromStarted(s *Service, t *transition) string {
	if t.to != domain.StatusCompleted {
		return ""
	}

	if strings.TrimSpace(t.sessionTime) == "" {
		return domain.CodeSessionTimeRequired
	}
	session, err := domain.ParseSessionTime(t.sessionTime)
	if err != nil {
		return domain.CodeSessionTimeRequired
	}

	endAt := t.now
	t.job.EndAt = &endAt
	t.job.SessionTime = session
	t.end = completeRelation

	translatorID := t.translatorID
	t.after = append(t.after, func(ctx context.Context, job *domain.Job, nc notify.NotificationContext) {
		s.sendSessionEnded(ctx, job, translatorID, nc)
	})
	return ""
}

func applyFromTimedOut(s *Service, t *transition) string {
	if t.to == domain.StatusPending {
		t.job.CreatedAt = t.now
		t.job.EmailSent = false
		t.job.Reminder16hSent = false
		t.job.Reminder48hSent = false
		t.job.WillExpireAt = domain.WillExpireAt(t.job.Due, t.now)

		t.after = append(t.after, func(ctx context.Context, job *domain.Job, nc notify.NotificationContext) {
			s.emailCustomer(ctx, job, notify.TemplateJobChangeStatusToCustomer, messages.SubjectBookingReopened, nc)
			s.broadcast(ctx, notify.ChannelPush, nc)
		})
	}

	if t.translatorChanged {
		t.after = append(t.after, func(ctx context.Context, job *domain.Job, nc notify.NotificationContext) {
			s.emailCustomer(ctx, job, notify.TemplateJobAccepted, messages.SubjectJobAccepted, nc)
		})
	}
	return ""
}

// sendSessionEnded tells the customer what will be invoiced and the
// translator what will be paid out
func (s *Service) sendSessionEnded(ctx context.Context, job *domain.Job, translatorID string, nc notify.NotificationContext) {
	session := domain.FormatSessionTime(job.SessionTime)

	s.emailCustomer(ctx, job, notify.TemplateSessionEnded, messages.SubjectSessionEnded,
		nc.WithSession(session, s.catalog.Text(messages.ForTextInvoice, nil)))
	s.emailUser(ctx, translatorID, notify.TemplateSessionEnded, messages.SubjectSessionEnded,
		nc.WithSession(session, s.catalog.Text(messages.ForTextPayout, nil)))
}
