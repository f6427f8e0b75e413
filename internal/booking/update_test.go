package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyUpdate_SameStatusIsNoop(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
	f.assign(t, job, f.translator)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{Status: ptr(domain.StatusAssigned)}, f.admin)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.False(t, res.StatusChanged)
	assert.Empty(t, f.logs(t, job.ID))
	assert.Zero(t, f.gateway.total())
}

func TestApplyUpdate_RejectedTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.Status
		to      domain.Status
		comment string
		code    string
	}{
		{"pending to timedout without comment", domain.StatusPending, domain.StatusTimedOut, "", domain.CodeCommentRequired},
		{"assigned to timedout with blank comment", domain.StatusAssigned, domain.StatusTimedOut, "  ", domain.CodeCommentRequired},
		{"assigned to started", domain.StatusAssigned, domain.StatusStarted, "", domain.CodeTransitionNotAllowed},
		{"assigned to completed", domain.StatusAssigned, domain.StatusCompleted, "done", domain.CodeTransitionNotAllowed},
		{"started to pending without comment", domain.StatusStarted, domain.StatusPending, "", domain.CodeCommentRequired},
		{"started to completed without comment", domain.StatusStarted, domain.StatusCompleted, "", domain.CodeCommentRequired},
		{"withdrawafter24 to timedout without comment", domain.StatusWithdrawAfter24, domain.StatusTimedOut, "", domain.CodeCommentRequired},
		{"withdrawafter24 to pending", domain.StatusWithdrawAfter24, domain.StatusPending, "reopen", domain.CodeTransitionNotAllowed},
		{"completed to pending", domain.StatusCompleted, domain.StatusPending, "reopen", domain.CodeTransitionNotAllowed},
		{"completed to timedout without comment", domain.StatusCompleted, domain.StatusTimedOut, "", domain.CodeCommentRequired},
		{"timedout to assigned without translator", domain.StatusTimedOut, domain.StatusAssigned, "", domain.CodeTransitionNotAllowed},
		{"withdrawbefore24 is terminal", domain.StatusWithdrawBefore24, domain.StatusPending, "x", domain.CodeTransitionNotAllowed},
		{"not carried out is terminal", domain.StatusNotCarriedOutCustomer, domain.StatusPending, "x", domain.CodeTransitionNotAllowed},
		{"unknown target", domain.StatusPending, domain.Status("archived"), "x", domain.CodeTransitionNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, tt.from, 50*time.Hour)

			in := UpdateInput{Status: ptr(tt.to), Reference: ptr("REF-1")}
			if tt.comment != "" {
				in.AdminComments = ptr(tt.comment)
			}

			res, err := f.svc.ApplyUpdate(context.Background(), job.ID, in, f.admin)
			require.NoError(t, err)
			assert.False(t, res.OK())
			assert.Equal(t, tt.code, res.Code)
			require.NotNil(t, res.Rejection)
			assert.Equal(t, tt.from, res.Rejection.From)
			assert.Equal(t, tt.to, res.Rejection.To)

			stored := f.job(t, job.ID)
			assert.Equal(t, tt.from, stored.Status)
			assert.Empty(t, stored.Reference)
			assert.Empty(t, f.logs(t, job.ID))
			assert.Zero(t, f.gateway.total())
		})
	}
}

func TestApplyUpdate_PendingToTimedOut(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 50*time.Hour)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{
		Status:        ptr(domain.StatusTimedOut),
		AdminComments: ptr("no translator found"),
	}, f.admin)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.True(t, res.StatusChanged)

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusTimedOut, stored.Status)
	assert.Equal(t, "no translator found", stored.AdminComments)

	logs := f.logs(t, job.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, f.admin.ID, logs[0].ActorUserID)
	assert.Equal(t, domain.Change{Old: "pending", New: "timedout"}, logs[0].Changes[domain.ChangeStatus])

	assert.Equal(t, []string{notify.TemplateStatusChangedCustomer + ":" + f.customer.ID}, f.gateway.templates())
}

func TestApplyUpdate_ClosedJobToTimedOut(t *testing.T) {
	tests := []struct {
		name  string
		from  domain.Status
		dueIn time.Duration
	}{
		{"withdrawn late", domain.StatusWithdrawAfter24, 12 * time.Hour},
		{"completed", domain.StatusCompleted, -48 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, tt.from, tt.dueIn)

			res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{
				Status:        ptr(domain.StatusTimedOut),
				AdminComments: ptr("booked in error"),
			}, f.admin)
			require.NoError(t, err)
			require.True(t, res.OK(), res.Code)
			assert.True(t, res.StatusChanged)
			assert.Equal(t, domain.Change{Old: string(tt.from), New: "timedout"}, res.Changes[domain.ChangeStatus])

			stored := f.job(t, job.ID)
			assert.Equal(t, domain.StatusTimedOut, stored.Status)
			assert.Equal(t, "booked in error", stored.AdminComments)
			assert.Nil(t, stored.EndAt)

			logs := f.logs(t, job.ID)
			require.Len(t, logs, 1)
			assert.Equal(t, f.admin.ID, logs[0].ActorUserID)
			assert.Equal(t, tt.from, logs[0].OldStatus)
			assert.Equal(t, domain.StatusTimedOut, logs[0].NewStatus)

			// nobody is told about an administrative reclassification
			assert.Zero(t, f.gateway.total())
		})
	}
}

func TestApplyUpdate_StartedToCompleted(t *testing.T) {
	t.Run("requires session time", func(t *testing.T) {
		f := newFixture(t)
		job := f.seedJob(t, domain.StatusStarted, -time.Hour)
		f.assign(t, job, f.translator)

		for _, session := range []string{"", "ninety"} {
			res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{
				Status:        ptr(domain.StatusCompleted),
				AdminComments: ptr("closed by admin"),
				SessionTime:   ptr(session),
			}, f.admin)
			require.NoError(t, err)
			assert.Equal(t, domain.CodeSessionTimeRequired, res.Code)
		}
		assert.Equal(t, domain.StatusStarted, f.job(t, job.ID).Status)
		assert.Len(t, f.activeRelations(t, job.ID), 1)
	})

	t.Run("completes session", func(t *testing.T) {
		f := newFixture(t)
		job := f.seedJob(t, domain.StatusStarted, -time.Hour)
		rel := f.assign(t, job, f.translator)

		res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{
			Status:        ptr(domain.StatusCompleted),
			AdminComments: ptr("closed by admin"),
			SessionTime:   ptr("1:30"),
		}, f.admin)
		require.NoError(t, err)
		require.True(t, res.OK())

		stored := f.job(t, job.ID)
		assert.Equal(t, domain.StatusCompleted, stored.Status)
		assert.Equal(t, 90*time.Minute, stored.SessionTime)
		require.NotNil(t, stored.EndAt)
		assert.Equal(t, now, *stored.EndAt)

		assert.Empty(t, f.activeRelations(t, job.ID))
		history, err := f.svc.Assignment().History(context.Background(), job.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, rel.ID, history[0].ID)
		require.NotNil(t, history[0].CompletedBy)
		assert.Equal(t, f.admin.ID, *history[0].CompletedBy)

		require.Len(t, f.gateway.emails, 2)
		customerMail, translatorMail := f.gateway.emails[0], f.gateway.emails[1]
		assert.Equal(t, notify.TemplateSessionEnded, customerMail.Template)
		assert.Equal(t, f.customer.ID, customerMail.To.UserID)
		assert.Equal(t, "invoice", customerMail.Context.ForText)
		assert.Equal(t, "1 tim 30 min", customerMail.Context.SessionTime)
		assert.Equal(t, f.translator.ID, translatorMail.To.UserID)
		assert.Equal(t, "payout", translatorMail.Context.ForText)
	})
}

func TestApplyUpdate_PendingToAssignedWithTranslator(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 50*time.Hour)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{
		Status:       ptr(domain.StatusAssigned),
		TranslatorID: ptr(f.translator.ID),
	}, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.True(t, res.TranslatorChanged)
	assert.True(t, res.StatusChanged)

	active := f.activeRelations(t, job.ID)
	require.Len(t, active, 1)
	assert.Equal(t, f.translator.ID, active[0].TranslatorID)

	logs := f.logs(t, job.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.Change{New: f.translator.Email}, logs[0].Changes[domain.ChangeTranslator])
	assert.Equal(t, domain.StatusAssigned, logs[0].NewStatus)

	assert.ElementsMatch(t, []string{
		notify.TemplateJobChangedTranslatorCustomer + ":" + f.customer.ID,
		notify.TemplateJobChangedTranslatorNew + ":" + f.translator.ID,
		notify.TemplateJobAccepted + ":" + f.customer.ID,
		notify.TemplateJobAccepted + ":" + f.translator.ID,
	}, f.gateway.templates())
	require.Len(t, f.gateway.pushes, 2)
	for _, p := range f.gateway.pushes {
		assert.Equal(t, notify.PushKindSessionReminder, p.Kind)
	}
}

func TestApplyUpdate_Reassign(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
	old := f.assign(t, job, f.translator)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{
		TranslatorEmail: ptr("TOLK2@example.com"),
	}, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.True(t, res.TranslatorChanged)
	assert.False(t, res.StatusChanged)

	active := f.activeRelations(t, job.ID)
	require.Len(t, active, 1)
	assert.Equal(t, f.translator2.ID, active[0].TranslatorID)

	history, err := f.svc.Assignment().History(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, old.ID, history[0].ID)
	require.NotNil(t, history[0].CancelAt)
	assert.Nil(t, history[0].CompletedAt)

	logs := f.logs(t, job.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.Change{Old: f.translator.Email, New: f.translator2.Email}, logs[0].Changes[domain.ChangeTranslator])
	assert.Equal(t, logs[0].OldStatus, logs[0].NewStatus)

	assert.Equal(t, []string{
		notify.TemplateJobChangedTranslatorCustomer + ":" + f.customer.ID,
		notify.TemplateJobChangedTranslatorOld + ":" + f.translator.ID,
		notify.TemplateJobChangedTranslatorNew + ":" + f.translator2.ID,
	}, f.gateway.templates())
}

func TestApplyUpdate_TranslatorNotChanged(t *testing.T) {
	tests := []struct {
		name string
		in   func(f *fixture) UpdateInput
	}{
		{"unknown email", func(f *fixture) UpdateInput { return UpdateInput{TranslatorEmail: ptr("nobody@example.com")} }},
		{"same translator", func(f *fixture) UpdateInput { return UpdateInput{TranslatorID: ptr(f.translator.ID)} }},
		{"same translator by email", func(f *fixture) UpdateInput { return UpdateInput{TranslatorEmail: ptr("TOLK1@example.com")} }},
		{"not a translator", func(f *fixture) UpdateInput { return UpdateInput{TranslatorEmail: ptr(f.customer.Email)} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
			f.assign(t, job, f.translator)

			res, err := f.svc.ApplyUpdate(context.Background(), job.ID, tt.in(f), f.admin)
			require.NoError(t, err)
			assert.True(t, res.OK())
			assert.False(t, res.TranslatorChanged)

			active := f.activeRelations(t, job.ID)
			require.Len(t, active, 1)
			assert.Equal(t, f.translator.ID, active[0].TranslatorID)
			assert.Empty(t, f.logs(t, job.ID))
			assert.Zero(t, f.gateway.total())
		})
	}
}

func TestApplyUpdate_DueChanged(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
	f.assign(t, job, f.translator)
	newDue := now.Add(100 * time.Hour)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{Due: &newDue}, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())

	stored := f.job(t, job.ID)
	assert.Equal(t, newDue, stored.Due)
	assert.Equal(t, newDue.Add(-48*time.Hour), stored.WillExpireAt)
	assert.Equal(t, domain.Change{Old: "2026-04-03 10:00", New: "2026-04-05 12:00"}, res.Changes[domain.ChangeDue])

	assert.Equal(t, []string{
		notify.TemplateJobChangedDate + ":" + f.customer.ID,
		notify.TemplateJobChangedDate + ":" + f.translator.ID,
	}, f.gateway.templates())
	assert.Equal(t, "2026-04-03 10:00", f.gateway.emails[0].Context.OldValue)
	assert.Equal(t, "2026-04-05 12:00", f.gateway.emails[0].Context.NewValue)
}

func TestApplyUpdate_PastDueSkipsChangeEmails(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
	f.assign(t, job, f.translator)
	newDue := now.Add(-time.Hour)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{Due: &newDue}, f.admin)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Len(t, f.logs(t, job.ID), 1)
	assert.Empty(t, f.gateway.emails)
}

func TestApplyUpdate_LanguageChanged(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
	f.assign(t, job, f.translator)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{FromLanguageID: ptr(int64(2))}, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())

	assert.Equal(t, int64(2), f.job(t, job.ID).FromLanguageID)
	assert.Equal(t, domain.Change{Old: "Arabic", New: "Somali"}, res.Changes[domain.ChangeLanguage])
	assert.Equal(t, []string{
		notify.TemplateJobChangedLang + ":" + f.customer.ID,
		notify.TemplateJobChangedLang + ":" + f.translator.ID,
	}, f.gateway.templates())
	assert.Equal(t, "Arabic", f.gateway.emails[1].Context.OldValue)
}

func TestApplyUpdate_AssignedToWithdraw(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
	f.assign(t, job, f.translator)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{Status: ptr(domain.StatusWithdrawBefore24)}, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusWithdrawBefore24, stored.Status)
	require.NotNil(t, stored.WithdrawAt)
	assert.Equal(t, now, *stored.WithdrawAt)
	assert.Empty(t, f.activeRelations(t, job.ID))

	assert.Equal(t, []string{
		notify.TemplateStatusChangedCustomer + ":" + f.customer.ID,
		notify.TemplateJobCancelTranslator + ":" + f.translator.ID,
	}, f.gateway.templates())

	// like a customer withdrawal, the booking leaves the translator's record
	history, err := f.svc.UsersJobsHistory(context.Background(), f.translator, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, history.Jobs)
}

func TestApplyUpdate_TimedOutToPending(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusTimedOut, 50*time.Hour)
	job.EmailSent = true
	job.Reminder16hSent = true
	require.NoError(t, f.store.Commit(context.Background(), domain.UnitOfWork{Job: job}))

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{Status: ptr(domain.StatusPending)}, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, now, stored.CreatedAt)
	assert.Equal(t, now.Add(90*time.Minute), stored.WillExpireAt)
	assert.False(t, stored.EmailSent)
	assert.False(t, stored.Reminder16hSent)

	assert.Equal(t, []string{notify.TemplateJobChangeStatusToCustomer + ":" + f.customer.ID}, f.gateway.templates())
	require.Len(t, f.gateway.broadcasts, 1)
	assert.Equal(t, job.ID, f.gateway.broadcasts[0].JobID)
	assert.Equal(t, notify.ChannelPush, f.gateway.broadcasts[0].Channel)
}

func TestApplyUpdate_TimedOutToAssignedWithTranslator(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusTimedOut, 50*time.Hour)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{
		Status:       ptr(domain.StatusAssigned),
		TranslatorID: ptr(f.translator2.ID),
	}, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())

	active := f.activeRelations(t, job.ID)
	require.Len(t, active, 1)
	assert.Equal(t, f.translator2.ID, active[0].TranslatorID)
	assert.Contains(t, f.gateway.templates(), notify.TemplateJobAccepted+":"+f.customer.ID)
	assert.NotContains(t, f.gateway.templates(), notify.TemplateJobAccepted+":"+f.translator2.ID)
}

func TestApplyUpdate_JobForAndReference(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 50*time.Hour)

	res, err := f.svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{
		JobFor:    []string{domain.JobForCertified, domain.JobForMale},
		Reference: ptr("PO-42"),
	}, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.CertCertified, stored.Certification)
	assert.Equal(t, domain.GenderMale, stored.Gender)
	assert.Equal(t, "PO-42", stored.Reference)
	assert.Empty(t, f.logs(t, job.ID))
}

func TestApplyUpdate_ConcurrentModification(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 50*time.Hour)
	svc := f.service(&failingStore{MemoryStore: f.store, err: domain.ErrStatusChanged})

	res, err := svc.ApplyUpdate(context.Background(), job.ID, UpdateInput{Reference: ptr("PO-42")}, f.admin)
	assert.Nil(t, res)

	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.CodeJobChanged, ce.Code)
	assert.ErrorIs(t, err, domain.ErrStatusChanged)
	assert.Zero(t, f.gateway.total())
}

func TestAllowedTargets(t *testing.T) {
	assert.Equal(t, []domain.Status{
		domain.StatusWithdrawBefore24, domain.StatusWithdrawAfter24, domain.StatusTimedOut,
	}, AllowedTargets(domain.StatusAssigned))
	assert.Equal(t, []domain.Status{domain.StatusPending}, AllowedTargets(domain.StatusTimedOut))
	assert.Equal(t, []domain.Status{domain.StatusTimedOut}, AllowedTargets(domain.StatusCompleted))
	assert.Len(t, AllowedTargets(domain.StatusPending), 7)
	assert.Nil(t, AllowedTargets(domain.StatusNotCarriedOutCustomer))
	assert.Nil(t, AllowedTargets(domain.StatusWithdrawBefore24))
}
