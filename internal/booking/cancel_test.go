package booking

import (
	"context"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelJob_CustomerNotice(t *testing.T) {
	tests := []struct {
		name  string
		dueIn time.Duration
		want  domain.Status
	}{
		{"more than a day ahead", 30 * time.Hour, domain.StatusWithdrawBefore24},
		{"exactly a day ahead", 24 * time.Hour, domain.StatusWithdrawBefore24},
		{"within a day", 10 * time.Hour, domain.StatusWithdrawAfter24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, domain.StatusAssigned, tt.dueIn)
			f.assign(t, job, f.translator)

			res, err := f.svc.CancelJob(context.Background(), job.ID, f.customer)
			require.NoError(t, err)
			require.True(t, res.OK())
			assert.True(t, res.StatusChanged)

			stored := f.job(t, job.ID)
			assert.Equal(t, tt.want, stored.Status)
			require.NotNil(t, stored.WithdrawAt)
			assert.Equal(t, now, *stored.WithdrawAt)
			assert.Empty(t, f.activeRelations(t, job.ID))

			require.Len(t, f.gateway.pushes, 1)
			assert.Equal(t, []string{f.translator.ID}, f.gateway.pushes[0].UserIDs)
			assert.Equal(t, notify.PushKindJobCancelled, f.gateway.pushes[0].Kind)

			require.Len(t, f.gateway.events, 1)
			ev := f.gateway.events[0]
			assert.Equal(t, notify.EventJobCancelled, ev.Name)
			assert.Equal(t, f.customer.ID, ev.ActorUserID)
			assert.Equal(t, f.translator.ID, ev.CounterpartUserID)
		})
	}
}

func TestCancelJob_CustomerPendingWithoutTranslator(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 10*time.Hour)

	res, err := f.svc.CancelJob(context.Background(), job.ID, f.customer)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, domain.StatusWithdrawAfter24, f.job(t, job.ID).Status)
	assert.Empty(t, f.gateway.pushes)
	require.Len(t, f.gateway.events, 1)
	assert.Empty(t, f.gateway.events[0].CounterpartUserID)
}

func TestCancelJob_Refused(t *testing.T) {
	stranger := &domain.User{ID: "cust-2", Role: domain.RoleCustomer}

	tests := []struct {
		name   string
		status domain.Status
		actor  func(f *fixture) *domain.User
		code   string
	}{
		{"customer on completed job", domain.StatusCompleted, func(f *fixture) *domain.User { return f.customer }, domain.CodeNotCancellable},
		{"other customer", domain.StatusPending, func(*fixture) *domain.User { return stranger }, domain.CodeForbidden},
		{"admin", domain.StatusPending, func(f *fixture) *domain.User { return f.admin }, domain.CodeForbidden},
		{"translator not holding the job", domain.StatusAssigned, func(f *fixture) *domain.User { return f.translator2 }, domain.CodeNotAssignedTranslator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, tt.status, 30*time.Hour)
			if tt.status == domain.StatusAssigned {
				f.assign(t, job, f.translator)
			}

			res, err := f.svc.CancelJob(context.Background(), job.ID, tt.actor(f))
			require.NoError(t, err)
			assert.False(t, res.OK())
			assert.Equal(t, tt.code, res.Code)
			assert.Equal(t, tt.status, f.job(t, job.ID).Status)
			assert.Zero(t, f.gateway.total())
		})
	}
}

func TestCancelJob_TranslatorMustCallSupport(t *testing.T) {
	for _, dueIn := range []time.Duration{10 * time.Hour, 24 * time.Hour} {
		f := newFixture(t)
		job := f.seedJob(t, domain.StatusAssigned, dueIn)
		f.assign(t, job, f.translator)

		res, err := f.svc.CancelJob(context.Background(), job.ID, f.translator)
		require.NoError(t, err)
		assert.False(t, res.OK())
		assert.Equal(t, domain.CodeCancelByPhone, res.Code)
		assert.Contains(t, res.Message, "+46 8 123 456")

		assert.Equal(t, domain.StatusAssigned, f.job(t, job.ID).Status)
		assert.Len(t, f.activeRelations(t, job.ID), 1)
		assert.Empty(t, f.logs(t, job.ID))
	}
}

func TestCancelJob_TranslatorReleasesJob(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 30*time.Hour)
	f.assign(t, job, f.translator)

	res, err := f.svc.CancelJob(context.Background(), job.ID, f.translator)
	require.NoError(t, err)
	require.True(t, res.OK())

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, now, stored.CreatedAt)
	assert.Equal(t, now.Add(16*time.Hour), stored.WillExpireAt)
	assert.Empty(t, f.activeRelations(t, job.ID))

	logs := f.logs(t, job.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, f.translator.Email, logs[0].Changes[domain.ChangeTranslator].Old)

	require.Len(t, f.gateway.pushes, 1)
	assert.Equal(t, []string{f.customer.ID}, f.gateway.pushes[0].UserIDs)
	assert.Equal(t, notify.PushKindTranslatorCancelled, f.gateway.pushes[0].Kind)

	require.Len(t, f.gateway.broadcasts, 1)
	assert.Equal(t, []string{f.translator.ID}, f.gateway.broadcasts[0].Exclude)

	require.Len(t, f.gateway.events, 1)
	assert.Equal(t, f.customer.ID, f.gateway.events[0].CounterpartUserID)
}

func TestCancelJob_TranslatorOnStartedJob(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusStarted, 30*time.Hour)
	f.assign(t, job, f.translator)

	res, err := f.svc.CancelJob(context.Background(), job.ID, f.translator)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeNotCancellable, res.Code)
}
