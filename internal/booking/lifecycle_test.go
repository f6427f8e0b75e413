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

func TestEndJob_NotStartedIsNoop(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, time.Hour)

	res, err := f.svc.EndJob(context.Background(), job.ID, f.customer)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.False(t, res.StatusChanged)

	assert.Equal(t, job, f.job(t, job.ID))
	assert.Empty(t, f.logs(t, job.ID))
	assert.Zero(t, f.gateway.total())
}

func TestEndJob_Started(t *testing.T) {
	tests := []struct {
		name        string
		actor       func(f *fixture) *domain.User
		counterpart func(f *fixture) string
	}{
		{
			name:        "ended by customer",
			actor:       func(f *fixture) *domain.User { return f.customer },
			counterpart: func(f *fixture) string { return f.translator.ID },
		},
		{
			name:        "ended by translator",
			actor:       func(f *fixture) *domain.User { return f.translator },
			counterpart: func(f *fixture) string { return f.customer.ID },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, domain.StatusStarted, -75*time.Minute)
			f.assign(t, job, f.translator)
			actor := tt.actor(f)

			res, err := f.svc.EndJob(context.Background(), job.ID, actor)
			require.NoError(t, err)
			require.True(t, res.OK())

			stored := f.job(t, job.ID)
			assert.Equal(t, domain.StatusCompleted, stored.Status)
			assert.Equal(t, 75*time.Minute, stored.SessionTime)
			require.NotNil(t, stored.EndAt)

			history, err := f.svc.Assignment().History(context.Background(), job.ID)
			require.NoError(t, err)
			require.Len(t, history, 1)
			require.NotNil(t, history[0].CompletedBy)
			assert.Equal(t, actor.ID, *history[0].CompletedBy)

			assert.Equal(t, []string{
				notify.TemplateSessionEnded + ":" + f.customer.ID,
				notify.TemplateSessionEnded + ":" + f.translator.ID,
			}, f.gateway.templates())
			assert.Equal(t, "1 tim 15 min", f.gateway.emails[0].Context.SessionTime)

			require.Len(t, f.gateway.events, 1)
			assert.Equal(t, notify.EventSessionEnded, f.gateway.events[0].Name)
			assert.Equal(t, tt.counterpart(f), f.gateway.events[0].CounterpartUserID)
		})
	}
}

func TestCustomerNotCall(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, -10*time.Minute)
	f.assign(t, job, f.translator)

	res, err := f.svc.CustomerNotCall(context.Background(), job.ID, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.True(t, res.StatusChanged)

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusNotCarriedOutCustomer, stored.Status)
	require.NotNil(t, stored.EndAt)
	assert.Equal(t, now, *stored.EndAt)

	history, err := f.svc.Assignment().History(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].CompletedAt)
	assert.Equal(t, f.translator.ID, *history[0].CompletedBy)

	logs := f.logs(t, job.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, f.admin.ID, logs[0].ActorUserID)
	assert.Zero(t, f.gateway.total())
}

func TestReopen_InPlace(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
	old := f.assign(t, job, f.translator)

	res, err := f.svc.Reopen(context.Background(), job.ID, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, domain.CodeReopened, res.Code)
	assert.Equal(t, "Tolk cancelled!", res.Message)
	assert.Equal(t, job.ID, res.JobID)

	stored := f.job(t, job.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, now, stored.CreatedAt)
	assert.Equal(t, now.Add(90*time.Minute), stored.WillExpireAt)

	history, err := f.svc.Assignment().History(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, old.ID, history[0].ID)
	assert.NotNil(t, history[0].CancelAt)
	assert.Equal(t, f.admin.ID, history[1].TranslatorID)
	assert.NotNil(t, history[1].CancelAt)
	assert.Empty(t, f.activeRelations(t, job.ID))

	assert.Len(t, f.logs(t, job.ID), 1)
	require.Len(t, f.gateway.broadcasts, 1)
	assert.Equal(t, job.ID, f.gateway.broadcasts[0].JobID)
}

func TestReopen_TimedOutIsCloned(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusTimedOut, 50*time.Hour)

	res, err := f.svc.Reopen(context.Background(), job.ID, f.admin)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.NotEqual(t, job.ID, res.JobID)

	clone := f.job(t, res.JobID)
	assert.Equal(t, domain.StatusPending, clone.Status)
	assert.Equal(t, "This booking is a reopening of booking #"+job.ID, clone.AdminComments)
	assert.Equal(t, job.Due, clone.Due)
	assert.Equal(t, job.CustomerID, clone.CustomerID)
	assert.Equal(t, now, clone.CreatedAt)

	assert.Equal(t, domain.StatusTimedOut, f.job(t, job.ID).Status)

	rels, err := f.store.Relations(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, f.admin.ID, rels[0].TranslatorID)
	assert.False(t, rels[0].Active())

	assert.Len(t, f.logs(t, res.JobID), 1)
	assert.Empty(t, f.logs(t, job.ID))
	require.Len(t, f.gateway.broadcasts, 1)
	assert.Equal(t, res.JobID, f.gateway.broadcasts[0].JobID)
}

func TestReopen_CommitFailure(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 50*time.Hour)
	svc := f.service(&failingStore{MemoryStore: f.store, err: errors.New("deadlock detected")})

	res, err := svc.Reopen(context.Background(), job.ID, f.admin)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, domain.CodeReopenFailed, res.Code)
	assert.Equal(t, "Please try again!", res.Message)
	assert.Zero(t, f.gateway.total())
}

func TestRestrictedOperations(t *testing.T) {
	stranger := &domain.User{ID: "cust-2", Role: domain.RoleCustomer}

	tests := []struct {
		name  string
		run   func(f *fixture, jobID string, actor *domain.User) (*Result, error)
		actor func(f *fixture) *domain.User
	}{
		{
			name: "update by customer",
			run: func(f *fixture, jobID string, actor *domain.User) (*Result, error) {
				return f.svc.ApplyUpdate(context.Background(), jobID, UpdateInput{Reference: ptr("PO-1")}, actor)
			},
			actor: func(f *fixture) *domain.User { return f.customer },
		},
		{
			name: "update by translator",
			run: func(f *fixture, jobID string, actor *domain.User) (*Result, error) {
				return f.svc.ApplyUpdate(context.Background(), jobID, UpdateInput{Status: ptr(domain.StatusCompleted)}, actor)
			},
			actor: func(f *fixture) *domain.User { return f.translator },
		},
		{
			name: "reopen by customer",
			run: func(f *fixture, jobID string, actor *domain.User) (*Result, error) {
				return f.svc.Reopen(context.Background(), jobID, actor)
			},
			actor: func(f *fixture) *domain.User { return f.customer },
		},
		{
			name: "end by other customer",
			run: func(f *fixture, jobID string, actor *domain.User) (*Result, error) {
				return f.svc.EndJob(context.Background(), jobID, actor)
			},
			actor: func(*fixture) *domain.User { return stranger },
		},
		{
			name: "end by unassigned translator",
			run: func(f *fixture, jobID string, actor *domain.User) (*Result, error) {
				return f.svc.EndJob(context.Background(), jobID, actor)
			},
			actor: func(f *fixture) *domain.User { return f.translator2 },
		},
		{
			name: "no-show reported by customer",
			run: func(f *fixture, jobID string, actor *domain.User) (*Result, error) {
				return f.svc.CustomerNotCall(context.Background(), jobID, actor)
			},
			actor: func(f *fixture) *domain.User { return f.customer },
		},
		{
			name: "no-show reported by unassigned translator",
			run: func(f *fixture, jobID string, actor *domain.User) (*Result, error) {
				return f.svc.CustomerNotCall(context.Background(), jobID, actor)
			},
			actor: func(f *fixture) *domain.User { return f.translator2 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, domain.StatusStarted, -30*time.Minute)
			f.assign(t, job, f.translator)

			res, err := tt.run(f, job.ID, tt.actor(f))
			require.NoError(t, err)
			assert.False(t, res.OK())
			assert.Equal(t, domain.CodeForbidden, res.Code)
			assert.Equal(t, job.ID, res.JobID)

			assert.Equal(t, job, f.job(t, job.ID))
			assert.Empty(t, f.logs(t, job.ID))
			assert.Len(t, f.activeRelations(t, job.ID), 1)
			assert.Zero(t, f.gateway.total())
		})
	}
}

func TestCustomerNotCall_ByAssignedTranslator(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, -10*time.Minute)
	f.assign(t, job, f.translator)

	res, err := f.svc.CustomerNotCall(context.Background(), job.ID, f.translator)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, domain.StatusNotCarriedOutCustomer, f.job(t, job.ID).Status)
	assert.Empty(t, f.activeRelations(t, job.ID))
}
