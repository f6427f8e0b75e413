package booking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/cuongbtq/interpreter-booking/internal/storage"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type recordingGateway struct {
	mu         sync.Mutex
	err        error
	emails     []notify.EmailMessage
	pushes     []notify.PushMessage
	sms        []notify.SMSMessage
	broadcasts []notify.Broadcast
	events     []notify.Event
}

func (g *recordingGateway) SendEmail(_ context.Context, msg notify.EmailMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emails = append(g.emails, msg)
	return g.err
}

func (g *recordingGateway) SendPush(_ context.Context, msg notify.PushMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushes = append(g.pushes, msg)
	return g.err
}

func (g *recordingGateway) SendSMS(_ context.Context, msg notify.SMSMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sms = append(g.sms, msg)
	return g.err
}

func (g *recordingGateway) Broadcast(_ context.Context, msg notify.Broadcast) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcasts = append(g.broadcasts, msg)
	return g.err
}

func (g *recordingGateway) Emit(_ context.Context, ev notify.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, ev)
	return g.err
}

func (g *recordingGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.emails) + len(g.pushes) + len(g.sms) + len(g.broadcasts) + len(g.events)
}

func (g *recordingGateway) templates() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.emails))
	for i, e := range g.emails {
		out[i] = e.Template + ":" + e.To.UserID
	}
	return out
}

// stubPreferences mutes or delays push per user
type stubPreferences struct {
	muted   map[string]bool
	delayed map[string]bool
}

func (p *stubPreferences) NeedsPush(_ context.Context, userID string) (bool, error) {
	return !p.muted[userID], nil
}

func (p *stubPreferences) DelayPush(_ context.Context, userID string) (bool, error) {
	return p.delayed[userID], nil
}

// failingStore rejects every commit with err
type failingStore struct {
	*storage.MemoryStore
	err error
}

func (s *failingStore) Commit(context.Context, domain.UnitOfWork) error {
	return s.err
}

type fixture struct {
	svc     *Service
	store   *storage.MemoryStore
	gateway *recordingGateway
	prefs   *stubPreferences
	clock   *domain.FixedClock

	customer    *domain.User
	translator  *domain.User
	translator2 *domain.User
	admin       *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	store.AddLanguage(1, "Arabic")
	store.AddLanguage(2, "Somali")

	f := &fixture{
		store:       store,
		gateway:     &recordingGateway{},
		prefs:       &stubPreferences{muted: map[string]bool{}, delayed: map[string]bool{}},
		clock:       domain.NewFixedClock(now),
		customer:    &domain.User{ID: "cust-1", Name: "Anna", Email: "anna@example.com", Role: domain.RoleCustomer, ConsumerType: "paid", Address: "Storgatan 1", City: "Malmö", Instructions: "Ring på"},
		translator:  &domain.User{ID: "tr-1", Name: "Tolk Ett", Email: "tolk1@example.com", Role: domain.RoleTranslator, TranslatorType: domain.TranslatorProfessional, Languages: []int64{1}},
		translator2: &domain.User{ID: "tr-2", Name: "Tolk Två", Email: "tolk2@example.com", Role: domain.RoleTranslator, TranslatorType: domain.TranslatorProfessional, Languages: []int64{1}},
		admin:       &domain.User{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin},
	}
	for _, u := range []*domain.User{f.customer, f.translator, f.translator2, f.admin} {
		store.AddUser(*u)
	}

	f.svc = f.service(store)
	return f
}

func (f *fixture) service(store Store) *Service {
	cfg := DefaultConfig()
	cfg.SupportPhone = "+46 8 123 456"
	return NewService(&Dependencies{
		Store:       store,
		Directory:   f.store,
		Gateway:     f.gateway,
		Preferences: f.prefs,
		Clock:       f.clock,
		Catalog:     messages.New(messages.LocaleEnglish),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:      cfg,
	})
}

// seedJob stores a job in status that is due dueIn from now
func (f *fixture) seedJob(t *testing.T, status domain.Status, dueIn time.Duration) *domain.Job {
	t.Helper()
	created := now.Add(-time.Hour)
	job := &domain.Job{
		ID:                newID(),
		CustomerID:        f.customer.ID,
		FromLanguageID:    1,
		JobType:           domain.JobTypePaid,
		Status:            status,
		Due:               now.Add(dueIn),
		Duration:          60,
		Certification:     domain.CertNormal,
		CustomerPhoneType: true,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
	job.WillExpireAt = domain.WillExpireAt(job.Due, created)
	require.NoError(t, f.store.Commit(context.Background(), domain.UnitOfWork{NewJob: job}))
	return job
}

// assign opens an active relation for translator on job
func (f *fixture) assign(t *testing.T, job *domain.Job, translator *domain.User) domain.TranslatorRelation {
	t.Helper()
	rel := domain.TranslatorRelation{ID: newID(), JobID: job.ID, TranslatorID: translator.ID, CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, f.store.Commit(context.Background(), domain.UnitOfWork{OpenRelations: []domain.TranslatorRelation{rel}}))
	return rel
}

func (f *fixture) job(t *testing.T, id string) *domain.Job {
	t.Helper()
	job, err := f.store.GetJob(context.Background(), id)
	require.NoError(t, err)
	return job
}

func (f *fixture) activeRelations(t *testing.T, jobID string) []domain.TranslatorRelation {
	t.Helper()
	rels, err := f.store.Relations(context.Background(), jobID)
	require.NoError(t, err)
	var active []domain.TranslatorRelation
	for _, r := range rels {
		if r.Active() {
			active = append(active, r)
		}
	}
	return active
}

func (f *fixture) logs(t *testing.T, jobID string) []domain.StatusTransitionLog {
	t.Helper()
	logs, err := f.store.TransitionLogs(context.Background(), jobID)
	require.NoError(t, err)
	return logs
}

func ptr[T any](v T) *T {
	return &v
}
