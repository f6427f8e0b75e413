package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// MemoryStore is an in-process store with the same commit semantics as
// PostgresStore. Used by tests and local runs without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]*domain.Job
	relations []*domain.TranslatorRelation
	logs      []domain.StatusTransitionLog
	users     map[string]*domain.User
	languages map[int64]string
	feedback  map[string][]int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]*domain.Job),
		users:     make(map[string]*domain.User),
		languages: make(map[int64]string),
		feedback:  make(map[string][]int),
	}
}

// AddUser registers or replaces a user
func (s *MemoryStore) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Languages = slices.Clone(u.Languages)
	s.users[u.ID] = &u
}

// AddLanguage registers a language name
func (s *MemoryStore) AddLanguage(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languages[id] = name
}

// AddFeedback records a customer rating for a job
func (s *MemoryStore) AddFeedback(jobID string, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[jobID] = append(s.feedback[jobID], rating)
}

// GetJob retrieves a copy of a job
func (s *MemoryStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "job", ID: id, Err: domain.ErrJobNotFound}
	}
	return job.Clone(), nil
}

// ListJobs returns one page of jobs matching filter, newest first, with one
// extra row when more exist
func (s *MemoryStore) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Job
	for _, job := range s.jobs {
		if s.matches(job, filter) {
			out = append(out, *job.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if filter.PageSize > 0 && len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}

func (s *MemoryStore) matches(job *domain.Job, f domain.JobFilter) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, job.ID) {
		return false
	}
	if f.CustomerID != "" && job.CustomerID != f.CustomerID {
		return false
	}
	if len(f.LanguageIDs) > 0 && !slices.Contains(f.LanguageIDs, job.FromLanguageID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, job.Status) {
		return false
	}
	if f.JobType != "" && job.JobType != f.JobType {
		return false
	}

	customer := s.users[job.CustomerID]
	if f.ConsumerType != "" && (customer == nil || customer.ConsumerType != f.ConsumerType) {
		return false
	}

	at := job.CreatedAt
	if f.TimeField == domain.TimeFieldDue {
		at = job.Due
	}
	if f.From != nil && at.Before(*f.From) {
		return false
	}
	if f.To != nil && at.After(*f.To) {
		return false
	}

	if f.CustomerEmail != "" {
		byOverride := job.UserEmail != nil && strings.EqualFold(*job.UserEmail, f.CustomerEmail)
		byAccount := customer != nil && strings.EqualFold(customer.Email, f.CustomerEmail)
		if !byOverride && !byAccount {
			return false
		}
	}

	if len(f.TranslatorEmails) > 0 && !s.hasTranslatorEmail(job.ID, f.TranslatorEmails) {
		return false
	}

	if f.TranslatorID != "" && !s.bookedOn(job.ID, f.TranslatorID) {
		return false
	}

	if f.LowFeedback && !slices.ContainsFunc(s.feedback[job.ID], func(r int) bool { return r <= 3 }) {
		return false
	}

	if f.Cursor != nil {
		if job.CreatedAt.After(f.Cursor.CreatedAt) {
			return false
		}
		if job.CreatedAt.Equal(f.Cursor.CreatedAt) && job.ID >= f.Cursor.JobID {
			return false
		}
	}

	return true
}

// bookedOn reports whether translatorID holds a relation on jobID that was
// not cancelled
func (s *MemoryStore) bookedOn(jobID, translatorID string) bool {
	for _, r := range s.relations {
		if r.JobID == jobID && r.TranslatorID == translatorID && r.CancelAt == nil {
			return true
		}
	}
	return false
}

func (s *MemoryStore) hasTranslatorEmail(jobID string, emails []string) bool {
	for _, r := range s.relations {
		if r.JobID != jobID || r.CancelAt != nil {
			continue
		}
		u := s.users[r.TranslatorID]
		if u == nil {
			continue
		}
		for _, e := range emails {
			if strings.EqualFold(u.Email, e) {
				return true
			}
		}
	}
	return false
}

// ActiveRelation returns the job's open translator relation, or nil
func (s *MemoryStore) ActiveRelation(_ context.Context, jobID string) (*domain.TranslatorRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r := s.activeLocked(jobID); r != nil {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (s *MemoryStore) activeLocked(jobID string) *domain.TranslatorRelation {
	for _, r := range s.relations {
		if r.JobID == jobID && r.Active() {
			return r
		}
	}
	return nil
}

// Relations returns every relation recorded for the job, oldest first
func (s *MemoryStore) Relations(_ context.Context, jobID string) ([]domain.TranslatorRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TranslatorRelation
	for _, r := range s.relations {
		if r.JobID == jobID {
			out = append(out, *r)
		}
	}
	return out, nil
}

// TransitionLogs returns the job's audit trail, oldest first
func (s *MemoryStore) TransitionLogs(_ context.Context, jobID string) ([]domain.StatusTransitionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StatusTransitionLog
	for _, l := range s.logs {
		if l.JobID == jobID {
			out = append(out, l)
		}
	}
	return out, nil
}

// HasBookingAt reports whether the translator actively holds another open
// job with exactly this due time
func (s *MemoryStore) HasBookingAt(_ context.Context, translatorID string, due time.Time, excludeJobID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.relations {
		if r.TranslatorID != translatorID || !r.Active() || r.JobID == excludeJobID {
			continue
		}
		job, ok := s.jobs[r.JobID]
		if ok && job.Status.Open() && job.Due.Equal(due) {
			return true, nil
		}
	}
	return false, nil
}

// Commit validates the whole unit before applying any part of it
func (s *MemoryStore) Commit(_ context.Context, uow domain.UnitOfWork) error {
	if uow.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if uow.NewJob != nil {
		if _, exists := s.jobs[uow.NewJob.ID]; exists {
			return fmt.Errorf("failed to insert job: duplicate id %s", uow.NewJob.ID)
		}
	}

	if uow.Job != nil {
		stored, ok := s.jobs[uow.Job.ID]
		if !ok {
			return &domain.NotFoundError{Entity: "job", ID: uow.Job.ID, Err: domain.ErrJobNotFound}
		}
		if uow.ExpectStatus != "" && stored.Status != uow.ExpectStatus {
			return domain.ErrStatusChanged
		}
	}

	closing := make(map[string]bool, len(uow.CloseRelations))
	for _, c := range uow.CloseRelations {
		r := s.relationLocked(c.RelationID)
		if r == nil || !r.Active() {
			return fmt.Errorf("relation %s already closed: %w", c.RelationID, domain.ErrStatusChanged)
		}
		closing[c.RelationID] = true
	}

	opening := make(map[string]bool)
	for _, r := range uow.OpenRelations {
		if !r.Active() {
			continue
		}
		if opening[r.JobID] {
			return domain.ErrActiveRelationExists
		}
		if cur := s.activeLocked(r.JobID); cur != nil && !closing[cur.ID] {
			return domain.ErrActiveRelationExists
		}
		opening[r.JobID] = true
	}

	if uow.NewJob != nil {
		s.jobs[uow.NewJob.ID] = uow.NewJob.Clone()
	}
	if uow.Job != nil {
		s.jobs[uow.Job.ID] = uow.Job.Clone()
	}
	for _, c := range uow.CloseRelations {
		c.Apply(s.relationLocked(c.RelationID))
	}
	for _, r := range uow.OpenRelations {
		rel := r
		s.relations = append(s.relations, &rel)
	}
	if uow.Log != nil {
		s.logs = append(s.logs, *uow.Log)
	}

	return nil
}

func (s *MemoryStore) relationLocked(id string) *domain.TranslatorRelation {
	for _, r := range s.relations {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// GetUser retrieves a copy of a user
func (s *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "user", ID: id, Err: domain.ErrUserNotFound}
	}
	c := *u
	c.Languages = slices.Clone(u.Languages)
	return &c, nil
}

// FindUserByEmail retrieves a user by case-insensitive email
func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	var id string
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			id = u.ID
			break
		}
	}
	s.mu.RUnlock()

	if id == "" {
		return nil, &domain.NotFoundError{Entity: "user", ID: email, Err: domain.ErrUserNotFound}
	}
	return s.GetUser(ctx, id)
}

// Translators lists translators interpreting languageID
func (s *MemoryStore) Translators(_ context.Context, languageID int64) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.User
	for _, u := range s.users {
		if u.IsTranslator() && u.SpeaksLanguage(languageID) {
			c := *u
			c.Languages = slices.Clone(u.Languages)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LanguageName resolves a language id to its display name
func (s *MemoryStore) LanguageName(_ context.Context, id int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.languages[id]
	if !ok {
		return "", &domain.NotFoundError{Entity: "language", ID: fmt.Sprint(id)}
	}
	return name, nil
}

// PushPreference loads a user's push choices
func (s *MemoryStore) PushPreference(_ context.Context, userID string) (notify.PushPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return notify.PushPreference{}, &domain.NotFoundError{Entity: "user", ID: userID, Err: domain.ErrUserNotFound}
	}
	return notify.PushPreference{Disabled: u.PushDisabled, NightMute: u.NightMute}, nil
}
