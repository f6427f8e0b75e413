package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// Assignment manages the relation between a job and its translators over
// time. A job has at most one active relation; reassignment always closes
// the current one and opens a new one rather than editing it.
type Assignment struct {
	store     Store
	directory Directory
	logger    *slog.Logger
}

// NewAssignment creates a new Assignment
func NewAssignment(store Store, directory Directory, logger *slog.Logger) *Assignment {
	return &Assignment{
		store:     store,
		directory: directory,
		logger:    logger,
	}
}

// CurrentActive returns the job's active relation, or nil when no
// translator holds the job
func (a *Assignment) CurrentActive(ctx context.Context, jobID string) (*domain.TranslatorRelation, error) {
	rel, err := a.store.ActiveRelation(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load active translator", err)
	}
	return rel, nil
}

// Close cancels rel at now
func (a *Assignment) Close(rel *domain.TranslatorRelation, now time.Time) domain.RelationClose {
	at := now
	return domain.RelationClose{RelationID: rel.ID, CancelAt: &at}
}

// Complete closes rel as carried out, attributed to completedBy
func (a *Assignment) Complete(rel *domain.TranslatorRelation, now time.Time, completedBy string) domain.RelationClose {
	at := now
	by := completedBy
	return domain.RelationClose{RelationID: rel.ID, CompletedAt: &at, CompletedBy: &by}
}

// CreateActive builds a new active relation for translatorID
func (a *Assignment) CreateActive(jobID, translatorID string, now time.Time) domain.TranslatorRelation {
	return domain.TranslatorRelation{
		ID:           newID(),
		JobID:        jobID,
		TranslatorID: translatorID,
		CreatedAt:    now,
	}
}

// History returns every relation the job has had, oldest first
func (a *Assignment) History(ctx context.Context, jobID string) ([]domain.TranslatorRelation, error) {
	rels, err := a.store.Relations(ctx, jobID)
	if err != nil {
		return nil, domain.NewDependencyError("load translator history", err)
	}
	return rels, nil
}

// translatorChange is the staged outcome of a reassignment request
type translatorChange struct {
	Changed  bool
	Previous *domain.TranslatorRelation
	Next     *domain.TranslatorRelation
	Close    []domain.RelationClose
	Open     []domain.TranslatorRelation
	Change   domain.Change
}

// planChange works out whether a requested translator replaces current. An
// email that resolves to no user is logged and treated as no request.
func (a *Assignment) planChange(ctx context.Context, jobID string, current *domain.TranslatorRelation, translatorID, translatorEmail *string, now time.Time) (translatorChange, error) {
	var none translatorChange

	id := deref(translatorID)
	email := deref(translatorEmail)
	if id == "" && email == "" {
		return none, nil
	}

	next, err := a.resolveTranslator(ctx, id, email)
	if err != nil {
		return none, err
	}
	if next == nil {
		return none, nil
	}

	if current != nil && current.TranslatorID == next.ID {
		return none, nil
	}

	plan := translatorChange{Changed: true, Change: domain.Change{New: next.Email}}
	if current != nil {
		plan.Previous = current
		plan.Close = []domain.RelationClose{a.Close(current, now)}
		plan.Change.Old = a.email(ctx, current.TranslatorID)
	}

	rel := a.CreateActive(jobID, next.ID, now)
	plan.Open = []domain.TranslatorRelation{rel}
	plan.Next = &plan.Open[0]

	return plan, nil
}

func (a *Assignment) resolveTranslator(ctx context.Context, id, email string) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	if email != "" {
		user, err = a.directory.FindUserByEmail(ctx, email)
	} else {
		user, err = a.directory.GetUser(ctx, id)
	}

	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			a.logger.Error("Translator not found, keeping current assignment",
				slog.String("translator_id", id),
				slog.String("translator_email", email),
			)
			return nil, nil
		}
		return nil, domain.NewDependencyError("resolve translator", err)
	}

	if !user.IsTranslator() {
		a.logger.Error("Requested user is not a translator, keeping current assignment",
			slog.String("user_id", user.ID),
		)
		return nil, nil
	}

	return user, nil
}

func (a *Assignment) email(ctx context.Context, userID string) string {
	u, err := a.directory.GetUser(ctx, userID)
	if err != nil {
		return userID
	}
	return u.Email
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
