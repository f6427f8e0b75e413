package booking

import (
	"context"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// Store persists jobs, their translator relations and transition logs.
// Every write goes through Commit so status, relation and log changes of one
// operation land together or not at all.
type Store interface {
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
	ActiveRelation(ctx context.Context, jobID string) (*domain.TranslatorRelation, error)
	Relations(ctx context.Context, jobID string) ([]domain.TranslatorRelation, error)
	TransitionLogs(ctx context.Context, jobID string) ([]domain.StatusTransitionLog, error)
	HasBookingAt(ctx context.Context, translatorID string, due time.Time, excludeJobID string) (bool, error)
	Commit(ctx context.Context, uow domain.UnitOfWork) error
}

// Directory resolves users and language names
type Directory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	LanguageName(ctx context.Context, id int64) (string, error)
}
