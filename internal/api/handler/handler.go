package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking"
	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
)

// UserResolver loads the account behind a request
type UserResolver interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// HealthCheck reports whether a backing service is reachable
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Service      *booking.Service
	Users        UserResolver
	Catalog      *messages.Catalog
	ServiceName  string
	HealthChecks map[string]HealthCheck
}

// JobHandler handles booking-related HTTP requests
type JobHandler struct {
	logger  *slog.Logger
	service *booking.Service
	catalog *messages.Catalog
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = messages.New(messages.LocaleSwedish)
	}
	return &JobHandler{
		logger:  deps.Logger,
		service: deps.Service,
		catalog: catalog,
	}
}
