// Package booking is the job lifecycle engine: booking intake, the status
// state machine, translator assignment and the notifications each
// transition triggers.
package booking

import (
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/google/uuid"
)

// DueLayout is the layout of the due date and time fields of a booking
// request, joined by a single space
const DueLayout = "01/02/2006 15:04"

// displayLayout renders due times in notifications and log diffs
const displayLayout = "2006-01-02 15:04"

// Config holds the engine policies that vary per deployment
type Config struct {
	// Location interprets booking dates and renders due times
	Location *time.Location

	// ImmediateLead is how far ahead an immediate booking is due
	ImmediateLead time.Duration

	// CancelWindow is the notice a translator must give to cancel in the
	// app, and the boundary between the two customer withdraw statuses
	CancelWindow time.Duration

	// SupportPhone is quoted to translators who must cancel by phone
	SupportPhone string
}

// DefaultConfig returns the production policies
func DefaultConfig() Config {
	return Config{
		Location:      time.UTC,
		ImmediateLead: 5 * time.Minute,
		CancelWindow:  24 * time.Hour,
		SupportPhone:  "+46 73 75 86 865",
	}
}

// Dependencies holds all collaborators the engine needs
type Dependencies struct {
	Store       Store
	Directory   Directory
	Gateway     notify.Gateway
	Preferences notify.Preferences
	Clock       domain.Clock
	Catalog     *messages.Catalog
	Logger      *slog.Logger
	Config      Config
}

// Service handles every booking operation. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	store       Store
	directory   Directory
	gateway     notify.Gateway
	preferences notify.Preferences
	clock       domain.Clock
	catalog     *messages.Catalog
	logger      *slog.Logger
	config      Config
	assignment  *Assignment
}

// NewService creates a new Service instance
func NewService(deps *Dependencies) *Service {
	cfg := deps.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ImmediateLead <= 0 {
		cfg.ImmediateLead = 5 * time.Minute
	}
	if cfg.CancelWindow <= 0 {
		cfg.CancelWindow = 24 * time.Hour
	}

	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}

	catalog := deps.Catalog
	if catalog == nil {
		catalog = messages.New(messages.LocaleSwedish)
	}

	return &Service{
		store:       deps.Store,
		directory:   deps.Directory,
		gateway:     deps.Gateway,
		preferences: deps.Preferences,
		clock:       clock,
		catalog:     catalog,
		logger:      deps.Logger,
		config:      cfg,
		assignment:  NewAssignment(deps.Store, deps.Directory, deps.Logger),
	}
}

// Assignment exposes the translator relation manager
func (s *Service) Assignment() *Assignment {
	return s.assignment
}

func (s *Service) formatDue(t time.Time) string {
	return t.In(s.config.Location).Format(displayLayout)
}

func newID() string {
	return uuid.New().String()
}

func newLog(jobID, actorID string, from, to domain.Status, changes domain.Changes, now time.Time) *domain.StatusTransitionLog {
	return &domain.StatusTransitionLog{
		ID:          newID(),
		JobID:       jobID,
		ActorUserID: actorID,
		OldStatus:   from,
		NewStatus:   to,
		Changes:     changes,
		CreatedAt:   now,
	}
}
