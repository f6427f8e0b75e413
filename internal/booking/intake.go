package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// BookingInput is a new booking request as submitted by a customer
type BookingInput struct {
	FromLanguageID       int64    `json:"from_language_id"`
	Immediate            bool     `json:"immediate"`
	DueDate              string   `json:"due_date"`
	DueTime              string   `json:"due_time"`
	CustomerPhoneType    bool     `json:"customer_phone_type"`
	CustomerPhysicalType bool     `json:"customer_physical_type"`
	Duration             int      `json:"duration"`
	JobFor               []string `json:"job_for"`
	ByAdmin              bool     `json:"by_admin"`
}

// Create validates and normalizes in and stores a new pending job for
// customer. Nothing is stored when validation fails.
func (s *Service) Create(ctx context.Context, customer *domain.User, in BookingInput) (*Result, error) {
	if customer == nil || !customer.IsCustomer() {
		return nil, domain.NewValidationError("", domain.CodeNotCustomer)
	}

	if in.FromLanguageID <= 0 {
		return nil, domain.NewValidationError("from_language_id", domain.CodeFieldsRequired)
	}
	if in.Duration <= 0 {
		return nil, domain.NewValidationError("duration", domain.CodeFieldsRequired)
	}

	now := s.clock.Now()
	job := &domain.Job{
		ID:                   newID(),
		CustomerID:           customer.ID,
		FromLanguageID:       in.FromLanguageID,
		JobType:              domain.JobTypeFor(customer.ConsumerType),
		Immediate:            in.Immediate,
		Status:               domain.StatusPending,
		Duration:             in.Duration,
		Gender:               domain.GenderFor(in.JobFor),
		Certification:        domain.CertificationFor(in.JobFor),
		CustomerPhoneType:    in.CustomerPhoneType,
		CustomerPhysicalType: in.CustomerPhysicalType,
		ByAdmin:              in.ByAdmin,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if in.Immediate {
		job.Due = now.Add(s.config.ImmediateLead)
		job.CustomerPhoneType = true
	} else {
		due, err := s.scheduledDue(in, now)
		if err != nil {
			return nil, err
		}
		job.Due = due
	}
	job.WillExpireAt = domain.WillExpireAt(job.Due, now)

	if err := s.store.Commit(ctx, domain.UnitOfWork{NewJob: job}); err != nil {
		return nil, domain.NewDependencyError("store booking", err)
	}

	s.logger.Info("Booking created",
		slog.String("job_id", job.ID),
		slog.String("customer_id", customer.ID),
		slog.Bool("immediate", job.Immediate),
		slog.String("job_type", string(job.JobType)),
	)

	res := s.success("", nil)
	res.JobID = job.ID
	res.Job = job
	return res, nil
}

func (s *Service) scheduledDue(in BookingInput, now time.Time) (time.Time, error) {
	switch {
	case strings.TrimSpace(in.DueDate) == "":
		return time.Time{}, domain.NewValidationError("due_date", domain.CodeFieldsRequired)
	case strings.TrimSpace(in.DueTime) == "":
		return time.Time{}, domain.NewValidationError("due_time", domain.CodeFieldsRequired)
	case !in.CustomerPhoneType && !in.CustomerPhysicalType:
		return time.Time{}, domain.NewValidationError("customer_phone_type", domain.CodeFieldsRequired)
	}

	raw := strings.TrimSpace(in.DueDate) + " " + strings.TrimSpace(in.DueTime)
	due, err := time.ParseInLocation(DueLayout, raw, s.config.Location)
	if err != nil {
		return time.Time{}, domain.NewValidationError("due_date", domain.CodeInvalidDueDate)
	}
	if !due.After(now) {
		return time.Time{}, domain.NewValidationError("due_date", domain.CodePastDueDate)
	}
	return due, nil
}
