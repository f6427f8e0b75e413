package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const jobColumns = `id, customer_id, from_language_id, job_type, immediate, status,
	due, duration, will_expire_at, withdraw_at, end_at, session_time,
	gender, certified, customer_phone_type, customer_physical_type,
	admin_comments, reference, flagged, manually_handled, by_admin, user_email,
	address, instructions, town, distance, travel_time,
	email_sent, reminder_16h_sent, reminder_48h_sent, created_at, updated_at`

const relationColumns = `id, job_id, translator_id, created_at, cancel_at, completed_at, completed_by`

var userFields = []string{
	"id", "name", "email", "phone", "role",
	"consumer_type", "customer_type", "city", "address", "instructions",
	"translator_type", "translator_level", "gender", "push_disabled", "night_mute",
}

func userColumns(prefix string) string {
	cols := make([]string, len(userFields))
	for i, f := range userFields {
		cols[i] = prefix + f
	}
	return strings.Join(cols, ", ")
}

// PostgresStore persists jobs, translator relations, transition logs and
// the user directory in PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// GetJob retrieves a job by id
func (s *PostgresStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	if err := s.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "job", ID: id, Err: domain.ErrJobNotFound}
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ListJobs returns one page of jobs matching filter, newest first. It fetches
// one row more than the page size so callers can tell whether more exist.
func (s *PostgresStore) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", argIdx)
		args = append(args, pq.Array(filter.IDs))
		argIdx++
	}

	if filter.CustomerID != "" {
		query += fmt.Sprintf(" AND customer_id = $%d", argIdx)
		args = append(args, filter.CustomerID)
		argIdx++
	}

	if len(filter.LanguageIDs) > 0 {
		query += fmt.Sprintf(" AND from_language_id = ANY($%d)", argIdx)
		args = append(args, pq.Array(filter.LanguageIDs))
		argIdx++
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		query += fmt.Sprintf(" AND status = ANY($%d)", argIdx)
		args = append(args, pq.Array(statuses))
		argIdx++
	}

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, string(filter.JobType))
		argIdx++
	}

	if filter.ConsumerType != "" {
		query += fmt.Sprintf(" AND customer_id IN (SELECT id FROM users WHERE consumer_type = $%d)", argIdx)
		args = append(args, filter.ConsumerType)
		argIdx++
	}

	timeColumn := "created_at"
	if filter.TimeField == domain.TimeFieldDue {
		timeColumn = "due"
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND %s >= $%d", timeColumn, argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND %s <= $%d", timeColumn, argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	if filter.CustomerEmail != "" {
		query += fmt.Sprintf(" AND (LOWER(user_email) = LOWER($%d) OR customer_id IN (SELECT id FROM users WHERE LOWER(email) = LOWER($%d)))", argIdx, argIdx)
		args = append(args, filter.CustomerEmail)
		argIdx++
	}

	if len(filter.TranslatorEmails) > 0 {
		emails := make([]string, len(filter.TranslatorEmails))
		for i, e := range filter.TranslatorEmails {
			emails[i] = strings.ToLower(e)
		}
		query += fmt.Sprintf(` AND id IN (
			SELECT r.job_id FROM translator_relations r
			JOIN users u ON u.id = r.translator_id
			WHERE r.cancel_at IS NULL AND LOWER(u.email) = ANY($%d))`, argIdx)
		args = append(args, pq.Array(emails))
		argIdx++
	}

	if filter.TranslatorID != "" {
		query += fmt.Sprintf(" AND id IN (SELECT job_id FROM translator_relations WHERE cancel_at IS NULL AND translator_id = $%d)", argIdx)
		args = append(args, filter.TranslatorID)
		argIdx++
	}

	if filter.LowFeedback {
		query += " AND EXISTS (SELECT 1 FROM job_feedback f WHERE f.job_id = jobs.id AND f.rating <= 3)"
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, id DESC for consistent pagination
	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// ActiveRelation returns the job's open translator relation, or nil
func (s *PostgresStore) ActiveRelation(ctx context.Context, jobID string) (*domain.TranslatorRelation, error) {
	var rel domain.TranslatorRelation
	query := `SELECT ` + relationColumns + ` FROM translator_relations
		WHERE job_id = $1 AND cancel_at IS NULL AND completed_at IS NULL`

	if err := s.db.GetContext(ctx, &rel, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active relation: %w", err)
	}

	return &rel, nil
}

// Relations returns every relation recorded for the job, oldest first
func (s *PostgresStore) Relations(ctx context.Context, jobID string) ([]domain.TranslatorRelation, error) {
	var rels []domain.TranslatorRelation
	query := `SELECT ` + relationColumns + ` FROM translator_relations
		WHERE job_id = $1 ORDER BY created_at, id`

	if err := s.db.SelectContext(ctx, &rels, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}

	return rels, nil
}

// TransitionLogs returns the job's audit trail, oldest first
func (s *PostgresStore) TransitionLogs(ctx context.Context, jobID string) ([]domain.StatusTransitionLog, error) {
	var logs []domain.StatusTransitionLog
	query := `SELECT id, job_id, actor_user_id, old_status, new_status, changes, created_at
		FROM status_transition_logs WHERE job_id = $1 ORDER BY created_at, id`

	if err := s.db.SelectContext(ctx, &logs, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list transition logs: %w", err)
	}

	return logs, nil
}

// HasBookingAt reports whether the translator actively holds another open
// job with exactly this due time
func (s *PostgresStore) HasBookingAt(ctx context.Context, translatorID string, due time.Time, excludeJobID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM translator_relations r
		JOIN jobs j ON j.id = r.job_id
		WHERE r.translator_id = $1
		  AND r.cancel_at IS NULL AND r.completed_at IS NULL
		  AND j.due = $2
		  AND j.id <> $3
		  AND j.status = ANY($4)
	)`

	open := pq.Array([]string{string(domain.StatusPending), string(domain.StatusAssigned), string(domain.StatusStarted)})

	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, translatorID, due, excludeJobID, open); err != nil {
		return false, fmt.Errorf("failed to check translator bookings: %w", err)
	}

	return exists, nil
}

// Commit applies a unit of work in a single transaction
func (s *PostgresStore) Commit(ctx context.Context, uow domain.UnitOfWork) error {
	if uow.Empty() {
		return nil
	}

	err := postgresql.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if uow.NewJob != nil {
			if err := insertJob(ctx, tx, uow.NewJob); err != nil {
				return err
			}
		}

		if uow.Job != nil {
			if err := updateJob(ctx, tx, uow.Job, uow.ExpectStatus); err != nil {
				return err
			}
		}

		for _, c := range uow.CloseRelations {
			if err := closeRelation(ctx, tx, c); err != nil {
				return err
			}
		}

		for _, r := range uow.OpenRelations {
			if err := insertRelation(ctx, tx, r); err != nil {
				return err
			}
		}

		if uow.Log != nil {
			if err := insertLog(ctx, tx, uow.Log); err != nil {
				return err
			}
		}

		return nil
	})

	if errors.Is(err, domain.ErrStatusChanged) || errors.Is(err, domain.ErrActiveRelationExists) {
		jobID := ""
		if uow.Job != nil {
			jobID = uow.Job.ID
		}
		s.logger.Warn("Guarded write rejected - job changed concurrently",
			slog.String("job_id", jobID),
			slog.String("expect_status", string(uow.ExpectStatus)),
			slog.String("error", err.Error()),
		)
	}

	return err
}

func insertJob(ctx context.Context, tx *sqlx.Tx, job *domain.Job) error {
	query := `INSERT INTO jobs (` + jobColumns + `) VALUES (
		:id, :customer_id, :from_language_id, :job_type, :immediate, :status,
		:due, :duration, :will_expire_at, :withdraw_at, :end_at, :session_time,
		:gender, :certified, :customer_phone_type, :customer_physical_type,
		:admin_comments, :reference, :flagged, :manually_handled, :by_admin, :user_email,
		:address, :instructions, :town, :distance, :travel_time,
		:email_sent, :reminder_16h_sent, :reminder_48h_sent, :created_at, :updated_at
	)`

	if _, err := tx.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func updateJob(ctx context.Context, tx *sqlx.Tx, job *domain.Job, expect domain.Status) error {
	query := `
		UPDATE jobs
		SET from_language_id = $2, status = $3, due = $4, duration = $5,
		    will_expire_at = $6, withdraw_at = $7, end_at = $8, session_time = $9,
		    gender = $10, certified = $11, customer_phone_type = $12, customer_physical_type = $13,
		    admin_comments = $14, reference = $15, flagged = $16, manually_handled = $17,
		    by_admin = $18, user_email = $19, address = $20, instructions = $21, town = $22,
		    distance = $23, travel_time = $24, email_sent = $25, reminder_16h_sent = $26,
		    reminder_48h_sent = $27, created_at = $28, updated_at = $29
		WHERE id = $1
	`
	args := []interface{}{
		job.ID, job.FromLanguageID, job.Status, job.Due, job.Duration,
		job.WillExpireAt, job.WithdrawAt, job.EndAt, job.SessionTime,
		job.Gender, job.Certification, job.CustomerPhoneType, job.CustomerPhysicalType,
		job.AdminComments, job.Reference, job.Flagged, job.ManuallyHandled,
		job.ByAdmin, job.UserEmail, job.Address, job.Instructions, job.Town,
		job.Distance, job.TravelTime, job.EmailSent, job.Reminder16hSent,
		job.Reminder48hSent, job.CreatedAt, job.UpdatedAt,
	}
	if expect != "" {
		query += " AND status = $30"
		args = append(args, expect)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if expect != "" {
			return domain.ErrStatusChanged
		}
		return &domain.NotFoundError{Entity: "job", ID: job.ID, Err: domain.ErrJobNotFound}
	}

	return nil
}

func closeRelation(ctx context.Context, tx *sqlx.Tx, c domain.RelationClose) error {
	query := `
		UPDATE translator_relations
		SET cancel_at = COALESCE($2, cancel_at),
		    completed_at = COALESCE($3, completed_at),
		    completed_by = COALESCE($4, completed_by)
		WHERE id = $1 AND cancel_at IS NULL AND completed_at IS NULL
	`

	result, err := tx.ExecContext(ctx, query, c.RelationID, c.CancelAt, c.CompletedAt, c.CompletedBy)
	if err != nil {
		return fmt.Errorf("failed to close relation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("relation %s already closed: %w", c.RelationID, domain.ErrStatusChanged)
	}

	return nil
}

func insertRelation(ctx context.Context, tx *sqlx.Tx, r domain.TranslatorRelation) error {
	query := `INSERT INTO translator_relations (` + relationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.ExecContext(ctx, query, r.ID, r.JobID, r.TranslatorID, r.CreatedAt, r.CancelAt, r.CompletedAt, r.CompletedBy)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrActiveRelationExists
		}
		return fmt.Errorf("failed to insert relation: %w", err)
	}

	return nil
}

func insertLog(ctx context.Context, tx *sqlx.Tx, l *domain.StatusTransitionLog) error {
	query := `
		INSERT INTO status_transition_logs (id, job_id, actor_user_id, old_status, new_status, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query, l.ID, l.JobID, l.ActorUserID, l.OldStatus, l.NewStatus, l.Changes, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transition log: %w", err)
	}

	return nil
}

// GetUser retrieves a user and the languages they interpret
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns("")+` FROM users WHERE id = $1`, id)
}

// FindUserByEmail retrieves a user by case-insensitive email
func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns("")+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, key string) (*domain.User, error) {
	var user domain.User
	if err := s.db.GetContext(ctx, &user, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "user", ID: key, Err: domain.ErrUserNotFound}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	langQuery := `SELECT language_id FROM user_languages WHERE user_id = $1 ORDER BY language_id`
	if err := s.db.SelectContext(ctx, &user.Languages, langQuery, user.ID); err != nil {
		return nil, fmt.Errorf("failed to get user languages: %w", err)
	}

	return &user, nil
}

// Translators lists translators interpreting languageID, with all their languages
func (s *PostgresStore) Translators(ctx context.Context, languageID int64) ([]domain.User, error) {
	query := `SELECT ` + userColumns("u.") + ` FROM users u
		JOIN user_languages ul ON ul.user_id = u.id
		WHERE u.role = $1 AND ul.language_id = $2
		ORDER BY u.id`

	var users []domain.User
	if err := s.db.SelectContext(ctx, &users, query, domain.RoleTranslator, languageID); err != nil {
		return nil, fmt.Errorf("failed to list translators: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	var rows []struct {
		UserID     string `db:"user_id"`
		LanguageID int64  `db:"language_id"`
	}
	langQuery := `SELECT user_id, language_id FROM user_languages WHERE user_id = ANY($1) ORDER BY user_id, language_id`
	if err := s.db.SelectContext(ctx, &rows, langQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get translator languages: %w", err)
	}

	byUser := make(map[string][]int64, len(users))
	for _, r := range rows {
		byUser[r.UserID] = append(byUser[r.UserID], r.LanguageID)
	}
	for i := range users {
		users[i].Languages = byUser[users[i].ID]
	}

	return users, nil
}

// LanguageName resolves a language id to its display name
func (s *PostgresStore) LanguageName(ctx context.Context, id int64) (string, error) {
	var name string
	if err := s.db.GetContext(ctx, &name, `SELECT name FROM languages WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &domain.NotFoundError{Entity: "language", ID: fmt.Sprint(id)}
		}
		return "", fmt.Errorf("failed to get language: %w", err)
	}
	return name, nil
}

// PushPreference loads a user's stored push choices
func (s *PostgresStore) PushPreference(ctx context.Context, userID string) (notify.PushPreference, error) {
	var row struct {
		PushDisabled bool `db:"push_disabled"`
		NightMute    bool `db:"night_mute"`
	}

	query := `SELECT push_disabled, night_mute FROM users WHERE id = $1`
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notify.PushPreference{}, &domain.NotFoundError{Entity: "user", ID: userID, Err: domain.ErrUserNotFound}
		}
		return notify.PushPreference{}, fmt.Errorf("failed to get push preference: %w", err)
	}

	return notify.PushPreference{Disabled: row.PushDisabled, NightMute: row.NightMute}, nil
}
