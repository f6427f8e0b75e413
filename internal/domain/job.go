package domain

import (
	"time"
)

// Job is a single interpreter booking. It is the aggregate root for
// translator relations and transition logs.
type Job struct {
	ID             string  `db:"id" json:"id"`
	CustomerID     string  `db:"customer_id" json:"customer_id"`
	FromLanguageID int64   `db:"from_language_id" json:"from_language_id"`
	JobType        JobType `db:"job_type" json:"job_type"`
	Immediate      bool    `db:"immediate" json:"immediate"`
	Status         Status  `db:"status" json:"status"`

	Due          time.Time     `db:"due" json:"due"`
	Duration     int           `db:"duration" json:"duration"`
	WillExpireAt time.Time     `db:"will_expire_at" json:"will_expire_at"`
	WithdrawAt   *time.Time    `db:"withdraw_at" json:"withdraw_at,omitempty"`
	EndAt        *time.Time    `db:"end_at" json:"end_at,omitempty"`
	SessionTime  time.Duration `db:"session_time" json:"session_time"`

	Gender        Gender        `db:"gender" json:"gender"`
	Certification Certification `db:"certified" json:"certified"`

	CustomerPhoneType    bool `db:"customer_phone_type" json:"customer_phone_type"`
	CustomerPhysicalType bool `db:"customer_physical_type" json:"customer_physical_type"`

	AdminComments   string  `db:"admin_comments" json:"admin_comments"`
	Reference       string  `db:"reference" json:"reference"`
	Flagged         bool    `db:"flagged" json:"flagged"`
	ManuallyHandled bool    `db:"manually_handled" json:"manually_handled"`
	ByAdmin         bool    `db:"by_admin" json:"by_admin"`
	UserEmail       *string `db:"user_email" json:"user_email,omitempty"`

	Address      string `db:"address" json:"address"`
	Instructions string `db:"instructions" json:"instructions"`
	Town         string `db:"town" json:"town"`
	Distance     string `db:"distance" json:"distance"`
	TravelTime   string `db:"travel_time" json:"travel_time"`

	EmailSent       bool `db:"email_sent" json:"-"`
	Reminder16hSent bool `db:"reminder_16h_sent" json:"-"`
	Reminder48hSent bool `db:"reminder_48h_sent" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so callers can stage changes without touching the original
func (j *Job) Clone() *Job {
	c := *j
	c.WithdrawAt = cloneTime(j.WithdrawAt)
	c.EndAt = cloneTime(j.EndAt)
	if j.UserEmail != nil {
		email := *j.UserEmail
		c.UserEmail = &email
	}
	return &c
}

// PastDue reports whether the session start has passed at now
func (j *Job) PastDue(now time.Time) bool {
	return !j.Due.After(now)
}

// ContactEmail returns the customer contact override when set, else fallback
func (j *Job) ContactEmail(fallback string) string {
	if j.UserEmail != nil && *j.UserEmail != "" {
		return *j.UserEmail
	}
	return fallback
}

// PhysicalOnly reports whether the booking requires an on-site interpreter
func (j *Job) PhysicalOnly() bool {
	return j.CustomerPhysicalType && !j.CustomerPhoneType
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
