package domain

import "time"

// UnitOfWork is everything one lifecycle operation writes. A store applies it
// atomically: either every part commits or none does.
type UnitOfWork struct {
	// Job is saved when set. When ExpectStatus is non-empty the save only
	// succeeds if the stored status still equals it (ErrStatusChanged otherwise).
	Job          *Job
	ExpectStatus Status

	// NewJob is inserted when set
	NewJob *Job

	CloseRelations []RelationClose
	OpenRelations  []TranslatorRelation

	Log *StatusTransitionLog
}

// Empty reports whether the unit carries no writes
func (u *UnitOfWork) Empty() bool {
	return u.Job == nil && u.NewJob == nil && len(u.CloseRelations) == 0 &&
		len(u.OpenRelations) == 0 && u.Log == nil
}

// TimeField selects which timestamp a date range filter applies to
type TimeField string

const (
	TimeFieldCreated TimeField = "created"
	TimeFieldDue     TimeField = "due"
)

// JobFilter is the admin listing filter contract
type JobFilter struct {
	IDs              []string
	CustomerID       string
	LanguageIDs      []int64
	Statuses         []Status
	JobType          JobType
	ConsumerType     string
	TimeField        TimeField
	From             *time.Time
	To               *time.Time
	CustomerEmail    string
	TranslatorEmails []string
	TranslatorID     string
	LowFeedback      bool
	PageSize         int
	Cursor           *JobCursor
}

// JobCursor marks the last row of a listing page
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}
