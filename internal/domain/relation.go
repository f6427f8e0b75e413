package domain

import "time"

// TranslatorRelation links a job to a translator for a bounded period.
// A relation with neither CancelAt nor CompletedAt set is the job's
// current active translator; at most one such relation exists per job.
type TranslatorRelation struct {
	ID           string     `db:"id" json:"id"`
	JobID        string     `db:"job_id" json:"job_id"`
	TranslatorID string     `db:"translator_id" json:"translator_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	CancelAt     *time.Time `db:"cancel_at" json:"cancel_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy  *string    `db:"completed_by" json:"completed_by,omitempty"`
}

// Active reports whether the relation is still open
func (r *TranslatorRelation) Active() bool {
	return r.CancelAt == nil && r.CompletedAt == nil
}

// RelationClose describes how an open relation is closed inside a unit of work.
// Exactly one of CancelAt or CompletedAt is expected to be set.
type RelationClose struct {
	RelationID  string
	CancelAt    *time.Time
	CompletedAt *time.Time
	CompletedBy *string
}

// Apply stamps the close onto r
func (c RelationClose) Apply(r *TranslatorRelation) {
	if c.CancelAt != nil {
		r.CancelAt = cloneTime(c.CancelAt)
	}
	if c.CompletedAt != nil {
		r.CompletedAt = cloneTime(c.CompletedAt)
	}
	if c.CompletedBy != nil {
		by := *c.CompletedBy
		r.CompletedBy = &by
	}
}
