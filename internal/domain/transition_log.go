package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Change keys recorded in a transition log
const (
	ChangeTranslator = "translator"
	ChangeDue        = "due"
	ChangeLanguage   = "language"
	ChangeStatus     = "status"
)

// Change is a single old/new pair
type Change struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Changes aggregates every facet diff detected by one operation
type Changes map[string]Change

// Value implements driver.Valuer so Changes is stored as JSONB
func (c Changes) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *Changes) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = Changes{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported changes type %T", src)
	}
	return json.Unmarshal(data, c)
}

// StatusTransitionLog is an append-only audit record
type StatusTransitionLog struct {
	ID          string    `db:"id" json:"id"`
	JobID       string    `db:"job_id" json:"job_id"`
	ActorUserID string    `db:"actor_user_id" json:"actor_user_id"`
	OldStatus   Status    `db:"old_status" json:"old_status"`
	NewStatus   Status    `db:"new_status" json:"new_status"`
	Changes     Changes   `db:"changes" json:"changes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
