package notify

import (
	"slices"
	"time"
)

// Email templates referenced by the booking engine
const (
	TemplateJobCreated                   = "job-created"
	TemplateJobAccepted                  = "job-accepted"
	TemplateJobChangedDate               = "job-changed-date"
	TemplateJobChangedTranslatorCustomer = "job-changed-translator-customer"
	TemplateJobChangedTranslatorOld      = "job-changed-translator-old-translator"
	TemplateJobChangedTranslatorNew      = "job-changed-translator-new-translator"
	TemplateJobChangedLang               = "job-changed-lang"
	TemplateJobCancelTranslator          = "job-cancel-translator"
	TemplateStatusChangedCustomer        = "status-changed-from-pending-or-assigned-customer"
	TemplateStatusChangedTranslator      = "status-changed-from-pending-or-assigned-translator"
	TemplateSessionEnded                 = "session-ended"
	TemplateJobChangeStatusToCustomer    = "job-change-status-to-customer"
)

// Push kinds carried in the payload so clients can route the tap
const (
	PushKindJobAccepted         = "job_accepted"
	PushKindJobCancelled        = "job_cancelled"
	PushKindSessionReminder     = "session_start_remind"
	PushKindSuitableJob         = "suitable_job"
	PushKindTranslatorCancelled = "translator_cancelled"
)

// Broadcast channels
const (
	ChannelPush = "push"
	ChannelSMS  = "sms"
)

// Domain events
const (
	EventJobCreated   = "job_created"
	EventJobCancelled = "job_cancelled"
	EventSessionEnded = "session_ended"
)

// NotificationContext is the data a template renders. It is passed by value
// and every send gets its own copy.
type NotificationContext struct {
	JobID        string    `json:"job_id"`
	Language     string    `json:"language"`
	Duration     int       `json:"duration"`
	Due          time.Time `json:"due"`
	DueText      string    `json:"due_text"`
	Immediate    bool      `json:"immediate"`
	JobFor       []string  `json:"job_for,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
	Recipient    string    `json:"recipient,omitempty"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	SessionTime  string    `json:"session_time,omitempty"`
	ForText      string    `json:"for_text,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// For returns a copy of c addressed to name
func (c NotificationContext) For(name string) NotificationContext {
	c.JobFor = slices.Clone(c.JobFor)
	c.Recipient = name
	return c
}

// WithChange returns a copy of c carrying an old/new pair
func (c NotificationContext) WithChange(old, new string) NotificationContext {
	c.JobFor = slices.Clone(c.JobFor)
	c.OldValue = old
	c.NewValue = new
	return c
}

// WithSession returns a copy of c carrying the session summary
func (c NotificationContext) WithSession(sessionTime, forText string) NotificationContext {
	c.JobFor = slices.Clone(c.JobFor)
	c.SessionTime = sessionTime
	c.ForText = forText
	return c
}

// Recipient identifies a single addressee
type Recipient struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// EmailMessage is a templated email for one recipient
type EmailMessage struct {
	Template string              `json:"template"`
	To       Recipient           `json:"to"`
	Subject  string              `json:"subject"`
	Context  NotificationContext `json:"context"`
}

// PushMessage is a push notification for a fixed set of users
type PushMessage struct {
	UserIDs []string            `json:"user_ids"`
	JobID   string              `json:"job_id"`
	Kind    string              `json:"kind"`
	Text    string              `json:"text"`
	Delay   bool                `json:"delay"`
	Context NotificationContext `json:"context"`
}

// NewPush builds a push message owning its own copies of userIDs and nc.
// The recipient set on nc is kept.
func NewPush(userIDs []string, jobID, kind, text string, nc NotificationContext) PushMessage {
	return PushMessage{
		UserIDs: slices.Clone(userIDs),
		JobID:   jobID,
		Kind:    kind,
		Text:    text,
		Context: nc.For(nc.Recipient),
	}
}

// SMSMessage is a text message to one phone number
type SMSMessage struct {
	To    Recipient `json:"to"`
	JobID string    `json:"job_id"`
	Text  string    `json:"text"`
}

// Broadcast offers a job to every eligible translator. Expansion to
// concrete recipients happens downstream of the gateway. A non-empty Only
// narrows the eligible set to those user ids.
type Broadcast struct {
	JobID   string              `json:"job_id"`
	Channel string              `json:"channel"`
	Text    string              `json:"text"`
	Exclude []string            `json:"exclude,omitempty"`
	Only    []string            `json:"only,omitempty"`
	Context NotificationContext `json:"context"`
}

// Event is a domain event published alongside notifications
type Event struct {
	Name              string    `json:"name"`
	JobID             string    `json:"job_id"`
	ActorUserID       string    `json:"actor_user_id"`
	CounterpartUserID string    `json:"counterpart_user_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}
