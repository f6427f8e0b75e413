package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/google/uuid"
)

// Envelope kinds
const (
	KindEmail     = "email"
	KindPush      = "push"
	KindSMS       = "sms"
	KindBroadcast = "broadcast"
	KindEvent     = "event"
)

// ContentTypeJSON is the content type of published envelopes
const ContentTypeJSON = "application/json"

// Envelope is the wire form of a notification on the queue. Exactly one of
// the payload fields is set, matching Kind.
type Envelope struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	CreatedAt time.Time     `json:"created_at"`
	Attempt   int           `json:"attempt,omitempty"`
	Email     *EmailMessage `json:"email,omitempty"`
	Push      *PushMessage  `json:"push,omitempty"`
	SMS       *SMSMessage   `json:"sms,omitempty"`
	Broadcast *Broadcast    `json:"broadcast,omitempty"`
	Event     *Event        `json:"event,omitempty"`
}

// Validate checks that the payload matches Kind
func (e *Envelope) Validate() error {
	var ok bool
	switch e.Kind {
	case KindEmail:
		ok = e.Email != nil
	case KindPush:
		ok = e.Push != nil
	case KindSMS:
		ok = e.SMS != nil
	case KindBroadcast:
		ok = e.Broadcast != nil
	case KindEvent:
		ok = e.Event != nil
	default:
		return fmt.Errorf("unknown envelope kind %q", e.Kind)
	}
	if !ok {
		return fmt.Errorf("envelope %s has no %s payload", e.ID, e.Kind)
	}
	return nil
}

// DecodeEnvelope parses and validates a queued envelope
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Publisher puts a message body on the broker
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// QueueGateway implements Gateway by publishing envelopes for the
// notification worker
type QueueGateway struct {
	publisher Publisher
	clock     Clock
	logger    *slog.Logger
}

// NewQueueGateway creates a QueueGateway
func NewQueueGateway(publisher Publisher, clock Clock, logger *slog.Logger) *QueueGateway {
	return &QueueGateway{
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// SendEmail queues an email
func (g *QueueGateway) SendEmail(ctx context.Context, msg EmailMessage) error {
	return g.publish(ctx, Envelope{Kind: KindEmail, Email: &msg})
}

// SendPush queues a push notification
func (g *QueueGateway) SendPush(ctx context.Context, msg PushMessage) error {
	return g.publish(ctx, Envelope{Kind: KindPush, Push: &msg})
}

// SendSMS queues a text message
func (g *QueueGateway) SendSMS(ctx context.Context, msg SMSMessage) error {
	return g.publish(ctx, Envelope{Kind: KindSMS, SMS: &msg})
}

// Broadcast queues a fan-out to eligible translators
func (g *QueueGateway) Broadcast(ctx context.Context, msg Broadcast) error {
	return g.publish(ctx, Envelope{Kind: KindBroadcast, Broadcast: &msg})
}

// Emit queues a domain event
func (g *QueueGateway) Emit(ctx context.Context, ev Event) error {
	return g.publish(ctx, Envelope{Kind: KindEvent, Event: &ev})
}

func (g *QueueGateway) publish(ctx context.Context, env Envelope) error {
	env.ID = uuid.New().String()
	env.CreatedAt = g.clock.Now()

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", env.Kind, err)
	}

	if err := g.publisher.PublishWithRetry(ctx, body, ContentTypeJSON); err != nil {
		return fmt.Errorf("failed to publish %s envelope: %w", env.Kind, err)
	}

	g.logger.Debug("Notification queued",
		logger.EnvelopeID(env.ID),
		logger.Kind(env.Kind),
	)
	return nil
}
