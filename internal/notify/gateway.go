// Package notify defines how the booking engine talks to customers and
// translators: outbound messages, the gateway that carries them and the
// per-user push preferences that gate them.
package notify

import (
	"context"
)

// Gateway carries outbound notifications. Implementations must not block on
// the final provider; a failed call means the message was not accepted for
// delivery at all.
type Gateway interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
	SendPush(ctx context.Context, msg PushMessage) error
	SendSMS(ctx context.Context, msg SMSMessage) error
	Broadcast(ctx context.Context, msg Broadcast) error
	Emit(ctx context.Context, ev Event) error
}

// Preferences answers per-user push policy questions
type Preferences interface {
	NeedsPush(ctx context.Context, userID string) (bool, error)
	DelayPush(ctx context.Context, userID string) (bool, error)
}
