package notify

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/shared/logger"
)

// Deliverer hands a single resolved notification to its provider
type Deliverer interface {
	DeliverEmail(ctx context.Context, msg EmailMessage) error
	DeliverPush(ctx context.Context, userID string, msg PushMessage) error
	DeliverSMS(ctx context.Context, msg SMSMessage) error
	DeliverEvent(ctx context.Context, ev Event) error
}

// LogDeliverer writes every delivery to the structured log. Provider wire
// formats live outside this repository.
type LogDeliverer struct {
	logger *slog.Logger
}

// NewLogDeliverer creates a LogDeliverer
func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) DeliverEmail(_ context.Context, msg EmailMessage) error {
	d.logger.Info("Email delivered",
		slog.String("template", msg.Template),
		slog.String("to", msg.To.Email),
		slog.String("subject", msg.Subject),
		logger.JobID(msg.Context.JobID),
	)
	return nil
}

func (d *LogDeliverer) DeliverPush(_ context.Context, userID string, msg PushMessage) error {
	d.logger.Info("Push delivered",
		logger.UserID(userID),
		logger.Kind(msg.Kind),
		logger.JobID(msg.JobID),
		slog.Bool("delayed", msg.Delay),
	)
	return nil
}

func (d *LogDeliverer) DeliverSMS(_ context.Context, msg SMSMessage) error {
	d.logger.Info("SMS delivered",
		slog.String("to", msg.To.Phone),
		logger.JobID(msg.JobID),
	)
	return nil
}

func (d *LogDeliverer) DeliverEvent(_ context.Context, ev Event) error {
	d.logger.Info("Event published",
		slog.String("event", ev.Name),
		logger.JobID(ev.JobID),
		slog.String("actor_user_id", ev.ActorUserID),
		slog.String("counterpart_user_id", ev.CounterpartUserID),
	)
	return nil
}
