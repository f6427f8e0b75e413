package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
)

// processEnvelope delivers one envelope within the job timeout
func (w *Worker) processEnvelope(ctx context.Context, env *notify.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	w.logger.Debug("Processing notification",
		logger.EnvelopeID(env.ID),
		logger.Kind(env.Kind),
	)

	switch env.Kind {
	case notify.KindEmail:
		msg := *env.Email
		if msg.To.Email == "" {
			return fmt.Errorf("%w: email %s has no address", ErrInvalidEnvelope, env.ID)
		}
		return w.withRetry(ctx, env.Kind, func(ctx context.Context) error {
			return w.deliverer.DeliverEmail(ctx, msg)
		})

	case notify.KindSMS:
		msg := *env.SMS
		if msg.To.Phone == "" {
			return fmt.Errorf("%w: sms %s has no phone number", ErrInvalidEnvelope, env.ID)
		}
		return w.withRetry(ctx, env.Kind, func(ctx context.Context) error {
			return w.deliverer.DeliverSMS(ctx, msg)
		})

	case notify.KindPush:
		return w.deliverPush(ctx, *env.Push)

	case notify.KindEvent:
		ev := *env.Event
		return w.withRetry(ctx, env.Kind, func(ctx context.Context) error {
			return w.deliverer.DeliverEvent(ctx, ev)
		})

	case notify.KindBroadcast:
		return w.expandBroadcast(ctx, env)
	}

	return fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvelope, env.Kind)
}

// deliverPush sends msg to each addressed user. The booking engine has
// already applied the recipients' preferences.
func (w *Worker) deliverPush(ctx context.Context, msg notify.PushMessage) error {
	var errs []error
	for _, userID := range msg.UserIDs {
		err := w.withRetry(ctx, notify.KindPush, func(ctx context.Context) error {
			return w.deliverer.DeliverPush(ctx, userID, msg)
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// expandBroadcast offers a pending job to every eligible translator on the
// broadcast's channel. Recipients that fail are requeued in a narrowed copy
// of the envelope so nobody is offered the job twice.
func (w *Worker) expandBroadcast(ctx context.Context, env *notify.Envelope) error {
	b := *env.Broadcast
	if b.Channel != notify.ChannelPush && b.Channel != notify.ChannelSMS {
		return fmt.Errorf("%w: unknown broadcast channel %q", ErrInvalidEnvelope, b.Channel)
	}

	job, err := w.directory.GetJob(ctx, b.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return fmt.Errorf("%w: broadcast for unknown job %s", ErrInvalidEnvelope, b.JobID)
		}
		return NewRetryableError(fmt.Errorf("failed to load job: %w", err))
	}

	if job.Status != domain.StatusPending {
		w.logger.Info("Skipping broadcast for job no longer pending",
			logger.JobID(job.ID),
			slog.String("status", string(job.Status)),
		)
		return nil
	}

	recipients, err := w.recipients(ctx, job, b)
	if err != nil {
		return err
	}

	var (
		errs   []error
		failed []string
	)
	sent := 0
	for _, u := range recipients {
		ok, err := w.offer(ctx, job, b, u)
		if err != nil {
			errs = append(errs, err)
			failed = append(failed, u.ID)
			continue
		}
		if ok {
			sent++
		}
	}

	w.logger.Info("Broadcast expanded",
		logger.JobID(job.ID),
		slog.String("channel", b.Channel),
		slog.Int("attempt", env.Attempt),
		slog.Int("eligible", len(recipients)),
		slog.Int("sent", sent),
		slog.Int("failed", len(failed)),
	)

	if len(failed) == 0 {
		return nil
	}
	return w.requeueRecipients(ctx, env, failed, errors.Join(errs...))
}

// requeueRecipients publishes a copy of env narrowed to the failed user ids
// and reports success so the original delivery is acked. Without a
// publisher the delivery error is returned as is.
func (w *Worker) requeueRecipients(ctx context.Context, env *notify.Envelope, failed []string, deliveryErr error) error {
	if w.republisher == nil {
		return deliveryErr
	}
	if env.Attempt >= w.broadcastRequeues {
		return fmt.Errorf("%w: %d recipients of %s: %w", ErrRequeuesExhausted, len(failed), env.ID, deliveryErr)
	}

	narrowed := *env.Broadcast
	narrowed.Only = failed
	retry := *env
	retry.Broadcast = &narrowed
	retry.Attempt++

	body, err := json.Marshal(retry)
	if err != nil {
		return errors.Join(deliveryErr, fmt.Errorf("failed to marshal narrowed broadcast: %w", err))
	}
	if err := w.republisher.Publish(ctx, body, notify.ContentTypeJSON); err != nil {
		return errors.Join(deliveryErr, NewRetryableError(fmt.Errorf("failed to requeue broadcast: %w", err)))
	}

	w.logger.Warn("Broadcast requeued for failed recipients",
		logger.EnvelopeID(env.ID),
		logger.JobID(narrowed.JobID),
		slog.Int("attempt", retry.Attempt),
		slog.Int("recipients", len(failed)),
	)
	return nil
}

// recipients lists the translators eligible for job, minus excluded ids and
// restricted to b.Only when set
func (w *Worker) recipients(ctx context.Context, job *domain.Job, b notify.Broadcast) ([]domain.User, error) {
	translators, err := w.directory.Translators(ctx, job.FromLanguageID)
	if err != nil {
		return nil, NewRetryableError(fmt.Errorf("failed to list translators: %w", err))
	}

	out := make([]domain.User, 0, len(translators))
	for i := range translators {
		u := translators[i]
		if slices.Contains(b.Exclude, u.ID) {
			continue
		}
		if len(b.Only) > 0 && !slices.Contains(b.Only, u.ID) {
			continue
		}
		if !domain.EligibleTranslator(job, &u, job.Town) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// offer delivers the broadcast to one translator. It reports false when the
// translator's preferences or profile rule the channel out.
func (w *Worker) offer(ctx context.Context, job *domain.Job, b notify.Broadcast, u domain.User) (bool, error) {
	switch b.Channel {
	case notify.ChannelSMS:
		if u.Phone == "" {
			return false, nil
		}
		msg := notify.SMSMessage{
			To:    notify.Recipient{UserID: u.ID, Name: u.Name, Phone: u.Phone},
			JobID: job.ID,
			Text:  b.Text,
		}
		return true, w.withRetry(ctx, notify.KindSMS, func(ctx context.Context) error {
			return w.deliverer.DeliverSMS(ctx, msg)
		})

	case notify.ChannelPush:
		delay, ok, err := w.pushPolicy(ctx, u.ID)
		if err != nil || !ok {
			return false, err
		}
		msg := notify.NewPush([]string{u.ID}, job.ID, notify.PushKindSuitableJob, b.Text, b.Context.For(u.Name))
		msg.Delay = delay
		return true, w.withRetry(ctx, notify.KindPush, func(ctx context.Context) error {
			return w.deliverer.DeliverPush(ctx, u.ID, msg)
		})
	}

	return false, fmt.Errorf("%w: unknown broadcast channel %q", ErrInvalidEnvelope, b.Channel)
}

// pushPolicy reports whether userID takes pushes and whether to delay them
func (w *Worker) pushPolicy(ctx context.Context, userID string) (delay bool, ok bool, err error) {
	if w.preferences == nil {
		return false, true, nil
	}

	needs, err := w.preferences.NeedsPush(ctx, userID)
	if err != nil {
		return false, false, NewRetryableError(err)
	}
	if !needs {
		return false, false, nil
	}

	delay, err = w.preferences.DelayPush(ctx, userID)
	if err != nil {
		return false, false, NewRetryableError(err)
	}
	return delay, true, nil
}

// withRetry runs fn with exponential backoff. Exhausted retries come back
// as a RetryableError so the envelope is requeued.
func (w *Worker) withRetry(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	expB := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(w.deliveryBackoff),
		backoff.WithMaxElapsedTime(0),
	)
	policy := backoff.WithContext(backoff.WithMaxRetries(expB, uint64(w.deliveryRetries)), ctx)

	err := backoff.RetryNotify(func() error {
		return fn(ctx)
	}, policy, func(err error, wait time.Duration) {
		w.logger.Warn("Failed to deliver notification, retrying",
			logger.Kind(kind),
			slog.Duration("retry_after", wait),
			slog.String("error", err.Error()),
		)
	})
	if err != nil {
		return NewRetryableError(fmt.Errorf("failed to deliver %s: %w", kind, err))
	}
	return nil
}
