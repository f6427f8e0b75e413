package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer subscribes to the notification queue using the worker id as
// consumer tag
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if w.consumer == nil {
		return nil, fmt.Errorf("rabbitmq consumer is nil")
	}

	deliveries, err := w.consumer.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
	)

	return deliveries, nil
}

// startMessageDispatcher decodes deliveries and hands them to the pool.
// Malformed envelopes are rejected without requeue.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - stopChan closed")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			env, err := notify.DecodeEnvelope(delivery.Body)
			if err != nil {
				w.rejected.Add(1)
				w.logger.Error("Discarding malformed notification envelope",
					slog.String("error", err.Error()),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			select {
			case w.jobsChan <- &message{envelope: env, delivery: delivery}:
				w.logger.Debug("Envelope dispatched to worker pool",
					logger.EnvelopeID(env.ID),
					logger.Kind(env.Kind),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching envelope")
				w.requeueOnShutdown(delivery)
				return
			case <-w.stopChan:
				w.logger.Info("Message dispatcher stopped while waiting for a free worker")
				w.requeueOnShutdown(delivery)
				return
			}
		}
	}
}

// requeueOnShutdown hands an undispatched delivery back to the broker
func (w *Worker) requeueOnShutdown(delivery amqp.Delivery) {
	if nackErr := delivery.Nack(false, true); nackErr != nil {
		w.logger.Error("Failed to NACK message on shutdown",
			slog.String("error", nackErr.Error()),
		)
	}
}
