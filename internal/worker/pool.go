package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/shared/logger"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.drain(workerName)
			return

		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg := <-w.jobsChan:
			w.handle(ctx, workerName, msg)
		}
	}
}

// drain settles envelopes already handed to the pool so none stay unacked
// once the dispatcher has stopped
func (w *Worker) drain(workerName string) {
	for {
		select {
		case msg := <-w.jobsChan:
			if err := msg.delivery.Nack(false, true); err != nil {
				w.logger.Error("Failed to NACK message on shutdown",
					slog.String("worker_name", workerName),
					logger.EnvelopeID(msg.envelope.ID),
					slog.String("error", err.Error()),
				)
			}
		default:
			return
		}
	}
}

// handle processes one envelope and acks or nacks its delivery
func (w *Worker) handle(ctx context.Context, workerName string, msg *message) {
	env := msg.envelope
	err := w.processEnvelope(ctx, env)

	if err == nil {
		w.delivered.Add(1)
		if ackErr := msg.delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				logger.EnvelopeID(env.ID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	w.failed.Add(1)
	// a redelivered envelope that fails again is dropped
	requeue := shouldRequeue(err) && !msg.delivery.Redelivered
	w.logger.Error("Notification processing failed",
		slog.String("worker_name", workerName),
		logger.EnvelopeID(env.ID),
		logger.Kind(env.Kind),
		slog.Bool("requeue", requeue),
		slog.String("error", err.Error()),
	)

	if nackErr := msg.delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			logger.EnvelopeID(env.ID),
			slog.String("error", nackErr.Error()),
		)
	}
}

// shouldRequeue requeues transient failures only
func shouldRequeue(err error) bool {
	if errors.Is(err, ErrInvalidEnvelope) || errors.Is(err, ErrRequeuesExhausted) {
		return false
	}

	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
