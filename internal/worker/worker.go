// Package worker consumes queued notification envelopes and hands each one
// to a notify.Deliverer, expanding broadcasts to the eligible translators.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Default tuning used when Config leaves a field unset
const (
	DefaultConcurrency       = 1
	DefaultQueueSize         = 100
	DefaultJobTimeout        = 30 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultDeliveryBackoff   = 200 * time.Millisecond
	DefaultBroadcastRequeues = 1
)

// Consumer opens a stream of broker deliveries
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Republisher puts an envelope back on the notification queue
type Republisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Directory is the read side of the job store the worker needs to expand
// broadcasts
type Directory interface {
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	Translators(ctx context.Context, languageID int64) ([]domain.User, error)
}

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	Consumer          Consumer
	Directory         Directory
	Preferences       notify.Preferences
	Deliverer         notify.Deliverer
	WorkerID          string
	Concurrency       int
	QueueSize         int
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
	DeliveryRetries   int
	DeliveryBackoff   time.Duration
	// Republisher receives broadcasts narrowed to the recipients that failed.
	// Nil requeues the whole envelope instead.
	Republisher       Republisher
	BroadcastRequeues int
}

// Stats counts processed envelopes since start
type Stats struct {
	Delivered int64
	Failed    int64
	Rejected  int64
}

// Worker represents the background notification worker
type Worker struct {
	logger            *slog.Logger
	consumer          Consumer
	directory         Directory
	preferences       notify.Preferences
	deliverer         notify.Deliverer
	workerID          string
	concurrency       int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	deliveryRetries   int
	deliveryBackoff   time.Duration
	republisher       Republisher
	broadcastRequeues int
	jobsChan          chan *message
	wg                sync.WaitGroup
	stopChan          chan struct{}
	stopOnce          sync.Once

	delivered atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
}

// message is one decoded envelope together with the delivery to settle
type message struct {
	envelope *notify.Envelope
	delivery amqp.Delivery
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	w := &Worker{
		logger:            cfg.Logger,
		consumer:          cfg.Consumer,
		directory:         cfg.Directory,
		preferences:       cfg.Preferences,
		deliverer:         cfg.Deliverer,
		workerID:          cfg.WorkerID,
		concurrency:       cfg.Concurrency,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: cfg.HeartbeatInterval,
		deliveryRetries:   cfg.DeliveryRetries,
		deliveryBackoff:   cfg.DeliveryBackoff,
		republisher:       cfg.Republisher,
		broadcastRequeues: cfg.BroadcastRequeues,
		stopChan:          make(chan struct{}),
	}

	if w.concurrency <= 0 {
		w.concurrency = DefaultConcurrency
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = DefaultJobTimeout
	}
	if w.heartbeatInterval <= 0 {
		w.heartbeatInterval = DefaultHeartbeatInterval
	}
	if w.deliveryBackoff <= 0 {
		w.deliveryBackoff = DefaultDeliveryBackoff
	}
	if w.broadcastRequeues <= 0 {
		w.broadcastRequeues = DefaultBroadcastRequeues
	}
	if w.workerID == "" {
		w.workerID = "notification-worker"
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	w.jobsChan = make(chan *message, queueSize)

	return w
}

// Start subscribes to the queue, spawns the pool and dispatches deliveries
// until ctx is canceled or the broker closes the delivery stream
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
		slog.Int("delivery_retries", w.deliveryRetries),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.wg.Add(1)
	go w.heartbeat(ctx)

	w.startMessageDispatcher(ctx, deliveries)
	return nil
}

// Stop gracefully stops the worker and waits for in-flight envelopes
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()

	stats := w.Stats()
	w.logger.Info("Worker stopped",
		slog.Int64("delivered", stats.Delivered),
		slog.Int64("failed", stats.Failed),
		slog.Int64("rejected", stats.Rejected),
	)
}

// Stats returns a snapshot of the processing counters
func (w *Worker) Stats() Stats {
	return Stats{
		Delivered: w.delivered.Load(),
		Failed:    w.failed.Load(),
		Rejected:  w.rejected.Load(),
	}
}

// heartbeat periodically logs the processing counters
func (w *Worker) heartbeat(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := w.Stats()
			w.logger.Info("Worker heartbeat",
				slog.String("worker_id", w.workerID),
				slog.Int("queued", len(w.jobsChan)),
				slog.Int64("delivered", stats.Delivered),
				slog.Int64("failed", stats.Failed),
				slog.Int64("rejected", stats.Rejected),
			)
		}
	}
}
