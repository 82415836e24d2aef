package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/clock"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliverySource yields booking events published by the API service
type DeliverySource interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// EventHandler delivers the notifications of one event
type EventHandler interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// DeferredQueue returns night-time pushes whose send time has come
type DeferredQueue interface {
	Due(ctx context.Context, now time.Time, limit int64) ([]notify.PushMessage, error)
}

// PushSender sends a previously deferred push
type PushSender interface {
	SendScheduled(ctx context.Context, push notify.PushMessage) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Source        DeliverySource
	Handler       EventHandler
	Deferred      DeferredQueue
	Sender        PushSender
	Clock         clock.Clock
	WorkerID      string
	Concurrency   int
	PrefetchCount int
	EventTimeout  time.Duration
	PollInterval  time.Duration
	PollBatchSize int64
}

// eventMessage is a decoded event and the delivery to ack
type eventMessage struct {
	event    domain.Event
	delivery amqp.Delivery
}

// Worker consumes booking events and sends their notifications
type Worker struct {
	logger        *slog.Logger
	source        DeliverySource
	handler       EventHandler
	deferred      DeferredQueue
	sender        PushSender
	clock         clock.Clock
	workerID      string
	concurrency   int
	prefetchCount int
	eventTimeout  time.Duration
	pollInterval  time.Duration
	pollBatchSize int64

	eventsChan chan *eventMessage
	wg         sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	w := &Worker{
		logger:        cfg.Logger,
		source:        cfg.Source,
		handler:       cfg.Handler,
		deferred:      cfg.Deferred,
		sender:        cfg.Sender,
		clock:         cfg.Clock,
		workerID:      cfg.WorkerID,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		eventTimeout:  cfg.EventTimeout,
		pollInterval:  cfg.PollInterval,
		pollBatchSize: cfg.PollBatchSize,
		stopChan:      make(chan struct{}),
	}
	if w.clock == nil {
		w.clock = clock.System{}
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.prefetchCount <= 0 {
		w.prefetchCount = w.concurrency
	}
	if w.eventTimeout <= 0 {
		w.eventTimeout = 30 * time.Second
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 30 * time.Second
	}
	if w.pollBatchSize <= 0 {
		w.pollBatchSize = 100
	}
	w.eventsChan = make(chan *eventMessage, w.concurrency)
	return w
}

// Start consumes events until ctx is cancelled or Stop is called
func (w *Worker) Start(ctx context.Context) error {
	w.wg.Add(1)
	defer w.wg.Done()

	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("event_timeout", w.eventTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.startMessageDispatcher(ctx, deliveries)
	}()

	if w.deferred != nil && w.sender != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.pollDeferred(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		w.logger.Info("Worker context canceled, stopping...")
	case <-w.stopChan:
	}

	return nil
}

// Stop gracefully stops the worker and waits for in-flight events
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
