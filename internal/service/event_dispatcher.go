package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/pkg/jobs"
)

const domainEventJob = "domain_event"

type eventStream interface {
	Enabled() bool
	Append(ctx context.Context, event models.DomainEvent) (string, error)
}

// EventDispatcherConfig tunes the publishing worker pool.
type EventDispatcherConfig struct {
	Workers    int
	BufferSize int
	Retries    int
	RetryDelay time.Duration
}

// EventDispatcher publishes domain events to the event stream in the
// background. Publishing never blocks or fails the emitting request.
type EventDispatcher struct {
	stream  eventStream
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEventDispatcher wires the dispatcher and its job queue.
func NewEventDispatcher(stream eventStream, cfg EventDispatcherConfig, metrics *MetricsService, logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &EventDispatcher{stream: stream, metrics: metrics, logger: logger}
	d.queue = jobs.NewQueue("domain-events", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDiscard: func(job jobs.Job, err error) {
			d.metrics.RecordEventPublished("discarded")
			d.logger.Error("domain event discarded", zap.String("job_id", job.ID), zap.Error(err))
		},
	})
	return d
}

// Start launches the workers.
func (d *EventDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop stops the workers. Events still buffered are lost.
func (d *EventDispatcher) Stop() {
	d.queue.Stop()
}

// Emit schedules an event for publication.
func (d *EventDispatcher) Emit(event models.DomainEvent) {
	if d == nil {
		return
	}
	if d.stream == nil || !d.stream.Enabled() {
		d.metrics.RecordEventPublished("skipped")
		d.logger.Debug("event stream disabled, dropping event", zap.String("type", event.Type))
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	err := d.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: domainEventJob, Payload: event})
	if err != nil {
		outcome := "failed"
		if errors.Is(err, jobs.ErrQueueFull) {
			outcome = "dropped"
		}
		d.metrics.RecordEventPublished(outcome)
		d.logger.Warn("domain event not queued", zap.String("type", event.Type), zap.Error(err))
	}
}

func (d *EventDispatcher) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.DomainEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if _, err := d.stream.Append(ctx, event); err != nil {
		return err
	}
	d.metrics.RecordEventPublished("published")
	return nil
}
