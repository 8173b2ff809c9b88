package emitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/messaging"
	"github.com/mixmint/mixmint-downloads/internal/metrics"
)

// Config holds the configuration for the event emitter
type Config struct {
	Workers        int           // Concurrent publishes
	QueueSize      int           // Events buffered before new ones are dropped
	MaxElapsedTime time.Duration // Retry budget per event
	PublishTimeout time.Duration // Timeout of a single publish attempt
}

// Emitter publishes download events in the background. Publishing is best effort:
// a full queue or an exhausted retry budget drops the event with a log line.
//
//go:generate mockgen -source=emitter.go -destination=../mocks/emitter.go -package=mocks -mock_names=Emitter=MockEmitter
type Emitter interface {
	// Emit queues the event and returns immediately
	Emit(ctx context.Context, event domain.DownloadEvent)
	// Close waits for queued events and closes the publisher
	Close()
}

type emitter struct {
	publisher messaging.Publisher
	pool      pond.Pool
	config    Config
	clock     adapter.Clock
	closeOnce sync.Once
}

// NewEmitter creates a new event emitter
func NewEmitter(pub messaging.Publisher, cfg Config, clock adapter.Clock) Emitter {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	return &emitter{
		publisher: pub,
		pool:      pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.QueueSize)),
		config:    cfg,
		clock:     clock,
	}
}

// Emit queues the event for publishing
func (e *emitter) Emit(ctx context.Context, event domain.DownloadEvent) {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.clock.Now()
	}

	// The request context ends with the response; publishing outlives it
	bgCtx := context.WithoutCancel(ctx)

	if _, ok := e.pool.TrySubmit(func() {
		e.publishWithRetry(bgCtx, &event)
	}); !ok {
		logger.WarnCtx(ctx, "Event queue full, dropping download event",
			zap.String("id", event.ID),
			zap.String("event_type", string(event.EventType)),
		)
		metrics.RecordEventPublished(string(event.EventType), false)
	}
}

// publishWithRetry publishes with exponential backoff until the retry budget is spent
func (e *emitter) publishWithRetry(ctx context.Context, event *domain.DownloadEvent) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = e.config.MaxElapsedTime
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	operation := func() error {
		pubCtx, cancel := context.WithTimeout(ctx, e.config.PublishTimeout)
		defer cancel()
		return e.publisher.PublishDownloadEvent(pubCtx, event)
	}

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Download event publish failed, retrying",
			zap.Error(err),
			zap.String("id", event.ID),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notifyOnError)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to publish download event after %d attempts: %w", attemptCount+1, err),
			zap.String("id", event.ID),
			zap.String("event_type", string(event.EventType)),
		)
		metrics.RecordEventPublished(string(event.EventType), false)
		return
	}

	metrics.RecordEventPublished(string(event.EventType), true)
}

// Close waits for queued events and closes the publisher
func (e *emitter) Close() {
	e.closeOnce.Do(func() {
		e.pool.StopAndWait()
		e.publisher.Close()
	})
}
