package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// ErrStopped is returned by Submit when the processor is not running.
var ErrStopped = errors.New("event processor is not running")

// EventHandler applies one change event.
type EventHandler interface {
	Process(ctx context.Context, ev model.ChangeEvent) error
}

// EventProcessor applies queued change events with a fixed pool of workers.
// Failed events are redelivered to the handler up to maxAttempts times.
type EventProcessor struct {
	handler     EventHandler
	workers     int
	queueSize   int
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger

	jobs    chan model.ChangeEvent
	drained bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.RWMutex
	running bool
}

// NewEventProcessor constructs the event processor worker pool.
func NewEventProcessor(handler EventHandler, workers, queueSize, maxAttempts int, retryDelay time.Duration, logger *slog.Logger) *EventProcessor {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventProcessor{
		handler:     handler,
		workers:     workers,
		queueSize:   queueSize,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
		jobs:        make(chan model.ChangeEvent, queueSize),
	}
}

// Start launches background processing. Cancelling ctx does not drop queued
// events; Stop drains them.
func (p *EventProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	// Stop closes the queue, so a restart needs a fresh one.
	if p.drained {
		p.jobs = make(chan model.ChangeEvent, p.queueSize)
		p.drained = false
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, p.jobs)
	}
}

// Stop rejects new events and waits until queued ones are handled.
func (p *EventProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.jobs)
	p.drained = true
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	p.wg.Wait()
	cancel()
}

// Submit enqueues ev without blocking. It returns ErrQueueFull when the queue
// is at capacity.
func (p *EventProcessor) Submit(ev model.ChangeEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return ErrStopped
	}
	select {
	case p.jobs <- ev:
		return nil
	default:
		return domainErrors.ErrQueueFull
	}
}

// Pending returns the number of queued events.
func (p *EventProcessor) Pending() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.jobs)
}

func (p *EventProcessor) worker(ctx context.Context, jobs <-chan model.ChangeEvent) {
	defer p.wg.Done()
	for ev := range jobs {
		p.handleEvent(ctx, ev)
	}
}

func (p *EventProcessor) handleEvent(ctx context.Context, ev model.ChangeEvent) {
	for attempt := 1; ; attempt++ {
		err := p.handler.Process(ctx, ev)
		switch {
		case err == nil:
			return
		case errors.Is(err, domainErrors.ErrAlreadyApplied):
			return
		case errors.Is(err, domainErrors.ErrInvalidEvent), errors.Is(err, domainErrors.ErrMissingTenant):
			// Redelivery cannot fix these.
			return
		}

		if attempt >= p.maxAttempts {
			p.logger.Error("change event dropped",
				slog.String("tenant_id", ev.Tenant()),
				slog.String("order_id", ev.OrderID),
				slog.String("revision", ev.Revision),
				slog.Int("attempts", attempt),
				slog.String("error", err.Error()),
			)
			return
		}

		p.logger.Warn("change event failed, retrying",
			slog.String("order_id", ev.OrderID),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", p.retryDelay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(p.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
