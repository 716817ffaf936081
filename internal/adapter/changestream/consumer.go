// Package changestream turns MongoDB change stream events on the orders
// collection into rollup updates.
package changestream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// Stream is the cursor side of a change stream. *mongo.ChangeStream
// satisfies it.
type Stream interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
	ResumeToken() bson.Raw
}

// Watcher opens a change stream, resuming after token when it is not nil.
type Watcher interface {
	Watch(ctx context.Context, resumeAfter bson.Raw) (Stream, error)
}

// CheckpointStore keeps the last handled resume token per stream.
type CheckpointStore interface {
	Load(ctx context.Context, name string) (bson.Raw, error)
	Save(ctx context.Context, name string, token bson.Raw) error
}

// Handler applies one change event.
type Handler interface {
	Process(ctx context.Context, ev model.ChangeEvent) error
}

// CollectionWatcher watches order mutations on one collection.
type CollectionWatcher struct {
	Collection *mongo.Collection
}

// Watch opens the stream with post- and pre-images.
func (w CollectionWatcher) Watch(ctx context.Context, resumeAfter bson.Raw) (Stream, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{opInsert, opUpdate, opReplace, opDelete}}}},
		}}},
	}
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)
	if len(resumeAfter) > 0 {
		opts.SetResumeAfter(resumeAfter)
	}

	cs, err := w.Collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.Collection.Name(), err)
	}
	return cs, nil
}

// Options tunes redelivery of failed events.
type Options struct {
	// Name keys the checkpoint of this stream.
	Name        string
	MaxAttempts int
	RetryDelay  time.Duration
}

// Consumer reads one change stream and hands every event to the handler in
// stream order. The resume token is saved after each handled event, so a
// restart continues after the last one.
type Consumer struct {
	watcher     Watcher
	checkpoints CheckpointStore
	handler     Handler
	opts        Options
	logger      *slog.Logger
	onFatal     func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer constructs a consumer. onFatal is called when the stream breaks
// or an event keeps failing after every attempt.
func NewConsumer(watcher Watcher, checkpoints CheckpointStore, handler Handler, opts Options, logger *slog.Logger, onFatal func(error)) *Consumer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if onFatal == nil {
		onFatal = func(error) {}
	}
	return &Consumer{
		watcher:     watcher,
		checkpoints: checkpoints,
		handler:     handler,
		opts:        opts,
		logger:      logger,
		onFatal:     onFatal,
	}
}

// Disabled returns a consumer whose Start and Stop do nothing.
func Disabled() *Consumer {
	return &Consumer{}
}

// Start opens the stream from the saved checkpoint and begins consuming.
func (c *Consumer) Start(ctx context.Context) error {
	if c.watcher == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}

	token, err := c.checkpoints.Load(ctx, c.opts.Name)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	stream, err := c.watcher.Watch(ctx, token)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, stream, c.done)

	c.logger.Info("change stream started", slog.String("stream", c.opts.Name), slog.Bool("resumed", len(token) > 0))
	return nil
}

// Stop cancels consumption and waits for the current event to finish.
func (c *Consumer) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Consumer) run(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := stream.Close(context.Background()); err != nil {
			c.logger.Warn("close change stream", slog.Any("error", err))
		}
	}()

	for stream.Next(ctx) {
		if err := c.handle(ctx, stream); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("change event failed, stopping stream", slog.String("stream", c.opts.Name), slog.Any("error", err))
			c.onFatal(err)
			return
		}

		if err := c.checkpoints.Save(ctx, c.opts.Name, stream.ResumeToken()); err != nil {
			c.logger.Error("save checkpoint", slog.String("stream", c.opts.Name), slog.Any("error", err))
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		c.logger.Error("change stream terminated", slog.String("stream", c.opts.Name), slog.Any("error", err))
		c.onFatal(err)
	}
}

// handle returns an error only when the event has to be retried later.
func (c *Consumer) handle(ctx context.Context, stream Stream) error {
	var doc changeDocument
	if err := stream.Decode(&doc); err != nil {
		c.logger.Warn("undecodable change event skipped", slog.Any("error", err))
		return nil
	}

	ev, err := toEvent(doc)
	if err != nil {
		c.logger.Warn("change event skipped",
			slog.String("operation", doc.OperationType),
			slog.String("order_id", ev.OrderID),
			slog.Any("error", err),
		)
		return nil
	}

	return c.deliver(ctx, ev)
}

func (c *Consumer) deliver(ctx context.Context, ev model.ChangeEvent) error {
	var err error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		err = c.handler.Process(ctx, ev)
		switch {
		case err == nil, errors.Is(err, domainErrors.ErrAlreadyApplied):
			return nil
		case errors.Is(err, domainErrors.ErrInvalidEvent), errors.Is(err, domainErrors.ErrMissingTenant):
			return nil
		}

		c.logger.Warn("change event attempt failed",
			slog.String("order_id", ev.OrderID),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if attempt == c.opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.RetryDelay):
		}
	}
	return err
}
