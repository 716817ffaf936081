package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/config"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
)

// Pruner is implemented by backends whose applied-event keys do not expire on
// their own.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

var pruneInterval = time.Hour

// janitor periodically deletes applied-event keys older than ttl.
type janitor struct {
	pruner   Pruner
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newJanitor(pruner Pruner, ttl, interval time.Duration, logger *slog.Logger) *janitor {
	return &janitor{pruner: pruner, ttl: ttl, interval: interval, logger: logger, now: time.Now}
}

func (j *janitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.prune(ctx)
			}
		}
	}()
}

func (j *janitor) prune(ctx context.Context) {
	n, err := j.pruner.Prune(ctx, j.now().Add(-j.ttl))
	if err != nil {
		j.logger.Error("prune applied events", slog.Any("error", err))
		return
	}
	if n > 0 {
		j.logger.Debug("pruned applied events", slog.Int64("count", n))
	}
}

func (j *janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

func registerJanitor(lc fx.Lifecycle, cfg *config.Config, factory repository.Factory, logger *slog.Logger) {
	pruner, ok := factory.Rollups().(Pruner)
	if !ok || !cfg.LedgerEnabled || cfg.LedgerTTL <= 0 {
		return
	}
	j := newJanitor(pruner, cfg.LedgerTTL, pruneInterval, logger)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			j.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			j.Stop()
			return nil
		},
	})
}
