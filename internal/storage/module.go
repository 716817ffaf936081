// Package storage selects and wires the configured rollup backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/config"
	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
	"github.com/polkiloo/salesrollup/internal/storage/memory"
	"github.com/polkiloo/salesrollup/internal/storage/mongodb"
	"github.com/polkiloo/salesrollup/internal/storage/postgres"
	"github.com/polkiloo/salesrollup/internal/storage/redis"
)

// Module provides repository.Factory for the backend named by STORAGE_BACKEND.
var Module = fx.Options(
	fx.Provide(newFactory),
	fx.Invoke(registerJanitor),
)

type closeFunc func(context.Context) error

func noClose(context.Context) error { return nil }

type opener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Factory, closeFunc, error)

var backends = map[string]opener{
	config.BackendMemory: func(_ context.Context, cfg *config.Config, _ *slog.Logger) (repository.Factory, closeFunc, error) {
		return memory.New(cfg.LedgerTTL), noClose, nil
	},
	config.BackendPostgres: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Factory, closeFunc, error) {
		s, err := postgres.New(ctx, cfg.DatabaseURI, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func(context.Context) error { s.Close(); return nil }, nil
	},
	config.BackendMongo: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Factory, closeFunc, error) {
		s, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	},
}

type redisLedger interface {
	repository.EventLedger
	HealthCheck(ctx context.Context) error
	Close() error
}

var openRedisLedger = func(ctx context.Context, opts redis.Options) (redisLedger, error) {
	return redis.New(ctx, opts)
}

// withLedger replaces the backend ledger with a shared one.
type withLedger struct {
	repository.Factory
	ledger redisLedger
}

func (w *withLedger) Ledger() repository.EventLedger { return w.ledger }

func (w *withLedger) HealthCheck(ctx context.Context) error {
	if err := w.Factory.HealthCheck(ctx); err != nil {
		return err
	}
	if err := w.ledger.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis ledger: %w", err)
	}
	return nil
}

type factoryParams struct {
	fx.In

	Ctx       context.Context
	Config    *config.Config
	Logger    *slog.Logger
	Lifecycle fx.Lifecycle
}

func newFactory(p factoryParams) (repository.Factory, error) {
	open, ok := backends[p.Config.StorageBackend]
	if !ok {
		return nil, fmt.Errorf("storage backend %q: %w", p.Config.StorageBackend, domainErrors.ErrUnknownBackend)
	}

	factory, closeBackend, err := open(p.Ctx, p.Config, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", p.Config.StorageBackend, err)
	}

	closeAll := closeBackend
	if p.Config.LedgerEnabled && p.Config.RedisAddr != "" {
		if _, once := factory.Rollups().(repository.OnceApplier); once {
			p.Logger.Info("backend records applied events itself, redis ledger unused",
				slog.String("backend", p.Config.StorageBackend))
		} else {
			ledger, err := openRedisLedger(p.Ctx, redis.Options{
				Addr:     p.Config.RedisAddr,
				Password: p.Config.RedisPassword,
				DB:       p.Config.RedisDB,
			})
			if err != nil {
				_ = closeBackend(context.Background())
				return nil, err
			}
			factory = &withLedger{Factory: factory, ledger: ledger}
			closeAll = func(ctx context.Context) error {
				return errors.Join(ledger.Close(), closeBackend(ctx))
			}
		}
	}

	p.Lifecycle.Append(fx.Hook{OnStop: closeAll})
	p.Logger.Info("storage ready", slog.String("backend", p.Config.StorageBackend), slog.Bool("ledger", p.Config.LedgerEnabled))
	return factory, nil
}
