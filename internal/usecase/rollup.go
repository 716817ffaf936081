package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polkiloo/salesrollup/internal/aggregation"
	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
)

// RollupOptions controls deduplication of redelivered events.
type RollupOptions struct {
	Dedup     bool
	LedgerTTL time.Duration
}

// RollupUseCase applies order change events to per-tenant rollups.
type RollupUseCase struct {
	engine  *aggregation.Engine
	rollups repository.RollupRepository
	ledger  repository.EventLedger
	opts    RollupOptions
	logger  *slog.Logger
}

// NewRollupUseCase constructs RollupUseCase. ledger may be nil.
func NewRollupUseCase(engine *aggregation.Engine, rollups repository.RollupRepository, ledger repository.EventLedger, opts RollupOptions, logger *slog.Logger) *RollupUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RollupUseCase{engine: engine, rollups: rollups, ledger: ledger, opts: opts, logger: logger}
}

// Process computes and merges the increments of ev. Redelivered events return
// ErrAlreadyApplied when deduplication is enabled; without it they are counted
// again.
func (u *RollupUseCase) Process(ctx context.Context, ev model.ChangeEvent) error {
	inc, err := u.engine.Build(ev)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrMissingTenant):
			u.logger.Warn("change event without tenant skipped", slog.String("order_id", ev.OrderID), slog.String("revision", ev.Revision))
		default:
			u.logger.Error("invalid change event", slog.String("tenant_id", ev.Tenant()), slog.String("order_id", ev.OrderID), slog.Any("error", err))
		}
		return err
	}

	tenantID := ev.Tenant()
	if inc.IsEmpty() {
		u.logger.Debug("change event produced no increments", slog.String("tenant_id", tenantID), slog.String("order_id", ev.OrderID))
		return nil
	}

	if !u.opts.Dedup {
		return u.Apply(ctx, tenantID, inc)
	}

	key := ev.Key()
	if key == "" {
		u.logger.Warn("change event without revision applied without deduplication", slog.String("tenant_id", tenantID), slog.String("order_id", ev.OrderID))
		return u.Apply(ctx, tenantID, inc)
	}

	if once, ok := u.rollups.(repository.OnceApplier); ok {
		applied, err := once.ApplyOnce(ctx, tenantID, key, inc)
		if err != nil {
			return fmt.Errorf("apply event %s: %w", key, err)
		}
		if !applied {
			return u.duplicate(key)
		}
		return nil
	}

	if u.ledger == nil {
		u.logger.Warn("no event ledger available, applying without deduplication", slog.String("event_key", key))
		return u.Apply(ctx, tenantID, inc)
	}

	fresh, err := u.ledger.MarkApplied(ctx, key, u.opts.LedgerTTL)
	if err != nil {
		return fmt.Errorf("mark event %s: %w", key, err)
	}
	if !fresh {
		return u.duplicate(key)
	}

	if err := u.Apply(ctx, tenantID, inc); err != nil {
		if relErr := u.ledger.Release(ctx, key); relErr != nil {
			u.logger.Error("failed to release event key", slog.String("event_key", key), slog.Any("error", relErr))
		}
		return err
	}
	return nil
}

func (u *RollupUseCase) duplicate(key string) error {
	u.logger.Debug("duplicate change event skipped", slog.String("event_key", key))
	return fmt.Errorf("event %s: %w", key, domainErrors.ErrAlreadyApplied)
}

// Validate reports whether ev could be applied, without writing anything.
func (u *RollupUseCase) Validate(ev model.ChangeEvent) error {
	_, err := u.engine.Build(ev)
	return err
}

// Apply merges inc into the tenant's rollup. Empty increments issue no write.
func (u *RollupUseCase) Apply(ctx context.Context, tenantID string, inc model.Increments) error {
	if inc.IsEmpty() {
		return nil
	}
	if err := u.rollups.Apply(ctx, tenantID, inc); err != nil {
		return fmt.Errorf("apply increments for tenant %s: %w", tenantID, err)
	}
	return nil
}

// Stats returns the tenant's aggregate document.
func (u *RollupUseCase) Stats(ctx context.Context, tenantID string) (*model.SalesStats, error) {
	return u.rollups.Load(ctx, tenantID)
}
