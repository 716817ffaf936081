package repository

import (
	"context"

	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// RollupRepository merges increments into per-tenant aggregate documents.
type RollupRepository interface {
	// Apply merges inc into the tenant's document atomically, creating it when
	// absent. Empty increments must not reach the store.
	Apply(ctx context.Context, tenantID string, inc model.Increments) error
	Load(ctx context.Context, tenantID string) (*model.SalesStats, error)
}

// OnceApplier is implemented by stores that can record an applied-event key
// and merge its increments in one atomic unit. It returns false when key was
// already recorded.
type OnceApplier interface {
	ApplyOnce(ctx context.Context, tenantID, key string, inc model.Increments) (bool, error)
}
