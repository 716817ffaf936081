package handlers

import (
	"context"

	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// IngestFacade accepts order changes for aggregation.
type IngestFacade interface {
	SubmitChange(ctx context.Context, ev model.ChangeEvent) error
}

// StatsFacade reads aggregate documents.
type StatsFacade interface {
	Stats(ctx context.Context, tenantID string) (*model.SalesStats, error)
}

// HealthFacade reports backend readiness.
type HealthFacade interface {
	Health(ctx context.Context) error
}

// SalesFacade aggregates the full set of operations used across handlers.
type SalesFacade interface {
	IngestFacade
	StatsFacade
	HealthFacade
}
