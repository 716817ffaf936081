package app

import (
	"context"

	"github.com/polkiloo/salesrollup/internal/domain/model"
	"github.com/polkiloo/salesrollup/internal/usecase"
)

// EventQueue accepts change events for asynchronous processing.
type EventQueue interface {
	Submit(ev model.ChangeEvent) error
}

// HealthChecker reports storage availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type SalesFacade struct {
	rollups *usecase.RollupUseCase
	queue   EventQueue
	health  HealthChecker
}

func NewSalesFacade(rollups *usecase.RollupUseCase, queue EventQueue, health HealthChecker) *SalesFacade {
	return &SalesFacade{rollups: rollups, queue: queue, health: health}
}

// SubmitChange validates ev and queues it. Invalid events are rejected before
// they reach the queue.
func (f *SalesFacade) SubmitChange(ctx context.Context, ev model.ChangeEvent) error {
	if err := f.rollups.Validate(ev); err != nil {
		return err
	}
	return f.queue.Submit(ev)
}

func (f *SalesFacade) Stats(ctx context.Context, tenantID string) (*model.SalesStats, error) {
	return f.rollups.Stats(ctx, tenantID)
}

func (f *SalesFacade) Health(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
