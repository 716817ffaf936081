package test

import (
	"context"
	"sync"

	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// EventHandlerStub records processed change events.
type EventHandlerStub struct {
	ProcessFn func(context.Context, model.ChangeEvent) error
	Err       error

	mu     sync.Mutex
	Events []model.ChangeEvent
}

// Process records ev and delegates to ProcessFn or returns Err.
func (s *EventHandlerStub) Process(ctx context.Context, ev model.ChangeEvent) error {
	s.mu.Lock()
	s.Events = append(s.Events, ev)
	s.mu.Unlock()
	if s.ProcessFn != nil {
		return s.ProcessFn(ctx, ev)
	}
	return s.Err
}

// CallCount returns the number of Process invocations.
func (s *EventHandlerStub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Events)
}

// SalesFacadeStub provides controllable behaviour for HTTP handlers.
type SalesFacadeStub struct {
	SubmitFn func(context.Context, model.ChangeEvent) error
	StatsFn  func(context.Context, string) (*model.SalesStats, error)
	HealthFn func(context.Context) error

	mu        sync.Mutex
	Submitted []model.ChangeEvent
}

// SubmitChange records ev and delegates to SubmitFn.
func (s *SalesFacadeStub) SubmitChange(ctx context.Context, ev model.ChangeEvent) error {
	s.mu.Lock()
	s.Submitted = append(s.Submitted, ev)
	s.mu.Unlock()
	if s.SubmitFn != nil {
		return s.SubmitFn(ctx, ev)
	}
	return nil
}

// Stats returns configured stats or an empty document.
func (s *SalesFacadeStub) Stats(ctx context.Context, tenantID string) (*model.SalesStats, error) {
	if s.StatsFn != nil {
		return s.StatsFn(ctx, tenantID)
	}
	return model.NewSalesStats(tenantID), nil
}

// Health delegates to HealthFn.
func (s *SalesFacadeStub) Health(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}
