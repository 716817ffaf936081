package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
)

// ApplyCall stores information about Apply invocations.
type ApplyCall struct {
	TenantID   string
	Increments model.Increments
}

// RollupRepositoryStub folds applied increments into in-memory rollups.
type RollupRepositoryStub struct {
	ApplyFn func(context.Context, string, model.Increments) error
	LoadFn  func(context.Context, string) (*model.SalesStats, error)

	mu      sync.Mutex
	Calls   []ApplyCall
	Rollups map[string]model.Rollup
}

// Apply records the call and merges inc unless ApplyFn overrides it.
func (s *RollupRepositoryStub) Apply(ctx context.Context, tenantID string, inc model.Increments) error {
	s.mu.Lock()
	s.Calls = append(s.Calls, ApplyCall{TenantID: tenantID, Increments: inc})
	s.mu.Unlock()

	if s.ApplyFn != nil {
		return s.ApplyFn(ctx, tenantID, inc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Rollups == nil {
		s.Rollups = make(map[string]model.Rollup)
	}
	r, ok := s.Rollups[tenantID]
	if !ok {
		r = make(model.Rollup)
		s.Rollups[tenantID] = r
	}
	r.Add(inc.Fields()...)
	return nil
}

// Load returns the folded document or ErrNotFound.
func (s *RollupRepositoryStub) Load(ctx context.Context, tenantID string) (*model.SalesStats, error) {
	if s.LoadFn != nil {
		return s.LoadFn(ctx, tenantID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.Rollups[tenantID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return model.StatsFromRollup(tenantID, r), nil
}

// CallCount returns the number of Apply invocations.
func (s *RollupRepositoryStub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// Rollup returns a copy of the tenant's folded increments.
func (s *RollupRepositoryStub) Rollup(tenantID string) model.Rollup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Merge(s.Rollups[tenantID])
}

// OnceRollupRepositoryStub adds an atomic ledger to RollupRepositoryStub.
type OnceRollupRepositoryStub struct {
	RollupRepositoryStub
	ApplyOnceFn func(context.Context, string, string, model.Increments) (bool, error)

	onceMu sync.Mutex
	Keys   map[string]struct{}
}

// ApplyOnce applies inc the first time key is seen.
func (s *OnceRollupRepositoryStub) ApplyOnce(ctx context.Context, tenantID, key string, inc model.Increments) (bool, error) {
	if s.ApplyOnceFn != nil {
		return s.ApplyOnceFn(ctx, tenantID, key, inc)
	}
	s.onceMu.Lock()
	defer s.onceMu.Unlock()
	if s.Keys == nil {
		s.Keys = make(map[string]struct{})
	}
	if _, seen := s.Keys[key]; seen {
		return false, nil
	}
	if err := s.Apply(ctx, tenantID, inc); err != nil {
		return false, err
	}
	s.Keys[key] = struct{}{}
	return true, nil
}

// LedgerStub is an in-memory EventLedger with error injection.
type LedgerStub struct {
	MarkErr    error
	ReleaseErr error

	mu       sync.Mutex
	Keys     map[string]time.Duration
	Released []string
}

// MarkApplied records key unless already present.
func (s *LedgerStub) MarkApplied(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.MarkErr != nil {
		return false, s.MarkErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Keys == nil {
		s.Keys = make(map[string]time.Duration)
	}
	if _, ok := s.Keys[key]; ok {
		return false, nil
	}
	s.Keys[key] = ttl
	return true, nil
}

// Release forgets key.
func (s *LedgerStub) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Released = append(s.Released, key)
	if s.ReleaseErr != nil {
		return s.ReleaseErr
	}
	delete(s.Keys, key)
	return nil
}

// FactoryStub exposes fixed repositories.
type FactoryStub struct {
	RollupsRepo repository.RollupRepository
	LedgerRepo  repository.EventLedger
	HealthErr   error
}

// Rollups returns the configured rollup repository.
func (f FactoryStub) Rollups() repository.RollupRepository { return f.RollupsRepo }

// Ledger returns the configured ledger, possibly nil.
func (f FactoryStub) Ledger() repository.EventLedger { return f.LedgerRepo }

// HealthCheck returns HealthErr.
func (f FactoryStub) HealthCheck(context.Context) error { return f.HealthErr }

var (
	_ repository.RollupRepository = (*RollupRepositoryStub)(nil)
	_ repository.OnceApplier      = (*OnceRollupRepositoryStub)(nil)
	_ repository.EventLedger      = (*LedgerStub)(nil)
	_ repository.Factory          = FactoryStub{}
)
