// Package memory keeps rollups in process memory. It suits a single instance
// and tests.
package memory

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
)

// Storage folds increments into one model.Rollup per tenant.
type Storage struct {
	mu      sync.Mutex
	rollups map[string]model.Rollup
	updated map[string]time.Time
	applied map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// New returns an empty store. Applied-event keys older than ttl are
// forgotten; a non-positive ttl keeps them forever.
func New(ttl time.Duration) *Storage {
	return &Storage{
		rollups: make(map[string]model.Rollup),
		updated: make(map[string]time.Time),
		applied: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Storage) merge(tenantID string, fields []model.FieldIncrement) {
	r, ok := s.rollups[tenantID]
	if !ok {
		r = make(model.Rollup)
		s.rollups[tenantID] = r
	}
	r.Add(fields...)
	s.updated[tenantID] = s.now().UTC()
}

// Apply merges inc into the tenant rollup.
func (s *Storage) Apply(_ context.Context, tenantID string, inc model.Increments) error {
	fields := inc.Fields()
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(tenantID, fields)
	return nil
}

// ApplyOnce merges inc unless key was applied within the ttl.
func (s *Storage) ApplyOnce(_ context.Context, tenantID, key string, inc model.Increments) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.applied[key]; ok && (s.ttl <= 0 || now.Sub(at) < s.ttl) {
		return false, nil
	}
	s.applied[key] = now
	if fields := inc.Fields(); len(fields) > 0 {
		s.merge(tenantID, fields)
	}
	return true, nil
}

// Load returns a copy of the tenant rollup.
func (s *Storage) Load(_ context.Context, tenantID string) (*model.SalesStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rollups[tenantID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	stats := model.StatsFromRollup(tenantID, r)
	updated := s.updated[tenantID]
	stats.UpdatedAt = &updated
	return stats, nil
}

// Prune forgets applied-event keys recorded before cutoff.
func (s *Storage) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, at := range s.applied {
		if at.Before(cutoff) {
			delete(s.applied, key)
			n++
		}
	}
	return n, nil
}

// Rollups returns the storage itself.
func (s *Storage) Rollups() repository.RollupRepository { return s }

// Ledger returns nil; ApplyOnce covers deduplication.
func (s *Storage) Ledger() repository.EventLedger { return nil }

// HealthCheck always succeeds.
func (s *Storage) HealthCheck(context.Context) error { return nil }

var (
	_ repository.Factory     = (*Storage)(nil)
	_ repository.OnceApplier = (*Storage)(nil)
)
