package repository

import (
	"context"
	"time"
)

// EventLedger remembers which change events were already applied.
type EventLedger interface {
	// MarkApplied records key and reports whether it was not recorded before.
	MarkApplied(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so a failed apply can be redelivered.
	Release(ctx context.Context, key string) error
}
