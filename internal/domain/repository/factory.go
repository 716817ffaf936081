package repository

import "context"

// Factory describes access to the configured storage backend.
type Factory interface {
	Rollups() RollupRepository
	// Ledger returns nil when the backend keeps no separate ledger.
	Ledger() EventLedger
	HealthCheck(ctx context.Context) error
}
