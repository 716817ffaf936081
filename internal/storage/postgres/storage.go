package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage keeps rollups as one NUMERIC row per tenant and field path.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Rollups returns the storage itself; it also implements repository.OnceApplier.
func (s *Storage) Rollups() repository.RollupRepository {
	return s
}

// Ledger returns nil: applied events are recorded by ApplyOnce in the same
// transaction as the merge.
func (s *Storage) Ledger() repository.EventLedger {
	return nil
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sales_rollups (
            tenant_id TEXT NOT NULL,
            field_path TEXT NOT NULL,
            value NUMERIC NOT NULL DEFAULT 0,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (tenant_id, field_path)
        )`,
		`CREATE TABLE IF NOT EXISTS applied_events (
            event_key TEXT PRIMARY KEY,
            tenant_id TEXT NOT NULL,
            applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_applied_events_applied_at ON applied_events(applied_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const upsertField = `INSERT INTO sales_rollups (tenant_id, field_path, value)
                     VALUES ($1, $2, $3::numeric)
                     ON CONFLICT (tenant_id, field_path) DO UPDATE
                     SET value = sales_rollups.value + EXCLUDED.value, updated_at = NOW()`

// applyTx upserts fields in path order so concurrent merges on one tenant
// lock rows in the same sequence.
func (s *Storage) applyTx(ctx context.Context, tx pgx.Tx, tenantID string, fields []model.FieldIncrement) error {
	for _, f := range fields {
		if _, err := tx.Exec(ctx, upsertField, tenantID, f.Path, f.Value.String()); err != nil {
			return fmt.Errorf("merge %s: %w", f.Path, err)
		}
	}
	return nil
}

// Apply merges inc into the tenant rollup in one transaction.
func (s *Storage) Apply(ctx context.Context, tenantID string, inc model.Increments) error {
	fields := inc.Fields()
	if len(fields) == 0 {
		return nil
	}
	return s.WithinTransaction(ctx, func(tx pgx.Tx) error {
		return s.applyTx(ctx, tx, tenantID, fields)
	})
}

// ApplyOnce records key in applied_events and merges inc in the same
// transaction. It returns false when key was already recorded.
func (s *Storage) ApplyOnce(ctx context.Context, tenantID, key string, inc model.Increments) (bool, error) {
	const insertEvent = `INSERT INTO applied_events (event_key, tenant_id) VALUES ($1, $2)
                         ON CONFLICT (event_key) DO NOTHING`

	applied := false
	err := s.WithinTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertEvent, key, tenantID)
		if err != nil {
			return fmt.Errorf("record applied event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		applied = true
		return s.applyTx(ctx, tx, tenantID, inc.Fields())
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Load reads every field of the tenant rollup.
func (s *Storage) Load(ctx context.Context, tenantID string) (*model.SalesStats, error) {
	const query = `SELECT field_path, value::text, updated_at FROM sales_rollups WHERE tenant_id=$1`
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rollup := make(model.Rollup)
	var updatedAt time.Time
	for rows.Next() {
		var (
			path, raw string
			updated   time.Time
		)
		if err := rows.Scan(&path, &raw, &updated); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		rollup[path] = v
		if updated.After(updatedAt) {
			updatedAt = updated
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rollup) == 0 {
		return nil, domainErrors.ErrNotFound
	}

	stats := model.StatsFromRollup(tenantID, rollup)
	if !updatedAt.IsZero() {
		stats.UpdatedAt = &updatedAt
	}
	return stats, nil
}

// Prune deletes applied-event keys recorded before cutoff.
func (s *Storage) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM applied_events WHERE applied_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune applied events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

var (
	_ repository.Factory     = (*Storage)(nil)
	_ repository.OnceApplier = (*Storage)(nil)
)
