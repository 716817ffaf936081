package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/aggregation"
	"github.com/polkiloo/salesrollup/internal/config"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(newRollupUseCase)

func newRollupUseCase(engine *aggregation.Engine, storage repository.Factory, cfg *config.Config, logger *slog.Logger) *RollupUseCase {
	opts := RollupOptions{Dedup: cfg.LedgerEnabled, LedgerTTL: cfg.LedgerTTL}
	return NewRollupUseCase(engine, storage.Rollups(), storage.Ledger(), opts, logger)
}
