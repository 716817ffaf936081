package aggregation

import (
	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/config"
)

// Module provides the aggregation engine.
var Module = fx.Provide(
	newDateKeyerFromConfig,
	NewEngine,
)

func newDateKeyerFromConfig(cfg *config.Config) (*DateKeyer, error) {
	policy, err := ParseDatePolicy(cfg.DateFallbackPolicy)
	if err != nil {
		return nil, err
	}
	return NewDateKeyer(policy, cfg.Location), nil
}
