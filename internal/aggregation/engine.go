package aggregation

import (
	"fmt"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// Engine turns change events into rollup increments.
type Engine struct {
	keyer *DateKeyer
}

// NewEngine constructs an engine using keyer for daily bucket keys.
func NewEngine(keyer *DateKeyer) *Engine {
	if keyer == nil {
		keyer = NewDateKeyer(DatePolicyProcessing, nil)
	}
	return &Engine{keyer: keyer}
}

// Build validates ev and returns the increments it contributes. Events that
// cannot be applied yield ErrInvalidEvent or ErrMissingTenant.
func (e *Engine) Build(ev model.ChangeEvent) (model.Increments, error) {
	if ev.Kind() == model.ChangeInvalid {
		return model.Increments{}, fmt.Errorf("order %q has neither before nor after snapshot: %w", ev.OrderID, domainErrors.ErrInvalidEvent)
	}
	if ev.Tenant() == "" {
		return model.Increments{}, fmt.Errorf("order %q: %w", ev.OrderID, domainErrors.ErrMissingTenant)
	}
	if err := validateSnapshot(ev.Before); err != nil {
		return model.Increments{}, fmt.Errorf("before snapshot: %w", err)
	}
	if err := validateSnapshot(ev.After); err != nil {
		return model.Increments{}, fmt.Errorf("after snapshot: %w", err)
	}

	keys, err := e.keyer.Keys(ev)
	if err != nil {
		return model.Increments{}, err
	}

	return Plan(Compute(ev.Before, ev.After), keys), nil
}

func validateSnapshot(o *model.OrderSnapshot) error {
	if o == nil {
		return nil
	}
	if s := o.StatusKey(); s != "" && !model.ValidKeySegment(s) {
		return fmt.Errorf("status %q: %w", s, domainErrors.ErrInvalidEvent)
	}
	return nil
}
