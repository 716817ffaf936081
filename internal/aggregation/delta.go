package aggregation

import (
	"github.com/shopspring/decimal"

	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// Delta is the signed contribution of one order transition to the rollup.
type Delta struct {
	Kind model.ChangeKind

	Revenue          decimal.Decimal
	Count            int64
	RealizedRevenue  decimal.Decimal
	RealizedCost     decimal.Decimal
	RealizedDelivery decimal.Decimal

	// Pre and post mutation values the planner needs for bucket moves.
	BeforeValue  decimal.Decimal
	AfterValue   decimal.Decimal
	BeforeStatus string
	AfterStatus  string
	BeforeDate   string
	AfterDate    string
}

type realized struct {
	revenue, cost, delivery decimal.Decimal
}

func realizedOf(o *model.OrderSnapshot) realized {
	if o == nil || !o.IsRealized() {
		return realized{}
	}
	return realized{revenue: o.OrderValue(), cost: o.CostValue(), delivery: o.DeliveryValue()}
}

// Compute derives the delta of a (before, after) pair. A nil before means the
// order was created, a nil after that it was deleted. Both nil is a caller bug
// and panics.
func Compute(before, after *model.OrderSnapshot) Delta {
	if before == nil && after == nil {
		panic("aggregation: change event without before and after snapshots")
	}

	var d Delta
	if before != nil {
		d.BeforeValue = before.OrderValue()
		d.BeforeStatus = before.StatusKey()
		d.BeforeDate = before.Date
	}
	if after != nil {
		d.AfterValue = after.OrderValue()
		d.AfterStatus = after.StatusKey()
		d.AfterDate = after.Date
	}

	// realizedOf is zero for an absent or unrealized snapshot, so the four
	// isRealized transitions reduce to after minus before.
	pre, post := realizedOf(before), realizedOf(after)
	d.RealizedRevenue = post.revenue.Sub(pre.revenue)
	d.RealizedCost = post.cost.Sub(pre.cost)
	d.RealizedDelivery = post.delivery.Sub(pre.delivery)
	d.Revenue = d.AfterValue.Sub(d.BeforeValue)

	switch {
	case before == nil:
		d.Kind = model.ChangeCreate
		d.Count = 1
	case after == nil:
		d.Kind = model.ChangeDelete
		d.Count = -1
	default:
		d.Kind = model.ChangeUpdate
	}
	return d
}
