package aggregation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/salesrollup/internal/domain/model"
)

type snap struct {
	price, quantity, cost, delivery string
	paid                            bool
	status, date                    string
}

func (s snap) build() *model.OrderSnapshot {
	o := &model.OrderSnapshot{TenantID: "store-1", IsPaid: s.paid, Status: s.status, Date: s.date}
	set := func(dst *decimal.NullDecimal, v string) {
		if v != "" {
			*dst = decimal.NewNullDecimal(decimal.RequireFromString(v))
		}
	}
	set(&o.Price, s.price)
	set(&o.Quantity, s.quantity)
	set(&o.CostPrice, s.cost)
	set(&o.RealDeliveryCost, s.delivery)
	return o
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedKeyer(policy DatePolicy, now time.Time) *DateKeyer {
	k := NewDateKeyer(policy, time.UTC)
	k.now = func() time.Time { return now }
	return k
}

func assertIncrements(t interface {
	Helper()
	Fatalf(string, ...any)
}, inc model.Increments, want map[string]string) {
	t.Helper()
	got := inc.Map()
	if len(got) != len(want) {
		t.Fatalf("expected %d increments %v, got %d %v", len(want), want, len(got), got)
	}
	for path, v := range want {
		g, ok := got[path]
		if !ok {
			t.Fatalf("missing increment %s in %v", path, got)
		}
		if !g.Equal(d(v)) {
			t.Fatalf("increment %s: expected %s, got %s", path, v, g)
		}
	}
}
