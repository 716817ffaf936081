package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Field paths of the aggregate document.
const (
	PathTotalsRevenue              = "totals.revenue"
	PathTotalsCount                = "totals.count"
	PathTotalsRealizedRevenue      = "totals.realizedRevenue"
	PathTotalsRealizedCOGS         = "totals.realizedCOGS"
	PathTotalsRealizedDeliveryCost = "totals.realizedDeliveryCost"

	prefixDaily  = "daily."
	prefixStatus = "statusCounts."
	suffixRev    = ".revenue"
	suffixCount  = ".count"
)

// DailyRevenuePath returns the revenue path of a daily bucket.
func DailyRevenuePath(date string) string { return prefixDaily + date + suffixRev }

// DailyCountPath returns the count path of a daily bucket.
func DailyCountPath(date string) string { return prefixDaily + date + suffixCount }

// StatusPath returns the histogram path of a status.
func StatusPath(status string) string { return prefixStatus + status }

// TotalsIncrement holds the increments of the totals section.
type TotalsIncrement struct {
	Revenue              decimal.Decimal
	Count                int64
	RealizedRevenue      decimal.Decimal
	RealizedCOGS         decimal.Decimal
	RealizedDeliveryCost decimal.Decimal
}

// DailyIncrement holds the increments of one daily bucket.
type DailyIncrement struct {
	Revenue decimal.Decimal
	Count   int64
}

// Increments is the typed set of field increments produced for one event.
// The only paths it can render are the ones listed above.
type Increments struct {
	Totals TotalsIncrement
	Daily  map[string]DailyIncrement
	Status map[string]int64
}

// AddDaily accumulates revenue and count into the bucket for date.
func (i *Increments) AddDaily(date string, revenue decimal.Decimal, count int64) {
	if i.Daily == nil {
		i.Daily = make(map[string]DailyIncrement)
	}
	b := i.Daily[date]
	b.Revenue = b.Revenue.Add(revenue)
	b.Count += count
	i.Daily[date] = b
}

// AddStatus accumulates n into the histogram bucket for status.
func (i *Increments) AddStatus(status string, n int64) {
	if i.Status == nil {
		i.Status = make(map[string]int64)
	}
	i.Status[status] += n
}

// FieldIncrement is a single dotted path and its signed increment.
type FieldIncrement struct {
	Path  string
	Value decimal.Decimal
	// Counter marks integral count fields.
	Counter bool
}

// Fields renders the non-zero increments sorted by path.
func (i Increments) Fields() []FieldIncrement {
	var out []FieldIncrement
	add := func(path string, v decimal.Decimal, counter bool) {
		if v.IsZero() {
			return
		}
		out = append(out, FieldIncrement{Path: path, Value: v, Counter: counter})
	}

	add(PathTotalsRevenue, i.Totals.Revenue, false)
	add(PathTotalsCount, decimal.NewFromInt(i.Totals.Count), true)
	add(PathTotalsRealizedRevenue, i.Totals.RealizedRevenue, false)
	add(PathTotalsRealizedCOGS, i.Totals.RealizedCOGS, false)
	add(PathTotalsRealizedDeliveryCost, i.Totals.RealizedDeliveryCost, false)
	for date, b := range i.Daily {
		add(DailyRevenuePath(date), b.Revenue, false)
		add(DailyCountPath(date), decimal.NewFromInt(b.Count), true)
	}
	for status, n := range i.Status {
		add(StatusPath(status), decimal.NewFromInt(n), true)
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Path < out[b].Path })
	return out
}

// IsEmpty reports whether applying the increments would change nothing.
func (i Increments) IsEmpty() bool {
	return len(i.Fields()) == 0
}

// Map renders the increments as a flat path → value map.
func (i Increments) Map() map[string]decimal.Decimal {
	fields := i.Fields()
	m := make(map[string]decimal.Decimal, len(fields))
	for _, f := range fields {
		m[f.Path] = f.Value
	}
	return m
}
