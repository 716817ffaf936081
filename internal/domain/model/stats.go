package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Totals is the running totals section of the aggregate document.
type Totals struct {
	Revenue              decimal.Decimal `json:"revenue"`
	Count                int64           `json:"count"`
	RealizedRevenue      decimal.Decimal `json:"realizedRevenue"`
	RealizedCOGS         decimal.Decimal `json:"realizedCOGS"`
	RealizedDeliveryCost decimal.Decimal `json:"realizedDeliveryCost"`
}

// DailyBucket is one entry of the daily time series.
type DailyBucket struct {
	Revenue decimal.Decimal `json:"revenue"`
	Count   int64           `json:"count"`
}

// SalesStats is the per-tenant aggregate document read by reporting features.
type SalesStats struct {
	TenantID     string                 `json:"tenantId"`
	Totals       Totals                 `json:"totals"`
	Daily        map[string]DailyBucket `json:"daily"`
	StatusCounts map[string]int64       `json:"statusCounts"`
	UpdatedAt    *time.Time             `json:"updatedAt,omitempty"`
}

// NewSalesStats returns an empty document for tenantID.
func NewSalesStats(tenantID string) *SalesStats {
	return &SalesStats{
		TenantID:     tenantID,
		Daily:        make(map[string]DailyBucket),
		StatusCounts: make(map[string]int64),
	}
}

// StatsFromRollup shapes a flat rollup into the document layout. Unknown paths
// are ignored.
func StatsFromRollup(tenantID string, r Rollup) *SalesStats {
	stats := NewSalesStats(tenantID)
	for path, v := range r {
		switch path {
		case PathTotalsRevenue:
			stats.Totals.Revenue = v
		case PathTotalsCount:
			stats.Totals.Count = v.IntPart()
		case PathTotalsRealizedRevenue:
			stats.Totals.RealizedRevenue = v
		case PathTotalsRealizedCOGS:
			stats.Totals.RealizedCOGS = v
		case PathTotalsRealizedDeliveryCost:
			stats.Totals.RealizedDeliveryCost = v
		default:
			stats.place(path, v)
		}
	}
	return stats
}

func (s *SalesStats) place(path string, v decimal.Decimal) {
	if status, ok := strings.CutPrefix(path, prefixStatus); ok {
		s.StatusCounts[status] = v.IntPart()
		return
	}
	rest, ok := strings.CutPrefix(path, prefixDaily)
	if !ok {
		return
	}
	if date, ok := strings.CutSuffix(rest, suffixRev); ok {
		b := s.Daily[date]
		b.Revenue = v
		s.Daily[date] = b
		return
	}
	if date, ok := strings.CutSuffix(rest, suffixCount); ok {
		b := s.Daily[date]
		b.Count = v.IntPart()
		s.Daily[date] = b
	}
}

// DailyRevenueSum returns Σ daily.*.revenue.
func (s *SalesStats) DailyRevenueSum() decimal.Decimal {
	sum := decimal.Zero
	for _, b := range s.Daily {
		sum = sum.Add(b.Revenue)
	}
	return sum
}

// DailyCountSum returns Σ daily.*.count.
func (s *SalesStats) DailyCountSum() int64 {
	var sum int64
	for _, b := range s.Daily {
		sum += b.Count
	}
	return sum
}

// StatusCountSum returns Σ statusCounts.*.
func (s *SalesStats) StatusCountSum() int64 {
	var sum int64
	for _, n := range s.StatusCounts {
		sum += n
	}
	return sum
}
