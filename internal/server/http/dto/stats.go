package dto

import (
	"time"

	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// TotalsResponse renders the totals section. Money is a decimal string.
type TotalsResponse struct {
	Revenue              string `json:"revenue"`
	Count                int64  `json:"count"`
	RealizedRevenue      string `json:"realizedRevenue"`
	RealizedCOGS         string `json:"realizedCOGS"`
	RealizedDeliveryCost string `json:"realizedDeliveryCost"`
}

// DailyResponse renders one daily bucket.
type DailyResponse struct {
	Revenue string `json:"revenue"`
	Count   int64  `json:"count"`
}

// StatsResponse is the aggregate document of a tenant.
type StatsResponse struct {
	TenantID     string                   `json:"tenantId"`
	Totals       TotalsResponse           `json:"totals"`
	Daily        map[string]DailyResponse `json:"daily"`
	StatusCounts map[string]int64         `json:"statusCounts"`
	UpdatedAt    *time.Time               `json:"updatedAt,omitempty"`
}

// NewStatsResponse converts stats for the wire.
func NewStatsResponse(stats *model.SalesStats) StatsResponse {
	resp := StatsResponse{
		TenantID: stats.TenantID,
		Totals: TotalsResponse{
			Revenue:              stats.Totals.Revenue.String(),
			Count:                stats.Totals.Count,
			RealizedRevenue:      stats.Totals.RealizedRevenue.String(),
			RealizedCOGS:         stats.Totals.RealizedCOGS.String(),
			RealizedDeliveryCost: stats.Totals.RealizedDeliveryCost.String(),
		},
		Daily:        make(map[string]DailyResponse, len(stats.Daily)),
		StatusCounts: make(map[string]int64, len(stats.StatusCounts)),
		UpdatedAt:    stats.UpdatedAt,
	}
	for date, b := range stats.Daily {
		resp.Daily[date] = DailyResponse{Revenue: b.Revenue.String(), Count: b.Count}
	}
	for status, n := range stats.StatusCounts {
		resp.StatusCounts[status] = n
	}
	return resp
}

// HealthResponse reports service readiness.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
