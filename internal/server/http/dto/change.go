package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/salesrollup/internal/domain/model"
)

// OrderSnapshot is an order image as sent by producers. Amounts accept JSON
// numbers or numeric strings.
type OrderSnapshot struct {
	TenantID         string              `json:"tenantId,omitempty"`
	Price            decimal.NullDecimal `json:"price"`
	Quantity         decimal.NullDecimal `json:"quantity"`
	CostPrice        decimal.NullDecimal `json:"costPrice"`
	RealDeliveryCost decimal.NullDecimal `json:"realDeliveryCost"`
	IsPaid           bool                `json:"isPaid"`
	Status           string              `json:"status,omitempty"`
	Date             string              `json:"date,omitempty"`
}

// ChangeRequest describes one order mutation. A missing before image means
// creation and a missing after image means deletion.
type ChangeRequest struct {
	Revision   string         `json:"revision"`
	OccurredAt *time.Time     `json:"occurredAt,omitempty"`
	Before     *OrderSnapshot `json:"before"`
	After      *OrderSnapshot `json:"after"`
}

// ChangeAccepted acknowledges a queued change.
type ChangeAccepted struct {
	TenantID string `json:"tenantId"`
	OrderID  string `json:"orderId"`
	Revision string `json:"revision,omitempty"`
}

// ToEvent builds the change event routed to tenantID.
func (r ChangeRequest) ToEvent(tenantID, orderID string) model.ChangeEvent {
	ev := model.ChangeEvent{
		TenantID: tenantID,
		OrderID:  orderID,
		Revision: r.Revision,
		Before:   r.Before.toModel(),
		After:    r.After.toModel(),
	}
	if r.OccurredAt != nil {
		ev.OccurredAt = *r.OccurredAt
	}
	return ev
}

// ForeignTenant reports whether a snapshot names a tenant other than tenantID.
func (r ChangeRequest) ForeignTenant(tenantID string) bool {
	for _, s := range []*OrderSnapshot{r.Before, r.After} {
		if s != nil && s.TenantID != "" && s.TenantID != tenantID {
			return true
		}
	}
	return false
}

func (s *OrderSnapshot) toModel() *model.OrderSnapshot {
	if s == nil {
		return nil
	}
	return &model.OrderSnapshot{
		TenantID:         s.TenantID,
		Price:            s.Price,
		Quantity:         s.Quantity,
		CostPrice:        s.CostPrice,
		RealDeliveryCost: s.RealDeliveryCost,
		IsPaid:           s.IsPaid,
		Status:           s.Status,
		Date:             s.Date,
	}
}
