package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OrderSnapshot is the state of an order record at one point of its lifecycle.
// Numeric fields accept JSON numbers or numeric strings; absent values fall back
// to their defaults when derived quantities are computed.
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

// OrderValue returns price × quantity.
func (o *OrderSnapshot) OrderValue() decimal.Decimal {
	return o.price().Mul(o.quantity())
}

// CostValue returns costPrice × quantity.
func (o *OrderSnapshot) CostValue() decimal.Decimal {
	return valueOr(o.CostPrice, decimal.Zero).Mul(o.quantity())
}

// DeliveryValue returns the logistics cost actually incurred.
func (o *OrderSnapshot) DeliveryValue() decimal.Decimal {
	return valueOr(o.RealDeliveryCost, decimal.Zero)
}

// IsRealized reports whether cash has been collected for the order.
func (o *OrderSnapshot) IsRealized() bool {
	return o.IsPaid
}

// StatusKey returns the trimmed status, empty when absent.
func (o *OrderSnapshot) StatusKey() string {
	return strings.TrimSpace(o.Status)
}

func (o *OrderSnapshot) price() decimal.Decimal {
	return valueOr(o.Price, decimal.Zero)
}

func (o *OrderSnapshot) quantity() decimal.Decimal {
	return valueOr(o.Quantity, decimal.NewFromInt(1))
}

func valueOr(v decimal.NullDecimal, def decimal.Decimal) decimal.Decimal {
	if !v.Valid {
		return def
	}
	return v.Decimal
}

// ValidKeySegment reports whether s can be used as one segment of a dotted
// document field path.
func ValidKeySegment(s string) bool {
	return s != "" && !strings.Contains(s, ".") && !strings.HasPrefix(s, "$")
}
