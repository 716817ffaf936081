package model

import (
	"strings"
	"time"
)

// ChangeKind classifies a (before, after) snapshot pair.
type ChangeKind string

const (
	ChangeCreate  ChangeKind = "create"
	ChangeUpdate  ChangeKind = "update"
	ChangeDelete  ChangeKind = "delete"
	ChangeInvalid ChangeKind = "invalid"
)

// ChangeEvent is one mutation of an order record as delivered by an event source.
type ChangeEvent struct {
	TenantID string
	OrderID  string
	// Revision identifies the mutation within the order's history. It is stable
	// across redeliveries of the same mutation.
	Revision   string
	OccurredAt time.Time
	Before     *OrderSnapshot
	After      *OrderSnapshot
}

// Kind reports which transition the event describes.
func (e ChangeEvent) Kind() ChangeKind {
	switch {
	case e.Before == nil && e.After != nil:
		return ChangeCreate
	case e.Before != nil && e.After == nil:
		return ChangeDelete
	case e.Before != nil && e.After != nil:
		return ChangeUpdate
	default:
		return ChangeInvalid
	}
}

// Tenant returns the routing tenant, falling back to the snapshots' tenantId.
func (e ChangeEvent) Tenant() string {
	if t := strings.TrimSpace(e.TenantID); t != "" {
		return t
	}
	if e.After != nil && strings.TrimSpace(e.After.TenantID) != "" {
		return strings.TrimSpace(e.After.TenantID)
	}
	if e.Before != nil {
		return strings.TrimSpace(e.Before.TenantID)
	}
	return ""
}

// Key returns the ledger identifier tenant/order/revision, or an empty string
// when the event carries no revision and cannot be deduplicated.
func (e ChangeEvent) Key() string {
	if e.Revision == "" || e.OrderID == "" {
		return ""
	}
	return e.Tenant() + "/" + e.OrderID + "/" + e.Revision
}
