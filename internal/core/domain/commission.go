package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResourceType scopes a commission rule to what is being commissioned.
type ResourceType string

const (
	ResourceTypeOrder    ResourceType = "ORDER"
	ResourceTypeDelivery ResourceType = "DELIVERY"
)

// CommissionRule is a versioned, time-scoped rate record. Rules are written
// by an administrative collaborator and read-only here; a transaction
// snapshots the rule that applied at creation time inside its legs, so a
// later rate change never rewrites history.
type CommissionRule struct {
	ID            uuid.UUID       `json:"id"`
	ResourceType  ResourceType    `json:"resource_type"`
	Rate          decimal.Decimal `json:"rate"`     // fraction, e.g. 0.10
	FlatFee       int64           `json:"flat_fee"` // minor units, added after the rate
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"` // nil = open-ended
	CreatedAt     time.Time       `json:"created_at"`
}

// AppliesAt reports whether the rule's effective window covers ts.
func (r *CommissionRule) AppliesAt(ts time.Time) bool {
	if ts.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || ts.Before(*r.EffectiveTo)
}

// OrderSplit is the outcome of splitting an order subtotal.
// platform = floor(subtotal * rate) + flat fee; the vendor absorbs the
// rounding remainder, never the platform.
type OrderSplit struct {
	VendorAmount   int64
	PlatformAmount int64
}

// DeliverySplit is the outcome of splitting a delivery fee between the
// rider and the platform.
type DeliverySplit struct {
	RiderAmount    int64
	PlatformAmount int64
}
