package domain

import (
	"time"

	"github.com/google/uuid"
)

// OwnerType identifies which party a wallet belongs to.
type OwnerType string

const (
	OwnerTypeCustomer OwnerType = "CUSTOMER"
	OwnerTypeVendor   OwnerType = "VENDOR"
	OwnerTypeRider    OwnerType = "RIDER"
	OwnerTypePlatform OwnerType = "PLATFORM"
	// OwnerTypeExternal marks the virtual counter-wallet of a mobile-money
	// provider. It has no balance invariant; it only keeps every external
	// transaction zero-sum inside the ledger.
	OwnerTypeExternal OwnerType = "EXTERNAL"
)

// WalletStatus represents the lifecycle state of a wallet.
// Wallets are never deleted, only closed.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "ACTIVE"
	WalletStatusFrozen WalletStatus = "FROZEN"
	WalletStatusClosed WalletStatus = "CLOSED"
)

// Wallet holds one party's balance in integer minor units. The version
// number increments on every balance write and backs optimistic concurrency:
// a leg application only commits if no other writer touched the wallet since
// the legs were computed.
type Wallet struct {
	ID             uuid.UUID    `json:"id"`
	OwnerID        string       `json:"owner_id"`
	OwnerType      OwnerType    `json:"owner_type"`
	Currency       string       `json:"currency"`
	Balance        int64        `json:"balance"` // minor units, never floating point
	Version        int64        `json:"version"`
	Status         WalletStatus `json:"status"`
	CreditEligible bool         `json:"credit_eligible"` // may go negative
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsActive returns true if the wallet can take debits and credits.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// CanDebit reports whether removing amount would violate the wallet's
// balance invariant. External and credit-eligible wallets may go negative.
func (w *Wallet) CanDebit(amount int64) bool {
	if w.CreditEligible || w.OwnerType == OwnerTypeExternal {
		return true
	}
	return w.Balance-amount >= 0
}
