package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind marks the direction of a ledger entry.
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

// LedgerEntry is an immutable, append-only record of one balance change.
// Corrections are new entries, never mutations: replaying a wallet's entries
// in insertion order must reproduce its current balance exactly.
type LedgerEntry struct {
	ID            uuid.UUID `json:"id"`
	WalletID      uuid.UUID `json:"wallet_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        int64     `json:"amount"`        // signed minor units
	BalanceAfter  int64     `json:"balance_after"` // for audit replay checks
	Kind          EntryKind `json:"kind"`
	CreatedAt     time.Time `json:"created_at"`
}

// KindForAmount returns the entry kind matching a signed leg amount.
func KindForAmount(amount int64) EntryKind {
	if amount < 0 {
		return EntryKindDebit
	}
	return EntryKindCredit
}
