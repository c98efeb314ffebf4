package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit      TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal   TransactionType = "WITHDRAWAL"
	TransactionTypeOrderPayment TransactionType = "ORDER_PAYMENT"
	TransactionTypePayout       TransactionType = "PAYOUT"
	TransactionTypeRefund       TransactionType = "REFUND"
	TransactionTypeReversal     TransactionType = "REVERSAL"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusCreated                TransactionStatus = "CREATED"
	StatusPendingExternal        TransactionStatus = "PENDING_EXTERNAL"
	StatusAwaitingReconciliation TransactionStatus = "AWAITING_RECONCILIATION"
	StatusApplying               TransactionStatus = "APPLYING"
	StatusCompleted              TransactionStatus = "COMPLETED"
	StatusFailed                 TransactionStatus = "FAILED"
	StatusReversed               TransactionStatus = "REVERSED"
	StatusCancelled              TransactionStatus = "CANCELLED"
)

// LegRole tags which party a leg settles, for audit readability.
type LegRole string

const (
	LegRoleCustomer LegRole = "CUSTOMER"
	LegRoleVendor   LegRole = "VENDOR"
	LegRoleRider    LegRole = "RIDER"
	LegRolePlatform LegRole = "PLATFORM"
	LegRoleExternal LegRole = "EXTERNAL"
	LegRoleOwner    LegRole = "OWNER"
)

// Leg is one wallet-scoped signed amount within a transaction. Legs are
// computed once at transaction creation and persisted with the transaction;
// commission legs snapshot the rule that produced them so the split stays
// reproducible after rule changes.
type Leg struct {
	WalletID uuid.UUID  `json:"wallet_id"`
	Amount   int64      `json:"amount"` // signed minor units
	Role     LegRole    `json:"role"`
	RuleID   *uuid.UUID `json:"rule_id,omitempty"`
}

// Transaction is a single logical funds movement touching 2+ wallets
// atomically. External DEPOSIT/WITHDRAWAL transactions include a leg against
// the provider's virtual external wallet so the sum stays zero.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	IdempotencyKey string            `json:"idempotency_key"`
	Type           TransactionType   `json:"type"`
	Status         TransactionStatus `json:"status"`
	Legs           []Leg             `json:"legs"`
	Amount         int64             `json:"amount"` // principal amount in minor units
	Currency       string            `json:"currency"`
	OrderID        *string           `json:"order_id,omitempty"`
	Provider       *string           `json:"provider,omitempty"`
	MSISDNEnc      *string           `json:"-"` // AES-GCM encrypted phone number
	ExternalRef    *string           `json:"external_ref,omitempty"`
	OriginalTxID   *uuid.UUID        `json:"original_transaction_id,omitempty"`
	FailureReason  *string           `json:"failure_reason,omitempty"`
	Deadline       *time.Time        `json:"deadline,omitempty"` // reconciliation auto-fail cutoff
	RetryCount     int               `json:"retry_count"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// legalTransitions encodes every status edge the state machine may take.
// Transitions are only driven by client creation, gateway callback/poll
// results, or reconciliation timeout decisions.
var legalTransitions = map[TransactionStatus][]TransactionStatus{
	StatusCreated:                {StatusPendingExternal, StatusApplying, StatusCancelled, StatusFailed},
	StatusPendingExternal:        {StatusAwaitingReconciliation, StatusFailed},
	StatusAwaitingReconciliation: {StatusApplying, StatusFailed, StatusReversed},
	StatusApplying:               {StatusCompleted, StatusFailed, StatusPendingExternal},
	StatusCompleted:              {StatusReversed},
}

// CanTransition reports whether moving from -> to is a legal edge.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted ||
		t.Status == StatusFailed ||
		t.Status == StatusReversed ||
		t.Status == StatusCancelled
}

// IsCancellable returns true only while no side effects exist yet.
// Anything past CREATED must go through the reversal path.
func (t *Transaction) IsCancellable() bool {
	return t.Status == StatusCreated
}

// IsRefundable returns true if this transaction can be refunded.
func (t *Transaction) IsRefundable() bool {
	return t.Type == TransactionTypeOrderPayment && t.Status == StatusCompleted
}

// IsExternal returns true for transactions funded through a payment rail.
func (t *Transaction) IsExternal() bool {
	switch t.Type {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypePayout:
		return true
	}
	return false
}

// Expired reports whether the transaction passed its reconciliation deadline.
func (t *Transaction) Expired(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline)
}

// LegSum returns the signed sum of all legs. Zero for every well-formed
// transaction: money is neither created nor destroyed internally.
func LegSum(legs []Leg) int64 {
	var sum int64
	for _, l := range legs {
		sum += l.Amount
	}
	return sum
}

// InvertLegs produces the compensating leg set for a reversal or refund.
func InvertLegs(legs []Leg) []Leg {
	inverted := make([]Leg, len(legs))
	for i, l := range legs {
		inverted[i] = Leg{WalletID: l.WalletID, Amount: -l.Amount, Role: l.Role, RuleID: l.RuleID}
	}
	return inverted
}
