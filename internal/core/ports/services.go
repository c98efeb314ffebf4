package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// --- Wallet Core ---

// ApplyResult is the outcome of one atomic leg application.
type ApplyResult struct {
	TransactionID uuid.UUID
	Entries       []domain.LedgerEntry
	// Replayed is true when the transaction id had already been applied and
	// the prior result was returned instead of re-applying.
	Replayed bool
}

// WalletService is the Wallet Core: it owns balance invariants and the
// single atomic multi-wallet primitive.
type WalletService interface {
	CreateWallet(ctx context.Context, ownerID string, ownerType domain.OwnerType, currency string) (*domain.Wallet, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (balance int64, version int64, err error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	// ApplyTransactionLegs applies all legs in one durable transaction with
	// optimistic concurrency per wallet. Idempotent keyed by transactionID.
	ApplyTransactionLegs(ctx context.Context, transactionID uuid.UUID, legs []domain.Leg) (*ApplyResult, error)
	// ExternalWallet resolves (creating on first use) the virtual
	// counter-wallet for a provider.
	ExternalWallet(ctx context.Context, provider string, currency string) (*domain.Wallet, error)
}

// --- Commission Engine ---

// CommissionEngine is a pure split calculator; it never touches storage.
type CommissionEngine interface {
	SplitOrder(subtotal int64, rule *domain.CommissionRule) domain.OrderSplit
	SplitDelivery(deliveryFee int64, rule *domain.CommissionRule) domain.DeliverySplit
}

// RuleSource supplies the commission rule effective at a point in time.
type RuleSource interface {
	Effective(ctx context.Context, resourceType domain.ResourceType, at time.Time) (*domain.CommissionRule, error)
}

// --- Transaction State Machine ---

// DepositRequest holds validated input for an externally funded deposit.
type DepositRequest struct {
	IdempotencyKey string
	WalletID       uuid.UUID
	Amount         int64
	Provider       string
	PhoneNumber    string
}

// WithdrawalRequest holds validated input for a withdrawal or payout.
type WithdrawalRequest struct {
	IdempotencyKey string
	WalletID       uuid.UUID
	Amount         int64
	Provider       string
	PhoneNumber    string
}

// OrderPaymentRequest holds validated input for an internal order payment.
type OrderPaymentRequest struct {
	IdempotencyKey   string
	OrderID          string
	CustomerWalletID uuid.UUID
}

// RefundRequest holds validated input for refunding a completed order payment.
type RefundRequest struct {
	IdempotencyKey        string
	OriginalTransactionID uuid.UUID
	Reason                string
}

// TransactionService is the Transaction State Machine: the only writer of
// transaction status transitions.
type TransactionService interface {
	CreateOrderPayment(ctx context.Context, req OrderPaymentRequest) (*domain.Transaction, error)
	CreateDeposit(ctx context.Context, req DepositRequest) (*domain.Transaction, error)
	CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (*domain.Transaction, error)
	CreatePayout(ctx context.Context, req WithdrawalRequest) (*domain.Transaction, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	CancelTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// ConfirmExternal completes an externally funded transaction after the
	// provider's authoritative record matched. Driven only by reconciliation.
	ConfirmExternal(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// FailExternal fails an externally funded transaction, synthesizing a
	// REVERSAL when funds were already held.
	FailExternal(ctx context.Context, id uuid.UUID, reason string) (*domain.Transaction, error)
}

// --- Reconciliation ---

// WebhookEvent is the authenticated payload of an inbound provider callback.
type WebhookEvent struct {
	Provider    string
	ExternalRef string
	Status      string // provider-side status vocabulary, already normalized
	Amount      int64
	ConfirmedAt time.Time
}

// ReconciliationService confirms, fails, or parks externally funded
// transactions against the provider's authoritative record.
type ReconciliationService interface {
	// HandleCallback processes a verified provider webhook. Replays are
	// detected by (provider, externalRef, status) and ignored.
	HandleCallback(ctx context.Context, event WebhookEvent) error
	// RunOnce performs one polling sweep over aged AWAITING_RECONCILIATION
	// transactions. Safe to run from many workers concurrently.
	RunOnce(ctx context.Context) error
	// Run polls on a fixed interval until ctx is done.
	Run(ctx context.Context)
}

// --- Supporting services ---

// EncryptionService handles AES-256-GCM encryption of phone numbers at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService validates platform-issued service-to-service JWTs.
type TokenService interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed service token claims.
type TokenClaims struct {
	ServiceName string
}

// IdempotencyCache is the Redis fast path in front of the durable
// idempotency check on the transactions table.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ReplayGuard suppresses duplicate provider callbacks.
type ReplayGuard interface {
	// FirstSeen atomically records the event key. Returns true on first
	// sighting, false for a replay.
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Notifier is the fire-and-forget sink for transaction lifecycle events and
// operator alerts.
type Notifier interface {
	TransactionEvent(ctx context.Context, txn *domain.Transaction, event string)
	Alert(ctx context.Context, message string, txnID uuid.UUID)
}

// OrderTotal is what the order/catalog collaborator knows about an order.
type OrderTotal struct {
	OrderID     string
	Subtotal    int64
	DeliveryFee int64
	VendorID    string
	RiderID     *string
}

// OrderClient fetches order totals from the order/catalog collaborator.
type OrderClient interface {
	GetOrderTotal(ctx context.Context, orderID string) (*OrderTotal, error)
}
