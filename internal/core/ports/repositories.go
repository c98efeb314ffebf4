package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside the leg-application transaction.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID string, currency string) (*domain.Wallet, error)
	GetInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// UpdateBalanceVersioned performs the optimistic-concurrency write:
	// the balance only changes if the wallet still carries expectedVersion.
	// Returns false (and no error) when another writer won the race.
	UpdateBalanceVersioned(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance int64, expectedVersion int64) (bool, error)
	UpdateStatus(ctx context.Context, walletID uuid.UUID, status domain.WalletStatus) error
}

// LedgerRepository defines persistence for the append-only ledger.
type LedgerRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.LedgerEntry, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error)
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	GetByExternalRef(ctx context.Context, externalRef string) (*domain.Transaction, error)
	// TransitionStatus conditionally moves id from -> to. Returns false when
	// the transaction was not in `from` anymore; concurrent workers racing on
	// the same transition simply no-op.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error)
	SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error
	SetFailureReason(ctx context.Context, id uuid.UUID, reason string) error
	IncrementRetryCount(ctx context.Context, id uuid.UUID) error
	// ListAwaitingReconciliation returns transactions stuck in
	// AWAITING_RECONCILIATION created before cutoff, excluding those already
	// parked in the manual-review queue.
	ListAwaitingReconciliation(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error)
}

// CommissionRuleRepository reads rate configuration. Rules are written by an
// administrative collaborator; this core never mutates them.
type CommissionRuleRepository interface {
	GetEffective(ctx context.Context, resourceType domain.ResourceType, at time.Time) (*domain.CommissionRule, error)
}

// ReviewRepository is the manual-review queue for reconciliation mismatches.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.ReconciliationReview) error
	ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error)
	List(ctx context.Context, limit int) ([]domain.ReconciliationReview, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
