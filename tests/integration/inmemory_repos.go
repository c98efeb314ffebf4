package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Transactor ---

// memTransactor serializes leg applications with a single lock, standing in
// for the database's transaction isolation. Writes issued inside a
// transaction are staged on the memTx and only become visible on Commit, so
// a mid-transaction failure rolls back cleanly just like the real thing.
type memTransactor struct {
	mu sync.Mutex
}

func newMemTransactor() *memTransactor {
	return &memTransactor{}
}

func (t *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: t.mu.Unlock}, nil
}

// memTx is a pgx.Tx stand-in that stages writes until Commit.
type memTx struct {
	release func()
	stage   []func()
	done    bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	for _, apply := range t.stage {
		apply()
	}
	t.done = true
	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.stage = nil
	t.done = true
	t.release()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- In-Memory Wallet Repo ---

type memWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *memWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.OwnerID == w.OwnerID && existing.Currency == w.Currency {
			return apperror.ErrWalletExists(w.OwnerID, w.Currency)
		}
	}
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *memWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, apperror.ErrNotFound("wallet")
	}
	cp := *w
	return &cp, nil
}

func (r *memWalletRepo) GetByOwner(ctx context.Context, ownerID string, currency string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID && w.Currency == currency {
			cp := *w
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound("wallet")
}

func (r *memWalletRepo) GetInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *memWalletRepo) UpdateBalanceVersioned(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance int64, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return false, apperror.ErrNotFound("wallet")
	}
	if w.Version != expectedVersion {
		return false, nil
	}
	write := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		w.Balance = newBalance
		w.Version = expectedVersion + 1
		w.UpdatedAt = time.Now()
	}
	if mt, ok := tx.(*memTx); ok {
		mt.stage = append(mt.stage, write)
		return true, nil
	}
	w.Balance = newBalance
	w.Version = expectedVersion + 1
	w.UpdatedAt = time.Now()
	return true, nil
}

func (r *memWalletRepo) UpdateStatus(ctx context.Context, walletID uuid.UUID, status domain.WalletStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return apperror.ErrNotFound("wallet")
	}
	w.Status = status
	w.UpdatedAt = time.Now()
	return nil
}

// --- In-Memory Ledger Repo ---

type memLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{}
}

func (r *memLedgerRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	e := *entry
	e.CreatedAt = time.Now()
	write := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = append(r.entries, e)
	}
	if mt, ok := tx.(*memTx); ok {
		mt.stage = append(mt.stage, write)
		return nil
	}
	write()
	return nil
}

func (r *memLedgerRepo) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, e := range r.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, e := range r.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- In-Memory Transaction Repo ---

type memTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{transactions: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *memTransactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.transactions {
		if existing.IdempotencyKey == txn.IdempotencyKey {
			return apperror.ErrAlreadyApplied(existing.ID.String())
		}
	}
	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	cp := *txn
	r.transactions[txn.ID] = &cp
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, apperror.ErrNotFound("transaction")
	}
	cp := *t
	return &cp, nil
}

func (r *memTransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.IdempotencyKey == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound("transaction")
}

func (r *memTransactionRepo) GetByExternalRef(ctx context.Context, externalRef string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.ExternalRef != nil && *t.ExternalRef == externalRef {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound("transaction")
}

func (r *memTransactionRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return false, apperror.ErrNotFound("transaction")
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *memTransactionRepo) SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return apperror.ErrNotFound("transaction")
	}
	ref := externalRef
	t.ExternalRef = &ref
	t.UpdatedAt = time.Now()
	return nil
}

func (r *memTransactionRepo) SetFailureReason(ctx context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return apperror.ErrNotFound("transaction")
	}
	msg := reason
	t.FailureReason = &msg
	t.UpdatedAt = time.Now()
	return nil
}

func (r *memTransactionRepo) IncrementRetryCount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return apperror.ErrNotFound("transaction")
	}
	t.RetryCount++
	t.UpdatedAt = time.Now()
	return nil
}

func (r *memTransactionRepo) ListAwaitingReconciliation(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.transactions {
		if t.Status == domain.StatusAwaitingReconciliation && t.CreatedAt.Before(cutoff) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- In-Memory Commission Rule Repo ---

type memRuleRepo struct {
	mu    sync.RWMutex
	rules []domain.CommissionRule
}

func newMemRuleRepo(rules ...domain.CommissionRule) *memRuleRepo {
	return &memRuleRepo{rules: rules}
}

func (r *memRuleRepo) GetEffective(ctx context.Context, resourceType domain.ResourceType, at time.Time) (*domain.CommissionRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.rules {
		rule := r.rules[i]
		if rule.ResourceType == resourceType && rule.AppliesAt(at) {
			cp := rule
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound("commission rule")
}

// --- In-Memory Review Repo ---

type memReviewRepo struct {
	mu      sync.RWMutex
	reviews []domain.ReconciliationReview
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{}
}

func (r *memReviewRepo) Create(ctx context.Context, review *domain.ReconciliationReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv := *review
	rv.CreatedAt = time.Now()
	r.reviews = append(r.reviews, rv)
	return nil
}

func (r *memReviewRepo) ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rv := range r.reviews {
		if rv.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memReviewRepo) List(ctx context.Context, limit int) ([]domain.ReconciliationReview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ReconciliationReview, len(r.reviews))
	copy(out, r.reviews)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
