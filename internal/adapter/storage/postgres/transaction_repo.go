package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type transactionRepo struct {
	pool Pool
}

func NewTransactionRepository(pool Pool) ports.TransactionRepository {
	return &transactionRepo{pool: pool}
}

func (r *transactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	legsJSON, err := json.Marshal(txn.Legs)
	if err != nil {
		return fmt.Errorf("marshaling transaction legs: %w", err)
	}

	query := `
		INSERT INTO transactions (id, idempotency_key, type, status, amount, currency, legs,
			order_id, provider, msisdn_enc, external_ref, original_tx_id, deadline, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err = r.pool.QueryRow(ctx, query,
		txn.ID, txn.IdempotencyKey, txn.Type, txn.Status, txn.Amount, txn.Currency, legsJSON,
		txn.OrderID, txn.Provider, txn.MSISDNEnc, txn.ExternalRef, txn.OriginalTxID, txn.Deadline, txn.RetryCount,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// Lost the duplicate-create race on idempotency_key; the winner's
			// transaction is the answer.
			return apperror.ErrAlreadyApplied(txn.IdempotencyKey)
		}
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

const transactionColumns = `id, idempotency_key, type, status, amount, currency, legs,
	order_id, provider, msisdn_enc, external_ref, original_tx_id, failure_reason,
	deadline, retry_count, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn      domain.Transaction
		legsJSON []byte
	)
	err := row.Scan(&txn.ID, &txn.IdempotencyKey, &txn.Type, &txn.Status, &txn.Amount,
		&txn.Currency, &legsJSON, &txn.OrderID, &txn.Provider, &txn.MSISDNEnc,
		&txn.ExternalRef, &txn.OriginalTxID, &txn.FailureReason, &txn.Deadline,
		&txn.RetryCount, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound("transaction")
		}
		return nil, fmt.Errorf("scanning transaction: %w", err)
	}
	if err := json.Unmarshal(legsJSON, &txn.Legs); err != nil {
		return nil, fmt.Errorf("unmarshaling transaction legs: %w", err)
	}
	return &txn, nil
}

func (r *transactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

func (r *transactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, key))
}

func (r *transactionRepo) GetByExternalRef(ctx context.Context, externalRef string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_ref = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, externalRef))
}

// TransitionStatus is the conditional write every state-machine edge goes
// through. Two workers racing on the same edge both issue it; exactly one
// sees RowsAffected == 1 and proceeds with the side effects.
func (r *transactionRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, apperror.ErrInvalidTransition(string(from), string(to))
	}

	query := `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	tag, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transitioning transaction status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *transactionRepo) SetExternalRef(ctx context.Context, id uuid.UUID, externalRef string) error {
	query := `UPDATE transactions SET external_ref = $1, updated_at = NOW() WHERE id = $2`

	if _, err := r.pool.Exec(ctx, query, externalRef, id); err != nil {
		return fmt.Errorf("setting external ref: %w", err)
	}
	return nil
}

func (r *transactionRepo) SetFailureReason(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE transactions SET failure_reason = $1, updated_at = NOW() WHERE id = $2`

	if _, err := r.pool.Exec(ctx, query, reason, id); err != nil {
		return fmt.Errorf("setting failure reason: %w", err)
	}
	return nil
}

func (r *transactionRepo) IncrementRetryCount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE transactions SET retry_count = retry_count + 1, updated_at = NOW() WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("incrementing retry count: %w", err)
	}
	return nil
}

func (r *transactionRepo) ListAwaitingReconciliation(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.status = $1
		  AND t.updated_at <= $2
		  AND NOT EXISTS (
			SELECT 1 FROM reconciliation_reviews rr WHERE rr.transaction_id = t.id
		  )
		ORDER BY t.updated_at
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.StatusAwaitingReconciliation, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions awaiting reconciliation: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var (
			txn      domain.Transaction
			legsJSON []byte
		)
		err := rows.Scan(&txn.ID, &txn.IdempotencyKey, &txn.Type, &txn.Status, &txn.Amount,
			&txn.Currency, &legsJSON, &txn.OrderID, &txn.Provider, &txn.MSISDNEnc,
			&txn.ExternalRef, &txn.OriginalTxID, &txn.FailureReason, &txn.Deadline,
			&txn.RetryCount, &txn.CreatedAt, &txn.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if err := json.Unmarshal(legsJSON, &txn.Legs); err != nil {
			return nil, fmt.Errorf("unmarshaling transaction legs: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
