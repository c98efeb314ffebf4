package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type walletRepo struct {
	pool Pool
}

func NewWalletRepository(pool Pool) ports.WalletRepository {
	return &walletRepo{pool: pool}
}

func (r *walletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, owner_id, owner_type, currency, balance, version, status, credit_eligible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		w.ID, w.OwnerID, w.OwnerType, w.Currency, w.Balance, w.Version, w.Status, w.CreditEligible,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.ErrWalletExists(w.OwnerID, w.Currency)
		}
		return fmt.Errorf("inserting wallet: %w", err)
	}
	return nil
}

const walletColumns = `id, owner_id, owner_type, currency, balance, version, status, credit_eligible, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.OwnerType, &w.Currency, &w.Balance,
		&w.Version, &w.Status, &w.CreditEligible, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound("wallet")
		}
		return nil, fmt.Errorf("scanning wallet: %w", err)
	}
	return &w, nil
}

func (r *walletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id))
}

func (r *walletRepo) GetByOwner(ctx context.Context, ownerID, currency string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND currency = $2`
	return scanWallet(r.pool.QueryRow(ctx, query, ownerID, currency))
}

func (r *walletRepo) GetInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(tx.QueryRow(ctx, query, id))
}

// UpdateBalanceVersioned applies an optimistic compare-and-swap on the wallet
// row. It returns false when the version has moved since the caller read it.
func (r *walletRepo) UpdateBalanceVersioned(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance, expectedVersion int64) (bool, error) {
	query := `
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3`

	tag, err := tx.Exec(ctx, query, newBalance, walletID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("updating wallet balance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *walletRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error {
	query := `UPDATE wallets SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("updating wallet status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrNotFound("wallet")
	}
	return nil
}
