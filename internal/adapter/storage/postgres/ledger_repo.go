package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ledgerRepo struct {
	pool Pool
}

func NewLedgerRepository(pool Pool) ports.LedgerRepository {
	return &ledgerRepo{pool: pool}
}

// Insert appends an entry inside the leg-application transaction. The unique
// (transaction_id, wallet_id) constraint keeps replays from double-posting.
func (r *ledgerRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, wallet_id, transaction_id, amount, balance_after, kind)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := tx.QueryRow(ctx, query,
		entry.ID, entry.WalletID, entry.TransactionID, entry.Amount, entry.BalanceAfter, entry.Kind,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting ledger entry: %w", err)
	}
	return nil
}

const ledgerColumns = `id, wallet_id, transaction_id, amount, balance_after, kind, created_at`

func collectEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.WalletID, &e.TransactionID, &e.Amount, &e.BalanceAfter, &e.Kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *ledgerRepo) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries by transaction: %w", err)
	}
	return collectEntries(rows)
}

func (r *ledgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries by wallet: %w", err)
	}
	return collectEntries(rows)
}
