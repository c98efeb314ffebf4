package postgres

import (
	"context"

	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// transactor issues database transactions against the shared pool.
type transactor struct {
	pool Pool
}

func NewTransactor(pool Pool) ports.DBTransactor {
	return &transactor{pool: pool}
}

func (t *transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
