package postgres

import (
	"context"

	"wallet-ledger/internal/core/ports"
)

type healthChecker struct {
	pool Pool
}

func NewHealthChecker(pool Pool) ports.HealthChecker {
	return &healthChecker{pool: pool}
}

func (h *healthChecker) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

func (h *healthChecker) Name() string {
	return "postgresql"
}
