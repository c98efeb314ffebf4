package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

type commissionRuleRepo struct {
	pool Pool
}

func NewCommissionRuleRepository(pool Pool) ports.CommissionRuleRepository {
	return &commissionRuleRepo{pool: pool}
}

// GetEffective returns the rule in force at the given instant. With
// overlapping windows the most recently effective rule wins.
func (r *commissionRuleRepo) GetEffective(ctx context.Context, resourceType domain.ResourceType, at time.Time) (*domain.CommissionRule, error) {
	query := `
		SELECT id, resource_type, rate, flat_fee, effective_from, effective_to, created_at
		FROM commission_rules
		WHERE resource_type = $1
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to > $2)
		ORDER BY effective_from DESC
		LIMIT 1`

	var rule domain.CommissionRule
	err := r.pool.QueryRow(ctx, query, resourceType, at).Scan(
		&rule.ID, &rule.ResourceType, &rule.Rate, &rule.FlatFee,
		&rule.EffectiveFrom, &rule.EffectiveTo, &rule.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound("commission rule")
		}
		return nil, fmt.Errorf("querying effective commission rule: %w", err)
	}
	return &rule, nil
}
