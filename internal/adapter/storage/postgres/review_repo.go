package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type reviewRepo struct {
	pool Pool
}

func NewReviewRepository(pool Pool) ports.ReviewRepository {
	return &reviewRepo{pool: pool}
}

func (r *reviewRepo) Create(ctx context.Context, review *domain.ReconciliationReview) error {
	query := `
		INSERT INTO reconciliation_reviews (id, transaction_id, external_ref, reason,
			expected_amount, reported_amount, reported_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		review.ID, review.TransactionID, review.ExternalRef, review.Reason,
		review.ExpectedAmount, review.ReportedAmount, review.ReportedStatus,
	).Scan(&review.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// Already parked for review; two workers hit the same mismatch.
			return nil
		}
		return fmt.Errorf("inserting reconciliation review: %w", err)
	}
	return nil
}

func (r *reviewRepo) ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM reconciliation_reviews WHERE transaction_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, transactionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking review existence: %w", err)
	}
	return exists, nil
}

func (r *reviewRepo) List(ctx context.Context, limit int) ([]domain.ReconciliationReview, error) {
	query := `
		SELECT id, transaction_id, external_ref, reason, expected_amount, reported_amount, reported_status, created_at
		FROM reconciliation_reviews
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reconciliation reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.ReconciliationReview
	for rows.Next() {
		var rv domain.ReconciliationReview
		err := rows.Scan(&rv.ID, &rv.TransactionID, &rv.ExternalRef, &rv.Reason,
			&rv.ExpectedAmount, &rv.ReportedAmount, &rv.ReportedStatus, &rv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning reconciliation review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
