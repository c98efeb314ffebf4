package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction() *domain.Transaction {
	provider := "mtn"
	ref := "MTN-REF-7783"
	return &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: "dep-" + uuid.New().String(),
		Type:           domain.TransactionTypeDeposit,
		Status:         domain.StatusAwaitingReconciliation,
		Amount:         25_000,
		Currency:       "UGX",
		Legs: []domain.Leg{
			{WalletID: uuid.New(), Amount: -25_000, Role: domain.LegRoleExternal},
			{WalletID: uuid.New(), Amount: 25_000, Role: domain.LegRoleCustomer},
		},
		Provider:    &provider,
		ExternalRef: &ref,
		RetryCount:  1,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func transactionColumnNames() []string {
	return []string{"id", "idempotency_key", "type", "status", "amount", "currency", "legs",
		"order_id", "provider", "msisdn_enc", "external_ref", "original_tx_id", "failure_reason",
		"deadline", "retry_count", "created_at", "updated_at"}
}

func transactionRow(t *testing.T, txn *domain.Transaction) *pgxmock.Rows {
	t.Helper()
	legsJSON, err := json.Marshal(txn.Legs)
	require.NoError(t, err)

	return pgxmock.NewRows(transactionColumnNames()).AddRow(
		txn.ID, txn.IdempotencyKey, txn.Type, txn.Status, txn.Amount, txn.Currency, legsJSON,
		txn.OrderID, txn.Provider, txn.MSISDNEnc, txn.ExternalRef, txn.OriginalTxID,
		txn.FailureReason, txn.Deadline, txn.RetryCount, txn.CreatedAt, txn.UpdatedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(mock)
	txn := newTestTransaction()
	legsJSON, err := json.Marshal(txn.Legs)
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(txn.ID, txn.IdempotencyKey, txn.Type, txn.Status, txn.Amount, txn.Currency, legsJSON,
			txn.OrderID, txn.Provider, txn.MSISDNEnc, txn.ExternalRef, txn.OriginalTxID, txn.Deadline, txn.RetryCount).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(txn.CreatedAt, txn.UpdatedAt))

	err = repo.Create(context.Background(), txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(mock)
	txn := newTestTransaction()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE idempotency_key").
		WithArgs(txn.IdempotencyKey).
		WillReturnRows(transactionRow(t, txn))

	result, err := repo.GetByIdempotencyKey(context.Background(), txn.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, txn.Legs, result.Legs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByExternalRef_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE external_ref").
		WithArgs("MISSING-REF").
		WillReturnRows(pgxmock.NewRows(transactionColumnNames()))

	result, err := repo.GetByExternalRef(context.Background(), "MISSING-REF")
	assert.Nil(t, result)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestTransactionRepo_TransitionStatus_Won(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs(domain.StatusApplying, id, domain.StatusAwaitingReconciliation).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	won, err := repo.TransitionStatus(context.Background(), id, domain.StatusAwaitingReconciliation, domain.StatusApplying)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_TransitionStatus_Lost(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs(domain.StatusApplying, id, domain.StatusAwaitingReconciliation).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	won, err := repo.TransitionStatus(context.Background(), id, domain.StatusAwaitingReconciliation, domain.StatusApplying)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestTransactionRepo_TransitionStatus_IllegalEdge(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(mock)

	won, err := repo.TransitionStatus(context.Background(), uuid.New(), domain.StatusFailed, domain.StatusCompleted)
	assert.False(t, won)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
	// No query should have been issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListAwaitingReconciliation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(mock)
	txn := newTestTransaction()
	cutoff := time.Now().Add(-30 * time.Second)

	mock.ExpectQuery("SELECT .+ FROM transactions t").
		WithArgs(domain.StatusAwaitingReconciliation, cutoff, 100).
		WillReturnRows(transactionRow(t, txn))

	results, err := repo.ListAwaitingReconciliation(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, txn.ID, results[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create_DuplicateIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepository(mock)
	txn := newTestTransaction()
	legsJSON, err := json.Marshal(txn.Legs)
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(txn.ID, txn.IdempotencyKey, txn.Type, txn.Status, txn.Amount, txn.Currency, legsJSON,
			txn.OrderID, txn.Provider, txn.MSISDNEnc, txn.ExternalRef, txn.OriginalTxID, txn.Deadline, txn.RetryCount).
		WillReturnError(&pgconnUniqueViolation)

	err = repo.Create(context.Background(), txn)
	assert.True(t, apperror.IsCode(err, apperror.CodeAlreadyApplied))
}
