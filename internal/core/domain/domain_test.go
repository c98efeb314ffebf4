package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWallet_IsActive(t *testing.T) {
	tests := []struct {
		name   string
		status WalletStatus
		want   bool
	}{
		{"active", WalletStatusActive, true},
		{"frozen", WalletStatusFrozen, false},
		{"closed", WalletStatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{Status: tt.status}
			assert.Equal(t, tt.want, w.IsActive())
		})
	}
}

func TestWallet_CanDebit(t *testing.T) {
	tests := []struct {
		name   string
		wallet Wallet
		amount int64
		want   bool
	}{
		{"sufficient balance", Wallet{Balance: 1000, OwnerType: OwnerTypeCustomer}, 500, true},
		{"exact balance", Wallet{Balance: 1000, OwnerType: OwnerTypeCustomer}, 1000, true},
		{"would go negative", Wallet{Balance: 1000, OwnerType: OwnerTypeVendor}, 1001, false},
		{"credit eligible goes negative", Wallet{Balance: 0, CreditEligible: true, OwnerType: OwnerTypeVendor}, 500, true},
		{"external wallet has no invariant", Wallet{Balance: 0, OwnerType: OwnerTypeExternal}, 99999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.wallet.CanDebit(tt.amount))
		})
	}
}

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status TransactionStatus
		want   bool
	}{
		{"created", StatusCreated, false},
		{"pending external", StatusPendingExternal, false},
		{"awaiting reconciliation", StatusAwaitingReconciliation, false},
		{"applying", StatusApplying, false},
		{"completed", StatusCompleted, true},
		{"failed", StatusFailed, true},
		{"reversed", StatusReversed, true},
		{"cancelled", StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsTerminal())
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TransactionStatus
		want     bool
	}{
		{StatusCreated, StatusApplying, true},
		{StatusCreated, StatusPendingExternal, true},
		{StatusCreated, StatusCancelled, true},
		{StatusPendingExternal, StatusAwaitingReconciliation, true},
		{StatusPendingExternal, StatusFailed, true},
		{StatusAwaitingReconciliation, StatusApplying, true},
		{StatusAwaitingReconciliation, StatusReversed, true},
		{StatusApplying, StatusCompleted, true},
		{StatusApplying, StatusPendingExternal, true},
		{StatusCompleted, StatusReversed, true},
		// Illegal edges.
		{StatusCompleted, StatusApplying, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCancelled, StatusApplying, false},
		{StatusAwaitingReconciliation, StatusCompleted, false},
		{StatusCreated, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransaction_IsCancellable(t *testing.T) {
	assert.True(t, (&Transaction{Status: StatusCreated}).IsCancellable())
	assert.False(t, (&Transaction{Status: StatusApplying}).IsCancellable())
	assert.False(t, (&Transaction{Status: StatusCompleted}).IsCancellable())
}

func TestTransaction_IsRefundable(t *testing.T) {
	assert.True(t, (&Transaction{Type: TransactionTypeOrderPayment, Status: StatusCompleted}).IsRefundable())
	assert.False(t, (&Transaction{Type: TransactionTypeDeposit, Status: StatusCompleted}).IsRefundable())
	assert.False(t, (&Transaction{Type: TransactionTypeOrderPayment, Status: StatusFailed}).IsRefundable())
}

func TestTransaction_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Transaction{Deadline: &past}).Expired(now))
	assert.False(t, (&Transaction{Deadline: &future}).Expired(now))
	assert.False(t, (&Transaction{}).Expired(now), "nil deadline never expires")
}

func TestLegSum_And_InvertLegs(t *testing.T) {
	w1, w2, w3 := uuid.New(), uuid.New(), uuid.New()
	legs := []Leg{
		{WalletID: w1, Amount: -100000, Role: LegRoleCustomer},
		{WalletID: w2, Amount: 90000, Role: LegRoleVendor},
		{WalletID: w3, Amount: 10000, Role: LegRolePlatform},
	}

	assert.Equal(t, int64(0), LegSum(legs))

	inverted := InvertLegs(legs)
	assert.Equal(t, int64(0), LegSum(inverted))
	assert.Equal(t, int64(100000), inverted[0].Amount)
	assert.Equal(t, int64(-90000), inverted[1].Amount)
	assert.Equal(t, LegRoleVendor, inverted[1].Role)
}

func TestKindForAmount(t *testing.T) {
	assert.Equal(t, EntryKindDebit, KindForAmount(-1))
	assert.Equal(t, EntryKindCredit, KindForAmount(1))
	assert.Equal(t, EntryKindCredit, KindForAmount(0))
}

func TestCommissionRule_AppliesAt(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	open := &CommissionRule{Rate: decimal.NewFromFloat(0.1), EffectiveFrom: from}
	bounded := &CommissionRule{Rate: decimal.NewFromFloat(0.1), EffectiveFrom: from, EffectiveTo: &to}

	assert.False(t, open.AppliesAt(from.Add(-time.Second)))
	assert.True(t, open.AppliesAt(from))
	assert.True(t, open.AppliesAt(to.Add(24*time.Hour)), "open-ended rule applies forever")

	assert.True(t, bounded.AppliesAt(from.Add(time.Hour)))
	assert.False(t, bounded.AppliesAt(to), "effective_to is exclusive")
}
