package dto

// CreateWalletRequest is the request body for opening a wallet.
type CreateWalletRequest struct {
	OwnerID   string `json:"owner_id" binding:"required,safe_id,max=100"`
	OwnerType string `json:"owner_type" binding:"required,oneof=CUSTOMER VENDOR RIDER PLATFORM"`
	Currency  string `json:"currency" binding:"omitempty,len=3"`
}

// DepositRequest is the request body for an externally funded deposit.
type DepositRequest struct {
	WalletID    string `json:"wallet_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Provider    string `json:"provider" binding:"required,safe_id"`
	PhoneNumber string `json:"phone_number" binding:"required,msisdn"`
}

// WithdrawalRequest is the request body for a withdrawal or payout.
type WithdrawalRequest struct {
	WalletID    string `json:"wallet_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Provider    string `json:"provider" binding:"required,safe_id"`
	PhoneNumber string `json:"phone_number" binding:"required,msisdn"`
}

// OrderPaymentRequest is the request body for charging an order.
type OrderPaymentRequest struct {
	OrderID          string `json:"order_id" binding:"required,safe_id,max=100"`
	CustomerWalletID string `json:"customer_wallet_id" binding:"required,uuid"`
}

// RefundRequest is the request body for refunding a completed order payment.
type RefundRequest struct {
	OriginalTransactionID string `json:"original_transaction_id" binding:"required,uuid"`
	Reason                string `json:"reason" binding:"required,max=500"`
}

// WalletResponse is the response body for wallet queries.
type WalletResponse struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	OwnerType      string `json:"owner_type"`
	Currency       string `json:"currency"`
	Balance        int64  `json:"balance"`
	Version        int64  `json:"version"`
	Status         string `json:"status"`
	CreditEligible bool   `json:"credit_eligible"`
	CreatedAt      string `json:"created_at"`
}

// BalanceResponse is the response body for balance queries.
type BalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
	Version  int64  `json:"version"`
}

// LegResponse is one leg of a transaction.
type LegResponse struct {
	WalletID string  `json:"wallet_id"`
	Amount   int64   `json:"amount"`
	Role     string  `json:"role"`
	RuleID   *string `json:"rule_id,omitempty"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID            string        `json:"id"`
	Type          string        `json:"type"`
	Status        string        `json:"status"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Legs          []LegResponse `json:"legs"`
	Provider      *string       `json:"provider,omitempty"`
	ExternalRef   *string       `json:"external_ref,omitempty"`
	OrderID       *string       `json:"order_id,omitempty"`
	OriginalTxID  *string       `json:"original_transaction_id,omitempty"`
	FailureReason *string       `json:"failure_reason,omitempty"`
	RetryCount    int           `json:"retry_count"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
}

// LedgerEntryResponse is one row of a wallet's statement.
type LedgerEntryResponse struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	BalanceAfter  int64  `json:"balance_after"`
	Kind          string `json:"kind"`
	CreatedAt     string `json:"created_at"`
}

// LedgerListResponse wraps a wallet's ledger entries.
type LedgerListResponse struct {
	WalletID string                `json:"wallet_id"`
	Entries  []LedgerEntryResponse `json:"entries"`
}

// ReviewResponse is one parked reconciliation mismatch.
type ReviewResponse struct {
	ID             string `json:"id"`
	TransactionID  string `json:"transaction_id"`
	ExternalRef    string `json:"external_ref"`
	Reason         string `json:"reason"`
	ExpectedAmount int64  `json:"expected_amount"`
	ReportedAmount int64  `json:"reported_amount"`
	ReportedStatus string `json:"reported_status"`
	CreatedAt      string `json:"created_at"`
}

// HealthResponse reports dependency health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
