package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"` // Caller may retry after recomputing state
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsRetryable reports whether the caller may safely retry the operation.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Retryable
}

// Error codes referenced across packages.
const (
	CodeValidation             = "VAL_001"
	CodeInsufficientFunds      = "PAY_001"
	CodeWalletFrozen           = "PAY_002"
	CodeConflict               = "PAY_003"
	CodeAlreadyApplied         = "PAY_004"
	CodeNotFound               = "PAY_005"
	CodeWalletExists           = "PAY_006"
	CodeUnbalancedLegs         = "PAY_007"
	CodeInvalidTransition      = "PAY_008"
	CodeNotCancellable         = "PAY_009"
	CodeProviderError          = "PRV_001"
	CodeUnknownProvider        = "PRV_002"
	CodeInvalidSignature       = "PRV_003"
	CodeReconciliationMismatch = "REC_001"
	CodeInvalidToken           = "AUTH_001"
	CodeRateLimited            = "RATE_001"
	CodeInternal               = "SYS_001"
)

// ---- Validation (VAL) ----

// Validation returns a malformed-request error; rejected before any state change.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Ledger & Wallet Business Logic (PAY) ----

func ErrInsufficientFunds(walletID string) *AppError {
	return New(CodeInsufficientFunds, fmt.Sprintf("insufficient funds in wallet %s", walletID), http.StatusUnprocessableEntity)
}

func ErrWalletFrozen(walletID string) *AppError {
	return New(CodeWalletFrozen, fmt.Sprintf("wallet %s is not active", walletID), http.StatusConflict)
}

// ErrConflict signals an optimistic-concurrency version mismatch. The caller
// must recompute legs against fresh balances and retry.
func ErrConflict(walletID string) *AppError {
	e := New(CodeConflict, fmt.Sprintf("wallet %s was modified concurrently", walletID), http.StatusConflict)
	e.Retryable = true
	return e
}

// ErrAlreadyApplied signals an idempotent replay. It is a success in disguise:
// callers receive the prior result alongside this error.
func ErrAlreadyApplied(transactionID string) *AppError {
	return New(CodeAlreadyApplied, fmt.Sprintf("transaction %s already applied", transactionID), http.StatusOK)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrWalletExists(ownerID, currency string) *AppError {
	return New(CodeWalletExists, fmt.Sprintf("wallet for owner %s in %s already exists", ownerID, currency), http.StatusConflict)
}

func ErrUnbalancedLegs(sum int64) *AppError {
	return New(CodeUnbalancedLegs, fmt.Sprintf("transaction legs sum to %d, want 0", sum), http.StatusBadRequest)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New(CodeInvalidTransition, fmt.Sprintf("illegal status transition %s -> %s", from, to), http.StatusConflict)
}

func ErrNotCancellable(status string) *AppError {
	return New(CodeNotCancellable, fmt.Sprintf("transaction in status %s cannot be cancelled, use reversal", status), http.StatusConflict)
}

// ---- External Provider (PRV) ----

// ErrProvider wraps a failure reported by or while reaching a payment rail.
// Transient by definition; the state machine retries per its policy.
func ErrProvider(provider string, err error) *AppError {
	e := Wrap(CodeProviderError, fmt.Sprintf("provider %s request failed", provider), http.StatusBadGateway, err)
	e.Retryable = true
	return e
}

func ErrUnknownProvider(provider string) *AppError {
	return New(CodeUnknownProvider, fmt.Sprintf("unknown payment provider %q", provider), http.StatusBadRequest)
}

func ErrInvalidWebhookSignature(provider string) *AppError {
	return New(CodeInvalidSignature, fmt.Sprintf("invalid webhook signature for provider %s", provider), http.StatusUnauthorized)
}

// ---- Reconciliation (REC) ----

// ErrReconciliationMismatch routes a transaction to manual review; it is
// never auto-resolved.
func ErrReconciliationMismatch(reason string) *AppError {
	return New(CodeReconciliationMismatch, reason, http.StatusConflict)
}

// ---- Auth (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "invalid or expired service token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps a storage or infrastructure failure. Surfaced
// immediately; leg application is all-or-nothing so no partial state exists.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "internal server error", http.StatusInternalServerError, err)
}
