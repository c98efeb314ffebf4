package handler

import (
	"context"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey carries the client's idempotency key on every
// transaction-creating request.
const HeaderIdempotencyKey = "Idempotency-Key"

// TransactionHandler handles transaction endpoints.
type TransactionHandler struct {
	txSvc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txSvc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc}
}

func idempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader(HeaderIdempotencyKey)
	if key == "" || len(key) > 128 {
		response.Error(c, apperror.Validation("Idempotency-Key header is required (max 128 chars)"))
		return "", false
	}
	return key, true
}

// Deposit handles POST /api/v1/transactions/deposit.
func (h *TransactionHandler) Deposit(c *gin.Context) {
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}

	txn, err := h.txSvc.CreateDeposit(c.Request.Context(), ports.DepositRequest{
		IdempotencyKey: key,
		WalletID:       walletID,
		Amount:         req.Amount,
		Provider:       req.Provider,
		PhoneNumber:    req.PhoneNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	respondForStatus(c, txn)
}

// Withdraw handles POST /api/v1/transactions/withdraw.
func (h *TransactionHandler) Withdraw(c *gin.Context) {
	h.outflow(c, h.txSvc.CreateWithdrawal)
}

// Payout handles POST /api/v1/transactions/payout.
func (h *TransactionHandler) Payout(c *gin.Context) {
	h.outflow(c, h.txSvc.CreatePayout)
}

func (h *TransactionHandler) outflow(c *gin.Context, create func(context.Context, ports.WithdrawalRequest) (*domain.Transaction, error)) {
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}

	txn, err := create(c.Request.Context(), ports.WithdrawalRequest{
		IdempotencyKey: key,
		WalletID:       walletID,
		Amount:         req.Amount,
		Provider:       req.Provider,
		PhoneNumber:    req.PhoneNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	respondForStatus(c, txn)
}

// OrderPayment handles POST /api/v1/transactions/order-payment.
func (h *TransactionHandler) OrderPayment(c *gin.Context) {
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var req dto.OrderPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	customerWalletID, err := uuid.Parse(req.CustomerWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid customer_wallet_id"))
		return
	}

	txn, err := h.txSvc.CreateOrderPayment(c.Request.Context(), ports.OrderPaymentRequest{
		IdempotencyKey:   key,
		OrderID:          req.OrderID,
		CustomerWalletID: customerWalletID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	respondForStatus(c, txn)
}

// Refund handles POST /api/v1/transactions/refund.
func (h *TransactionHandler) Refund(c *gin.Context) {
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	originalID, err := uuid.Parse(req.OriginalTransactionID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid original_transaction_id"))
		return
	}

	txn, err := h.txSvc.CreateRefund(c.Request.Context(), ports.RefundRequest{
		IdempotencyKey:        key,
		OriginalTransactionID: originalID,
		Reason:                req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	respondForStatus(c, txn)
}

// Get handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	txn, err := h.txSvc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransactionResponse(txn))
}

// Cancel handles POST /api/v1/transactions/:id/cancel.
func (h *TransactionHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	txn, err := h.txSvc.CancelTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransactionResponse(txn))
}

// respondForStatus picks the HTTP status for a created transaction: 201 for
// ones that settled synchronously, 202 for ones still waiting on a rail.
func respondForStatus(c *gin.Context, txn *domain.Transaction) {
	if txn.Status == domain.StatusAwaitingReconciliation || txn.Status == domain.StatusPendingExternal {
		response.Accepted(c, toTransactionResponse(txn))
		return
	}
	response.Created(c, toTransactionResponse(txn))
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(txn *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:            txn.ID.String(),
		Type:          string(txn.Type),
		Status:        string(txn.Status),
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Legs:          make([]dto.LegResponse, 0, len(txn.Legs)),
		Provider:      txn.Provider,
		ExternalRef:   txn.ExternalRef,
		OrderID:       txn.OrderID,
		FailureReason: txn.FailureReason,
		RetryCount:    txn.RetryCount,
		CreatedAt:     txn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     txn.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if txn.OriginalTxID != nil {
		s := txn.OriginalTxID.String()
		resp.OriginalTxID = &s
	}
	for _, leg := range txn.Legs {
		lr := dto.LegResponse{
			WalletID: leg.WalletID.String(),
			Amount:   leg.Amount,
			Role:     string(leg.Role),
		}
		if leg.RuleID != nil {
			s := leg.RuleID.String()
			lr.RuleID = &s
		}
		resp.Legs = append(resp.Legs, lr)
	}
	return resp
}
