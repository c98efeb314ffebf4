package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc  ports.WalletService
	ledgerRepo ports.LedgerRepository
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, ledgerRepo ports.LedgerRepository) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, ledgerRepo: ledgerRepo}
}

// CreateWallet handles POST /api/v1/wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), req.OwnerID, domain.OwnerType(req.OwnerType), req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// GetWallet handles GET /api/v1/wallets/:id.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// GetBalance handles GET /api/v1/wallets/:id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	balance, version, err := h.walletSvc.GetBalance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID: id.String(),
		Balance:  balance,
		Version:  version,
	})
}

// ListLedger handles GET /api/v1/wallets/:id/ledger.
func (h *WalletHandler) ListLedger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	// Resolve the wallet first so a bad id is a 404, not an empty list.
	if _, err := h.walletSvc.GetWallet(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	entries, err := h.ledgerRepo.ListByWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := dto.LedgerListResponse{
		WalletID: id.String(),
		Entries:  make([]dto.LedgerEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, dto.LedgerEntryResponse{
			ID:            e.ID.String(),
			TransactionID: e.TransactionID.String(),
			Amount:        e.Amount,
			BalanceAfter:  e.BalanceAfter,
			Kind:          string(e.Kind),
			CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	response.OK(c, out)
}

// toWalletResponse converts domain.Wallet to DTO.
func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:             w.ID.String(),
		OwnerID:        w.OwnerID,
		OwnerType:      string(w.OwnerType),
		Currency:       w.Currency,
		Balance:        w.Balance,
		Version:        w.Version,
		Status:         string(w.Status),
		CreditEligible: w.CreditEligible,
		CreatedAt:      w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
