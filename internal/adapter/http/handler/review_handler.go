package handler

import (
	"strconv"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

const defaultReviewListLimit = 50

// ReviewHandler exposes the manual-review queue to the ops console.
type ReviewHandler struct {
	reviewRepo ports.ReviewRepository
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewRepo ports.ReviewRepository) *ReviewHandler {
	return &ReviewHandler{reviewRepo: reviewRepo}
}

// List handles GET /api/v1/reviews.
func (h *ReviewHandler) List(c *gin.Context) {
	limit := defaultReviewListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	reviews, err := h.reviewRepo.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, dto.ReviewResponse{
			ID:             r.ID.String(),
			TransactionID:  r.TransactionID.String(),
			ExternalRef:    r.ExternalRef,
			Reason:         r.Reason,
			ExpectedAmount: r.ExpectedAmount,
			ReportedAmount: r.ReportedAmount,
			ReportedStatus: r.ReportedStatus,
			CreatedAt:      r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	response.OK(c, out)
}
