package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationReview is a manual-review queue entry. A transaction whose
// provider-reported amount, reference, or timing disagrees with the internal
// record lands here and is never auto-resolved.
type ReconciliationReview struct {
	ID             uuid.UUID `json:"id"`
	TransactionID  uuid.UUID `json:"transaction_id"`
	ExternalRef    string    `json:"external_ref"`
	Reason         string    `json:"reason"`
	ExpectedAmount int64     `json:"expected_amount"`
	ReportedAmount int64     `json:"reported_amount"`
	ReportedStatus string    `json:"reported_status"`
	CreatedAt      time.Time `json:"created_at"`
}
