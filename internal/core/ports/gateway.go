package ports

import (
	"context"
	"time"
)

// ProviderStatus normalizes the status vocabulary of external rails.
type ProviderStatus string

const (
	ProviderStatusPending   ProviderStatus = "PENDING"
	ProviderStatusConfirmed ProviderStatus = "CONFIRMED"
	ProviderStatusFailed    ProviderStatus = "FAILED"
	ProviderStatusUnknown   ProviderStatus = "UNKNOWN"
)

// PollResult is the provider's authoritative view of one payment.
type PollResult struct {
	ExternalRef string
	Status      ProviderStatus
	Amount      int64 // minor units as reported by the provider
	ConfirmedAt *time.Time
}

// PaymentGateway is the capability interface over one mobile-money provider.
// Adding a provider means adding an implementation and a config block; core
// transaction logic never branches on provider names.
type PaymentGateway interface {
	// Name returns the provider identifier used in config and persistence.
	Name() string
	// InitiatePayment asks the rail to move funds and returns the provider's
	// reference for the created payment. Idempotent on reference provider-side.
	InitiatePayment(ctx context.Context, reference string, amount int64, phoneNumber string) (providerRef string, err error)
	// PollStatus fetches the authoritative status for a previously initiated
	// payment.
	PollStatus(ctx context.Context, providerRef string) (*PollResult, error)
	// VerifyWebhook authenticates an inbound callback body against its
	// signature before any state is touched.
	VerifyWebhook(payload []byte, signature string) bool
	// ParseWebhook decodes a verified callback body into the normalized
	// event vocabulary.
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}

// GatewayRegistry resolves gateways by provider name.
type GatewayRegistry interface {
	Get(provider string) (PaymentGateway, bool)
	Names() []string
}
