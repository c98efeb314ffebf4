package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// MTNGateway talks to the MTN Mobile Money collection/disbursement API.
type MTNGateway struct {
	cfg           config.ProviderConfig
	webhookSecret []byte
	httpClient    HTTPClient
	log           zerolog.Logger
}

func NewMTNGateway(cfg config.ProviderConfig, webhookSecret []byte, httpClient HTTPClient, log zerolog.Logger) *MTNGateway {
	return &MTNGateway{cfg: cfg, webhookSecret: webhookSecret, httpClient: httpClient, log: log}
}

func (g *MTNGateway) Name() string { return "mtn" }

type mtnPaymentRequest struct {
	ExternalID string `json:"externalId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Payer      struct {
		PartyIDType string `json:"partyIdType"`
		PartyID     string `json:"partyId"`
	} `json:"payer"`
}

type mtnPaymentResponse struct {
	ReferenceID string `json:"referenceId"`
}

type mtnStatusResponse struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"` // PENDING | SUCCESSFUL | FAILED
	Amount      string `json:"amount"`
	FinishedAt  string `json:"finishedAt,omitempty"` // RFC3339
}

func (g *MTNGateway) InitiatePayment(ctx context.Context, reference string, amount int64, phoneNumber string) (string, error) {
	payload := mtnPaymentRequest{
		ExternalID: reference,
		Amount:     fmt.Sprintf("%d", amount),
		Currency:   "UGX",
	}
	payload.Payer.PartyIDType = "MSISDN"
	payload.Payer.PartyID = phoneNumber

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperror.InternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/collection/v1/requesttopay", bytes.NewReader(body))
	if err != nil {
		return "", apperror.InternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", g.cfg.APIKey)
	req.Header.Set("X-Reference-Id", reference)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", apperror.ErrProvider(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", apperror.ErrProvider(g.Name(), fmt.Errorf("requesttopay returned status %d", resp.StatusCode))
	}

	var out mtnPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperror.ErrProvider(g.Name(), fmt.Errorf("decoding requesttopay response: %w", err))
	}
	if out.ReferenceID == "" {
		// Some MTN environments only echo the X-Reference-Id header.
		return reference, nil
	}
	return out.ReferenceID, nil
}

func (g *MTNGateway) PollStatus(ctx context.Context, providerRef string) (*ports.PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/collection/v1/requesttopay/"+providerRef, nil)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperror.ErrProvider(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, apperror.ErrProvider(g.Name(), fmt.Errorf("status query returned %d", resp.StatusCode))
	}

	var out mtnStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.ErrProvider(g.Name(), fmt.Errorf("decoding status response: %w", err))
	}

	result := &ports.PollResult{
		ExternalRef: providerRef,
		Status:      mtnStatus(out.Status),
		Amount:      parseMinorUnits(out.Amount),
	}
	if out.FinishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, out.FinishedAt); err == nil {
			result.ConfirmedAt = &ts
		}
	}
	return result, nil
}

// VerifyWebhook checks the HMAC-SHA256 hex signature over the raw body,
// keyed with the webhook secret derived from the master key.
func (g *MTNGateway) VerifyWebhook(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, g.webhookSecret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook decodes an MTN callback, which mirrors the status query
// response shape.
func (g *MTNGateway) ParseWebhook(payload []byte) (*ports.WebhookEvent, error) {
	var body mtnStatusResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, apperror.Validation("malformed mtn callback body")
	}
	if body.ReferenceID == "" {
		return nil, apperror.Validation("mtn callback missing referenceId")
	}

	event := &ports.WebhookEvent{
		Provider:    g.Name(),
		ExternalRef: body.ReferenceID,
		Status:      string(mtnStatus(body.Status)),
		Amount:      parseMinorUnits(body.Amount),
	}
	if body.FinishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, body.FinishedAt); err == nil {
			event.ConfirmedAt = ts
		}
	}
	return event, nil
}

func mtnStatus(s string) ports.ProviderStatus {
	switch s {
	case "PENDING":
		return ports.ProviderStatusPending
	case "SUCCESSFUL":
		return ports.ProviderStatusConfirmed
	case "FAILED":
		return ports.ProviderStatusFailed
	}
	return ports.ProviderStatusUnknown
}

// parseMinorUnits tolerates the string amounts mobile-money APIs return.
func parseMinorUnits(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
