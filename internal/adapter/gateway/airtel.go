package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// AirtelGateway talks to the Airtel Money merchant API.
type AirtelGateway struct {
	cfg           config.ProviderConfig
	webhookSecret []byte
	httpClient    HTTPClient
	log           zerolog.Logger
}

func NewAirtelGateway(cfg config.ProviderConfig, webhookSecret []byte, httpClient HTTPClient, log zerolog.Logger) *AirtelGateway {
	return &AirtelGateway{cfg: cfg, webhookSecret: webhookSecret, httpClient: httpClient, log: log}
}

func (g *AirtelGateway) Name() string { return "airtel" }

type airtelPaymentRequest struct {
	Reference  string `json:"reference"`
	Subscriber struct {
		MSISDN string `json:"msisdn"`
	} `json:"subscriber"`
	Transaction struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		ID       string `json:"id"`
	} `json:"transaction"`
}

type airtelResponse struct {
	Data struct {
		Transaction struct {
			ID     string `json:"id"`
			Status string `json:"status"` // TIP | TS | TF
			Amount int64  `json:"amount"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	} `json:"status"`
}

func (g *AirtelGateway) InitiatePayment(ctx context.Context, reference string, amount int64, phoneNumber string) (string, error) {
	payload := airtelPaymentRequest{Reference: reference}
	payload.Subscriber.MSISDN = phoneNumber
	payload.Transaction.Amount = amount
	payload.Transaction.Currency = "UGX"
	payload.Transaction.ID = reference

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperror.InternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/merchant/v1/payments/", bytes.NewReader(body))
	if err != nil {
		return "", apperror.InternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", apperror.ErrProvider(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperror.ErrProvider(g.Name(), fmt.Errorf("payment request returned status %d", resp.StatusCode))
	}

	var out airtelResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperror.ErrProvider(g.Name(), fmt.Errorf("decoding payment response: %w", err))
	}
	if !out.Status.Success {
		return "", apperror.ErrProvider(g.Name(), fmt.Errorf("payment rejected: %s", out.Status.Message))
	}
	return out.Data.Transaction.ID, nil
}

func (g *AirtelGateway) PollStatus(ctx context.Context, providerRef string) (*ports.PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/standard/v1/payments/"+providerRef, nil)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperror.ErrProvider(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ErrProvider(g.Name(), fmt.Errorf("status query returned %d", resp.StatusCode))
	}

	var out airtelResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.ErrProvider(g.Name(), fmt.Errorf("decoding status response: %w", err))
	}

	result := &ports.PollResult{
		ExternalRef: providerRef,
		Status:      airtelStatus(out.Data.Transaction.Status),
		Amount:      out.Data.Transaction.Amount,
	}
	if result.Status == ports.ProviderStatusConfirmed {
		now := time.Now().UTC()
		result.ConfirmedAt = &now
	}
	return result, nil
}

// VerifyWebhook checks the base64 HMAC-SHA256 signature over the raw body,
// keyed with the webhook secret derived from the master key.
func (g *AirtelGateway) VerifyWebhook(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, g.webhookSecret)
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook decodes an Airtel callback, which carries the same envelope
// as the status query response.
func (g *AirtelGateway) ParseWebhook(payload []byte) (*ports.WebhookEvent, error) {
	var body airtelResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, apperror.Validation("malformed airtel callback body")
	}
	if body.Data.Transaction.ID == "" {
		return nil, apperror.Validation("airtel callback missing transaction id")
	}

	event := &ports.WebhookEvent{
		Provider:    g.Name(),
		ExternalRef: body.Data.Transaction.ID,
		Status:      string(airtelStatus(body.Data.Transaction.Status)),
		Amount:      body.Data.Transaction.Amount,
	}
	if event.Status == string(ports.ProviderStatusConfirmed) {
		event.ConfirmedAt = time.Now().UTC()
	}
	return event, nil
}

// airtelStatus maps Airtel's terse transaction codes: TIP is in progress,
// TS succeeded, TF failed.
func airtelStatus(s string) ports.ProviderStatus {
	switch s {
	case "TIP":
		return ports.ProviderStatusPending
	case "TS":
		return ports.ProviderStatusConfirmed
	case "TF":
		return ports.ProviderStatusFailed
	}
	return ports.ProviderStatusUnknown
}
