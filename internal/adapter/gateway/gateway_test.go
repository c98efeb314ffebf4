package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func providerConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL: baseURL,
		APIKey:  "test-api-key",
		Timeout: 5 * time.Second,
	}
}

func testSecret(t *testing.T, provider string) []byte {
	t.Helper()
	secret, err := WebhookSecret(testMasterKey, provider)
	require.NoError(t, err)
	return secret
}

func TestMTNGateway_InitiatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collection/v1/requesttopay", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "tx-001", r.Header.Get("X-Reference-Id"))

		var body mtnPaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tx-001", body.ExternalID)
		assert.Equal(t, "25000", body.Amount)
		assert.Equal(t, "256772123456", body.Payer.PartyID)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(mtnPaymentResponse{ReferenceID: "MTN-REF-001"})
	}))
	defer srv.Close()

	gw := NewMTNGateway(providerConfig(srv.URL), testSecret(t, "mtn"), srv.Client(), logger.New("error", false))

	ref, err := gw.InitiatePayment(context.Background(), "tx-001", 25_000, "256772123456")
	require.NoError(t, err)
	assert.Equal(t, "MTN-REF-001", ref)
}

func TestMTNGateway_InitiatePayment_ProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := NewMTNGateway(providerConfig(srv.URL), testSecret(t, "mtn"), srv.Client(), logger.New("error", false))

	_, err := gw.InitiatePayment(context.Background(), "tx-002", 10_000, "256772123456")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeProviderError))
	assert.True(t, apperror.IsRetryable(err))
}

func TestMTNGateway_PollStatus(t *testing.T) {
	finished := time.Now().UTC().Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collection/v1/requesttopay/MTN-REF-001", r.URL.Path)
		json.NewEncoder(w).Encode(mtnStatusResponse{
			ReferenceID: "MTN-REF-001",
			Status:      "SUCCESSFUL",
			Amount:      "25000",
			FinishedAt:  finished.Format(time.RFC3339),
		})
	}))
	defer srv.Close()

	gw := NewMTNGateway(providerConfig(srv.URL), testSecret(t, "mtn"), srv.Client(), logger.New("error", false))

	result, err := gw.PollStatus(context.Background(), "MTN-REF-001")
	require.NoError(t, err)
	assert.Equal(t, ports.ProviderStatusConfirmed, result.Status)
	assert.Equal(t, int64(25_000), result.Amount)
	require.NotNil(t, result.ConfirmedAt)
	assert.True(t, result.ConfirmedAt.Equal(finished))
}

func TestMTNGateway_VerifyWebhook(t *testing.T) {
	gw := NewMTNGateway(providerConfig("http://unused"), testSecret(t, "mtn"), http.DefaultClient, logger.New("error", false))
	payload := []byte(`{"referenceId":"MTN-REF-001","status":"SUCCESSFUL"}`)

	mac := hmac.New(sha256.New, testSecret(t, "mtn"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, gw.VerifyWebhook(payload, signature))
	assert.False(t, gw.VerifyWebhook(payload, "deadbeef"))
	assert.False(t, gw.VerifyWebhook([]byte(`tampered`), signature))

	// A signature keyed with the raw API key must not verify; only the
	// derived webhook secret is valid.
	rawKeyMac := hmac.New(sha256.New, []byte("test-api-key"))
	rawKeyMac.Write(payload)
	assert.False(t, gw.VerifyWebhook(payload, hex.EncodeToString(rawKeyMac.Sum(nil))))
}

func TestAirtelGateway_StatusMapping(t *testing.T) {
	tests := []struct {
		code string
		want ports.ProviderStatus
	}{
		{"TIP", ports.ProviderStatusPending},
		{"TS", ports.ProviderStatusConfirmed},
		{"TF", ports.ProviderStatusFailed},
		{"XX", ports.ProviderStatusUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, airtelStatus(tt.code), tt.code)
	}
}

func TestAirtelGateway_PollStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/standard/v1/payments/ATL-REF-55", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var out airtelResponse
		out.Data.Transaction.ID = "ATL-REF-55"
		out.Data.Transaction.Status = "TS"
		out.Data.Transaction.Amount = 12_500
		out.Status.Success = true
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	gw := NewAirtelGateway(providerConfig(srv.URL), testSecret(t, "airtel"), srv.Client(), logger.New("error", false))

	result, err := gw.PollStatus(context.Background(), "ATL-REF-55")
	require.NoError(t, err)
	assert.Equal(t, ports.ProviderStatusConfirmed, result.Status)
	assert.Equal(t, int64(12_500), result.Amount)
	assert.NotNil(t, result.ConfirmedAt)
}

func TestAirtelGateway_VerifyWebhook(t *testing.T) {
	gw := NewAirtelGateway(providerConfig("http://unused"), testSecret(t, "airtel"), http.DefaultClient, logger.New("error", false))
	payload := []byte(`{"transaction":{"id":"ATL-REF-55","status_code":"TS"}}`)

	mac := hmac.New(sha256.New, testSecret(t, "airtel"))
	mac.Write(payload)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, gw.VerifyWebhook(payload, signature))
	assert.False(t, gw.VerifyWebhook(payload, "bogus"))
}

func TestWebhookSecret_PerProviderDerivation(t *testing.T) {
	mtnSecret, err := WebhookSecret(testMasterKey, "mtn")
	require.NoError(t, err)
	airtelSecret, err := WebhookSecret(testMasterKey, "airtel")
	require.NoError(t, err)

	assert.Len(t, mtnSecret, 32)
	assert.NotEqual(t, mtnSecret, airtelSecret)

	again, err := WebhookSecret(testMasterKey, "mtn")
	require.NoError(t, err)
	assert.Equal(t, mtnSecret, again)

	_, err = WebhookSecret("not-hex", "mtn")
	assert.Error(t, err)

	_, err = WebhookSecret("00010203", "mtn")
	assert.Error(t, err)
}

func TestRegistry_GetAndNames(t *testing.T) {
	cfg := config.GatewayConfig{Providers: map[string]config.ProviderConfig{
		"mtn":    providerConfig("http://mtn.test"),
		"airtel": providerConfig("http://airtel.test"),
		"mpesa":  providerConfig("http://unknown.test"), // no adapter yet
	}}

	reg, err := NewRegistry(cfg, testMasterKey, logger.New("error", false))
	require.NoError(t, err)

	gw, ok := reg.Get("mtn")
	require.True(t, ok)
	assert.Equal(t, "mtn", gw.Name())

	_, ok = reg.Get("mpesa")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"mtn", "airtel"}, reg.Names())
}

func TestMTNGateway_ParseWebhook(t *testing.T) {
	gw := NewMTNGateway(providerConfig("http://unused"), testSecret(t, "mtn"), http.DefaultClient, logger.New("error", false))

	event, err := gw.ParseWebhook([]byte(`{"referenceId":"MTN-REF-001","status":"SUCCESSFUL","amount":"25000","finishedAt":"2026-08-30T14:05:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "mtn", event.Provider)
	assert.Equal(t, "MTN-REF-001", event.ExternalRef)
	assert.Equal(t, string(ports.ProviderStatusConfirmed), event.Status)
	assert.Equal(t, int64(25_000), event.Amount)
	assert.Equal(t, 2026, event.ConfirmedAt.Year())

	_, err = gw.ParseWebhook([]byte(`{"status":"SUCCESSFUL"}`))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = gw.ParseWebhook([]byte(`not json`))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestAirtelGateway_ParseWebhook(t *testing.T) {
	gw := NewAirtelGateway(providerConfig("http://unused"), testSecret(t, "airtel"), http.DefaultClient, logger.New("error", false))

	var payload airtelResponse
	payload.Data.Transaction.ID = "ATL-REF-55"
	payload.Data.Transaction.Status = "TF"
	payload.Data.Transaction.Amount = 12_500
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	event, err := gw.ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, "airtel", event.Provider)
	assert.Equal(t, "ATL-REF-55", event.ExternalRef)
	assert.Equal(t, string(ports.ProviderStatusFailed), event.Status)
	assert.Equal(t, int64(12_500), event.Amount)

	_, err = gw.ParseWebhook([]byte(`{}`))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
