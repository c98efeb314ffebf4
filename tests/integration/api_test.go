package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/gateway"
	httpDto "wallet-ledger/internal/adapter/http/dto"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/orders"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret = "integration-jwt-secret-32-bytes!"
	testJWTIssuer = "wallet-platform"
	testAPIKey    = "test-subscription-key"
	testMasterKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
)

// fakeProvider stands in for the MTN collection API. Every initiated payment
// gets a unique reference and starts PENDING until the test settles it.
type fakeProvider struct {
	mu       sync.Mutex
	seq      int
	payments map[string]*fakePayment
	server   *httptest.Server
}

type fakePayment struct {
	Amount string
	Status string
}

func newFakeProvider() *fakeProvider {
	p := &fakeProvider{payments: make(map[string]*fakePayment)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /collection/v1/requesttopay", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Amount string `json:"amount"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		p.mu.Lock()
		p.seq++
		ref := fmt.Sprintf("MTN-%06d", p.seq)
		p.payments[ref] = &fakePayment{Amount: body.Amount, Status: "PENDING"}
		p.mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"referenceId": ref})
	})
	mux.HandleFunc("GET /collection/v1/requesttopay/", func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimPrefix(r.URL.Path, "/collection/v1/requesttopay/")
		p.mu.Lock()
		pay, ok := p.payments[ref]
		p.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"referenceId": ref,
			"status":      pay.Status,
			"amount":      pay.Amount,
			"finishedAt":  time.Now().UTC().Format(time.RFC3339),
		})
	})
	p.server = httptest.NewServer(mux)
	return p
}

func (p *fakeProvider) settle(ref, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pay, ok := p.payments[ref]; ok {
		pay.Status = status
	}
}

// fakeOrders stands in for the order service's internal totals endpoint.
type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]map[string]any
	server *httptest.Server
}

func newFakeOrders() *fakeOrders {
	f := &fakeOrders{orders: make(map[string]map[string]any)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 5 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		orderID := parts[4]
		f.mu.Lock()
		order, ok := f.orders[orderID]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(order)
	}))
	return f
}

func (f *fakeOrders) add(orderID string, subtotal, deliveryFee int64, vendorID string, riderID *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[orderID] = map[string]any{
		"order_id":     orderID,
		"subtotal":     subtotal,
		"delivery_fee": deliveryFee,
		"vendor_id":    vendorID,
		"rider_id":     riderID,
	}
}

// testApp wires the full stack: real HTTP layer, middleware, services, Redis
// stores against miniredis, gateways against a fake provider, and in-memory
// postgres repos. Only the database itself is substituted.
type testApp struct {
	server     *httptest.Server
	provider   *fakeProvider
	orderSrv   *fakeOrders
	walletRepo *memWalletRepo
	ledgerRepo *memLedgerRepo
	txRepo     *memTransactionRepo
	reviewRepo *memReviewRepo
	reconSvc   ports.ReconciliationService
	authToken  string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	provider := newFakeProvider()
	t.Cleanup(provider.server.Close)
	orderSrv := newFakeOrders()
	t.Cleanup(orderSrv.server.Close)

	log := logger.New("error", false)

	ledgerCfg := config.LedgerConfig{Currency: "UGX", MaxApplyAttempts: 5}
	gatewayCfg := config.GatewayConfig{Providers: map[string]config.ProviderConfig{
		"mtn": {
			BaseURL:     provider.server.URL,
			APIKey:      testAPIKey,
			Timeout:     5 * time.Second,
			AttemptCap:  3,
			BackoffBase: time.Millisecond,
		},
	}}
	reconCfg := config.ReconciliationConfig{
		Interval:    time.Minute,
		GracePeriod: 0,
		MaxAge:      24 * time.Hour,
		TimeWindow:  time.Hour,
		BatchSize:   100,
	}

	walletRepo := newMemWalletRepo()
	ledgerRepo := newMemLedgerRepo()
	txRepo := newMemTransactionRepo()
	reviewRepo := newMemReviewRepo()
	now := time.Now().Add(-time.Hour)
	ruleRepo := newMemRuleRepo(
		domain.CommissionRule{
			ID:            uuid.New(),
			ResourceType:  domain.ResourceTypeOrder,
			Rate:          decimal.NewFromFloat(0.15),
			EffectiveFrom: now,
		},
		domain.CommissionRule{
			ID:            uuid.New(),
			ResourceType:  domain.ResourceTypeDelivery,
			Rate:          decimal.NewFromFloat(0.20),
			EffectiveFrom: now,
		},
	)

	idemCache := redisStorage.NewIdempotencyCache(rdb)
	replayGuard := redisStorage.NewReplayGuard(rdb)

	encSvc, err := service.NewAESEncryptionService(testMasterKey)
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService(testJWTSecret, testJWTIssuer)
	commissionEngine := service.NewCommissionEngine()
	ruleSource := service.NewCachedRuleSource(ruleRepo, time.Minute)

	gateways, err := gateway.NewRegistry(gatewayCfg, testMasterKey, log)
	require.NoError(t, err)
	orderClient := orders.NewClient(config.OrdersConfig{BaseURL: orderSrv.server.URL}, http.DefaultClient, log)
	notifier := service.NewHTTPNotifier(config.NotifierConfig{}, http.DefaultClient, log)

	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, newMemTransactor(), ledgerCfg, log)
	txSvc := service.NewTransactionService(
		txRepo, walletRepo, walletSvc, ruleSource, commissionEngine,
		orderClient, gateways, encSvc, idemCache, notifier,
		ledgerCfg, gatewayCfg, reconCfg, log,
	)
	reconSvc := service.NewReconciliationService(
		txRepo, txSvc, gateways, reviewRepo, replayGuard, notifier, reconCfg, log,
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		TxSvc:          txSvc,
		ReconSvc:       reconSvc,
		LedgerRepo:     ledgerRepo,
		ReviewRepo:     reviewRepo,
		Gateways:       gateways,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		Logger:         log,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{
		server:     server,
		provider:   provider,
		orderSrv:   orderSrv,
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		txRepo:     txRepo,
		reviewRepo: reviewRepo,
		reconSvc:   reconSvc,
		authToken:  mintServiceToken(t),
	}
}

func mintServiceToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": testJWTIssuer,
		"sub": "orders-service",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func (app *testApp) request(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, app.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+app.authToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func decodeData(t *testing.T, raw []byte, target any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

func (app *testApp) createWallet(t *testing.T, ownerID, ownerType string) httpDto.WalletResponse {
	t.Helper()
	resp, raw := app.request(t, http.MethodPost, "/api/v1/wallets", map[string]string{
		"owner_id":   ownerID,
		"owner_type": ownerType,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var wallet httpDto.WalletResponse
	decodeData(t, raw, &wallet)
	return wallet
}

// seedWallet plants a funded wallet directly in storage, standing in for
// money that arrived before the test began.
func (app *testApp) seedWallet(t *testing.T, ownerID string, ownerType domain.OwnerType, balance int64) *domain.Wallet {
	t.Helper()
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Currency:  "UGX",
		Balance:   balance,
		Version:   1,
		Status:    domain.WalletStatusActive,
	}
	require.NoError(t, app.walletRepo.Create(context.Background(), w))
	return w
}

func (app *testApp) balanceOf(t *testing.T, walletID uuid.UUID) int64 {
	t.Helper()
	w, err := app.walletRepo.GetByID(context.Background(), walletID)
	require.NoError(t, err)
	return w.Balance
}

func (app *testApp) balanceOfOwner(t *testing.T, ownerID string) int64 {
	t.Helper()
	w, err := app.walletRepo.GetByOwner(context.Background(), ownerID, "UGX")
	require.NoError(t, err)
	return w.Balance
}

func signWebhook(body []byte) string {
	secret, err := gateway.WebhookSecret(testMasterKey, "mtn")
	if err != nil {
		panic(err)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (app *testApp) sendWebhook(t *testing.T, ref string, status string, amount int64) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"referenceId": ref,
		"status":      status,
		"amount":      fmt.Sprintf("%d", amount),
		"finishedAt":  time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/webhooks/mtn", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signWebhook(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func TestDepositLifecycle(t *testing.T) {
	app := newTestApp(t)

	wallet := app.createWallet(t, "cust-1", "CUSTOMER")

	resp, raw := app.request(t, http.MethodPost, "/api/v1/transactions/deposit", map[string]any{
		"wallet_id":    wallet.ID,
		"amount":       20000,
		"provider":     "mtn",
		"phone_number": "256770000001",
	}, map[string]string{"Idempotency-Key": "dep-life-1"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	var txn httpDto.TransactionResponse
	decodeData(t, raw, &txn)
	assert.Equal(t, "DEPOSIT", txn.Type)
	assert.Equal(t, string(domain.StatusAwaitingReconciliation), txn.Status)
	require.NotNil(t, txn.ExternalRef)

	// No money moved yet: the rail has not confirmed.
	walletID := uuid.MustParse(wallet.ID)
	assert.Equal(t, int64(0), app.balanceOf(t, walletID))

	// Provider confirms via callback.
	whResp, whRaw := app.sendWebhook(t, *txn.ExternalRef, "SUCCESSFUL", 20000)
	require.Equal(t, http.StatusOK, whResp.StatusCode, string(whRaw))

	assert.Equal(t, int64(20000), app.balanceOf(t, walletID))

	resp, raw = app.request(t, http.MethodGet, "/api/v1/transactions/"+txn.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, raw, &txn)
	assert.Equal(t, string(domain.StatusCompleted), txn.Status)

	// Two ledger entries: wallet credit and external wallet debit.
	entries, err := app.ledgerRepo.ListByTransaction(context.Background(), uuid.MustParse(txn.ID))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	assert.Equal(t, int64(0), sum)
}

func TestDepositIdempotentReplay(t *testing.T) {
	app := newTestApp(t)
	wallet := app.createWallet(t, "cust-2", "CUSTOMER")

	body := map[string]any{
		"wallet_id":    wallet.ID,
		"amount":       5000,
		"provider":     "mtn",
		"phone_number": "256770000002",
	}
	headers := map[string]string{"Idempotency-Key": "dep-replay-1"}

	resp1, raw1 := app.request(t, http.MethodPost, "/api/v1/transactions/deposit", body, headers)
	require.Equal(t, http.StatusAccepted, resp1.StatusCode)
	var first httpDto.TransactionResponse
	decodeData(t, raw1, &first)

	_, raw2 := app.request(t, http.MethodPost, "/api/v1/transactions/deposit", body, headers)
	var second httpDto.TransactionResponse
	decodeData(t, raw2, &second)

	assert.Equal(t, first.ID, second.ID)
}

func TestWebhookReplayCreditsOnce(t *testing.T) {
	app := newTestApp(t)
	wallet := app.createWallet(t, "cust-3", "CUSTOMER")

	_, raw := app.request(t, http.MethodPost, "/api/v1/transactions/deposit", map[string]any{
		"wallet_id":    wallet.ID,
		"amount":       7500,
		"provider":     "mtn",
		"phone_number": "256770000003",
	}, map[string]string{"Idempotency-Key": "dep-wh-replay"})
	var txn httpDto.TransactionResponse
	decodeData(t, raw, &txn)
	require.NotNil(t, txn.ExternalRef)

	for i := 0; i < 3; i++ {
		resp, _ := app.sendWebhook(t, *txn.ExternalRef, "SUCCESSFUL", 7500)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.Equal(t, int64(7500), app.balanceOf(t, uuid.MustParse(wallet.ID)))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app := newTestApp(t)

	body := []byte(`{"referenceId":"MTN-000001","status":"SUCCESSFUL","amount":"1000"}`)
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/webhooks/mtn", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Signature", "deadbeef")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookAmountMismatchParksForReview(t *testing.T) {
	app := newTestApp(t)
	wallet := app.createWallet(t, "cust-4", "CUSTOMER")

	_, raw := app.request(t, http.MethodPost, "/api/v1/transactions/deposit", map[string]any{
		"wallet_id":    wallet.ID,
		"amount":       10000,
		"provider":     "mtn",
		"phone_number": "256770000004",
	}, map[string]string{"Idempotency-Key": "dep-mismatch"})
	var txn httpDto.TransactionResponse
	decodeData(t, raw, &txn)
	require.NotNil(t, txn.ExternalRef)

	// Provider claims a different amount than we initiated.
	resp, _ := app.sendWebhook(t, *txn.ExternalRef, "SUCCESSFUL", 9999)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// No money moved; the transaction is parked for a human.
	assert.Equal(t, int64(0), app.balanceOf(t, uuid.MustParse(wallet.ID)))
	parked, err := app.reviewRepo.ExistsForTransaction(context.Background(), uuid.MustParse(txn.ID))
	require.NoError(t, err)
	assert.True(t, parked)

	respList, rawList := app.request(t, http.MethodGet, "/api/v1/reviews", nil, nil)
	require.Equal(t, http.StatusOK, respList.StatusCode)
	var reviews []httpDto.ReviewResponse
	decodeData(t, rawList, &reviews)
	require.Len(t, reviews, 1)
	assert.Equal(t, txn.ID, reviews[0].TransactionID)
}

func TestOrderPaymentSplitsCommission(t *testing.T) {
	app := newTestApp(t)

	customer := app.seedWallet(t, "cust-5", domain.OwnerTypeCustomer, 100000)
	rider := "rider-9"
	app.orderSrv.add("order-1001", 30000, 5000, "vendor-7", &rider)

	resp, raw := app.request(t, http.MethodPost, "/api/v1/transactions/order-payment", map[string]any{
		"order_id":           "order-1001",
		"customer_wallet_id": customer.ID.String(),
	}, map[string]string{"Idempotency-Key": "order-1001-pay"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var txn httpDto.TransactionResponse
	decodeData(t, raw, &txn)
	assert.Equal(t, string(domain.StatusCompleted), txn.Status)
	assert.Equal(t, int64(35000), txn.Amount)
	assert.Len(t, txn.Legs, 4)

	// 15% order commission, 20% delivery commission, floor rounding.
	assert.Equal(t, int64(65000), app.balanceOf(t, customer.ID))
	assert.Equal(t, int64(25500), app.balanceOfOwner(t, "vendor-7"))
	assert.Equal(t, int64(4000), app.balanceOfOwner(t, "rider-9"))
	assert.Equal(t, int64(5500), app.balanceOfOwner(t, "platform"))
}

func TestOrderPaymentWithoutRiderPaysVendorTheFee(t *testing.T) {
	app := newTestApp(t)

	customer := app.seedWallet(t, "cust-6", domain.OwnerTypeCustomer, 50000)
	app.orderSrv.add("order-1002", 10000, 2000, "vendor-8", nil)

	resp, raw := app.request(t, http.MethodPost, "/api/v1/transactions/order-payment", map[string]any{
		"order_id":           "order-1002",
		"customer_wallet_id": customer.ID.String(),
	}, map[string]string{"Idempotency-Key": "order-1002-pay"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	assert.Equal(t, int64(38000), app.balanceOf(t, customer.ID))
	assert.Equal(t, int64(10500), app.balanceOfOwner(t, "vendor-8"))
	assert.Equal(t, int64(1500), app.balanceOfOwner(t, "platform"))
}

func TestOrderPaymentInsufficientFunds(t *testing.T) {
	app := newTestApp(t)

	customer := app.seedWallet(t, "cust-7", domain.OwnerTypeCustomer, 100)
	app.orderSrv.add("order-1003", 10000, 0, "vendor-9", nil)

	resp, raw := app.request(t, http.MethodPost, "/api/v1/transactions/order-payment", map[string]any{
		"order_id":           "order-1003",
		"customer_wallet_id": customer.ID.String(),
	}, map[string]string{"Idempotency-Key": "order-1003-pay"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(raw))

	// Nothing moved.
	assert.Equal(t, int64(100), app.balanceOf(t, customer.ID))
	assert.Equal(t, int64(0), app.balanceOfOwner(t, "vendor-9"))
}

func TestRefundRestoresBalances(t *testing.T) {
	app := newTestApp(t)

	customer := app.seedWallet(t, "cust-8", domain.OwnerTypeCustomer, 100000)
	rider := "rider-10"
	app.orderSrv.add("order-1004", 30000, 5000, "vendor-10", &rider)

	_, raw := app.request(t, http.MethodPost, "/api/v1/transactions/order-payment", map[string]any{
		"order_id":           "order-1004",
		"customer_wallet_id": customer.ID.String(),
	}, map[string]string{"Idempotency-Key": "order-1004-pay"})
	var payment httpDto.TransactionResponse
	decodeData(t, raw, &payment)

	resp, raw := app.request(t, http.MethodPost, "/api/v1/transactions/refund", map[string]any{
		"original_transaction_id": payment.ID,
		"reason":                  "order never delivered",
	}, map[string]string{"Idempotency-Key": "order-1004-refund"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var refund httpDto.TransactionResponse
	decodeData(t, raw, &refund)
	assert.Equal(t, string(domain.TransactionTypeRefund), refund.Type)
	assert.Equal(t, string(domain.StatusCompleted), refund.Status)

	assert.Equal(t, int64(100000), app.balanceOf(t, customer.ID))
	assert.Equal(t, int64(0), app.balanceOfOwner(t, "vendor-10"))
	assert.Equal(t, int64(0), app.balanceOfOwner(t, "rider-10"))
	assert.Equal(t, int64(0), app.balanceOfOwner(t, "platform"))

	// The original payment is now marked reversed.
	_, raw = app.request(t, http.MethodGet, "/api/v1/transactions/"+payment.ID, nil, nil)
	var original httpDto.TransactionResponse
	decodeData(t, raw, &original)
	assert.Equal(t, string(domain.StatusReversed), original.Status)
}

func TestReconcilerPollCompletesDeposit(t *testing.T) {
	app := newTestApp(t)
	wallet := app.createWallet(t, "cust-9", "CUSTOMER")

	_, raw := app.request(t, http.MethodPost, "/api/v1/transactions/deposit", map[string]any{
		"wallet_id":    wallet.ID,
		"amount":       12000,
		"provider":     "mtn",
		"phone_number": "256770000009",
	}, map[string]string{"Idempotency-Key": "dep-poll-1"})
	var txn httpDto.TransactionResponse
	decodeData(t, raw, &txn)
	require.NotNil(t, txn.ExternalRef)

	// No callback arrives; the worker polls the provider instead.
	app.provider.settle(*txn.ExternalRef, "SUCCESSFUL")
	require.NoError(t, app.reconSvc.RunOnce(context.Background()))

	assert.Equal(t, int64(12000), app.balanceOf(t, uuid.MustParse(wallet.ID)))

	stored, err := app.txRepo.GetByID(context.Background(), uuid.MustParse(txn.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestReconcilerPollFailsDeposit(t *testing.T) {
	app := newTestApp(t)
	wallet := app.createWallet(t, "cust-10", "CUSTOMER")

	_, raw := app.request(t, http.MethodPost, "/api/v1/transactions/deposit", map[string]any{
		"wallet_id":    wallet.ID,
		"amount":       8000,
		"provider":     "mtn",
		"phone_number": "256770000010",
	}, map[string]string{"Idempotency-Key": "dep-poll-2"})
	var txn httpDto.TransactionResponse
	decodeData(t, raw, &txn)
	require.NotNil(t, txn.ExternalRef)

	app.provider.settle(*txn.ExternalRef, "FAILED")
	require.NoError(t, app.reconSvc.RunOnce(context.Background()))

	assert.Equal(t, int64(0), app.balanceOf(t, uuid.MustParse(wallet.ID)))

	stored, err := app.txRepo.GetByID(context.Background(), uuid.MustParse(txn.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
}

func TestRequestsRequireServiceToken(t *testing.T) {
	app := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/wallets/"+uuid.NewString(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
