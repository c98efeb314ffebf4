package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDoer captures requests and answers with a fixed status.
type recordingDoer struct {
	mu       sync.Mutex
	requests []eventPayload
	status   int
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.requests = append(d.requests, payload)
	d.mu.Unlock()

	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func (d *recordingDoer) delivered() []eventPayload {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]eventPayload, len(d.requests))
	copy(out, d.requests)
	return out
}

func TestHTTPNotifier_DeliversTransactionEvent(t *testing.T) {
	doer := &recordingDoer{}
	n := NewHTTPNotifier(config.NotifierConfig{SinkURL: "http://sink.local/events"}, doer, logger.New("error", false)).(*httpNotifier)

	orderID := "order-42"
	txn := &domain.Transaction{
		ID:       uuid.New(),
		Type:     domain.TransactionTypeOrderPayment,
		Status:   domain.StatusCompleted,
		Amount:   35_000,
		Currency: "UGX",
		OrderID:  &orderID,
	}

	// Call the delivery path directly so there is no goroutine to wait on.
	n.deliverWithRetries(eventPayload{
		Event:         EventTransactionCompleted,
		TransactionID: txn.ID.String(),
		Type:          string(txn.Type),
		Status:        string(txn.Status),
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		OrderID:       txn.OrderID,
		Timestamp:     time.Now().Unix(),
	})

	delivered := doer.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, EventTransactionCompleted, delivered[0].Event)
	assert.Equal(t, txn.ID.String(), delivered[0].TransactionID)
	assert.Equal(t, int64(35_000), delivered[0].Amount)
	require.NotNil(t, delivered[0].OrderID)
	assert.Equal(t, "order-42", *delivered[0].OrderID)
}

func TestHTTPNotifier_DeliversAlert(t *testing.T) {
	doer := &recordingDoer{}
	n := NewHTTPNotifier(config.NotifierConfig{SinkURL: "http://sink.local/events"}, doer, logger.New("error", false)).(*httpNotifier)

	txnID := uuid.New()
	n.deliverWithRetries(eventPayload{
		Event:         "ALERT",
		TransactionID: txnID.String(),
		Message:       "reconciliation mismatch: amount mismatch",
		Timestamp:     time.Now().Unix(),
	})

	delivered := doer.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, "ALERT", delivered[0].Event)
	assert.Equal(t, "reconciliation mismatch: amount mismatch", delivered[0].Message)
}

func TestHTTPNotifier_NoSinkConfiguredSkips(t *testing.T) {
	doer := &recordingDoer{}
	n := NewHTTPNotifier(config.NotifierConfig{}, doer, logger.New("error", false))

	txn := &domain.Transaction{ID: uuid.New(), Status: domain.StatusCompleted}
	// Both return synchronously without spawning a delivery goroutine.
	n.TransactionEvent(context.Background(), txn, EventTransactionCompleted)
	n.Alert(context.Background(), "something odd", txn.ID)

	assert.Empty(t, doer.delivered())
}
