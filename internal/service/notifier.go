package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// notifyRetryIntervals is the delivery retry ladder for the event sink.
var notifyRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// HTTPDoer interface for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// eventPayload is the JSON structure posted to the notification sink.
type eventPayload struct {
	Event         string  `json:"event"`
	TransactionID string  `json:"transaction_id"`
	Type          string  `json:"type,omitempty"`
	Status        string  `json:"status,omitempty"`
	Amount        int64   `json:"amount,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	OrderID       *string `json:"order_id,omitempty"`
	Message       string  `json:"message,omitempty"`
	Timestamp     int64   `json:"timestamp"`
}

// httpNotifier posts lifecycle events and operator alerts to a webhook sink,
// asynchronously with retries. Delivery is best effort; the ledger is the
// source of truth, the sink is a convenience.
type httpNotifier struct {
	sinkURL    string
	httpClient HTTPDoer
	log        zerolog.Logger
}

func NewHTTPNotifier(cfg config.NotifierConfig, httpClient HTTPDoer, log zerolog.Logger) ports.Notifier {
	return &httpNotifier{
		sinkURL:    cfg.SinkURL,
		httpClient: httpClient,
		log:        log,
	}
}

func (n *httpNotifier) TransactionEvent(ctx context.Context, txn *domain.Transaction, event string) {
	if n.sinkURL == "" {
		n.log.Debug().Str("event", event).Msg("no notification sink configured, skipping")
		return
	}

	payload := eventPayload{
		Event:         event,
		TransactionID: txn.ID.String(),
		Type:          string(txn.Type),
		Status:        string(txn.Status),
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		OrderID:       txn.OrderID,
		Timestamp:     time.Now().Unix(),
	}
	go n.deliverWithRetries(payload)
}

func (n *httpNotifier) Alert(ctx context.Context, message string, txnID uuid.UUID) {
	if n.sinkURL == "" {
		n.log.Debug().Str("message", message).Msg("no notification sink configured, skipping alert")
		return
	}

	payload := eventPayload{
		Event:         "ALERT",
		TransactionID: txnID.String(),
		Message:       message,
		Timestamp:     time.Now().Unix(),
	}
	go n.deliverWithRetries(payload)
}

// deliverWithRetries attempts delivery, backing off per the retry ladder.
func (n *httpNotifier) deliverWithRetries(payload eventPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error().Err(err).Msg("notifier: failed to marshal payload")
		return
	}

	for attempt := 0; attempt <= len(notifyRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(notifyRetryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, n.sinkURL, bytes.NewReader(body))
		if err != nil {
			n.log.Error().Err(err).Str("event", payload.Event).Msg("notifier: failed to create request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			n.log.Warn().Err(err).Str("event", payload.Event).Int("attempt", attempt+1).Msg("notifier: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			n.log.Debug().Str("event", payload.Event).Int("attempt", attempt+1).Msg("notifier: delivered")
			return
		}
		n.log.Warn().Str("event", payload.Event).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("notifier: non-2xx response, retrying")
	}

	n.log.Error().Str("event", payload.Event).Str("transaction_id", payload.TransactionID).Msg("notifier: all retry attempts exhausted")
}
