package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches order totals from the order service. The ledger never
// trusts client-supplied amounts for order payments; this is the
// authoritative source.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	log        zerolog.Logger
}

func NewClient(cfg config.OrdersConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{baseURL: cfg.BaseURL, httpClient: httpClient, log: log}
}

type orderTotalResponse struct {
	OrderID     string  `json:"order_id"`
	Subtotal    int64   `json:"subtotal"`
	DeliveryFee int64   `json:"delivery_fee"`
	VendorID    string  `json:"vendor_id"`
	RiderID     *string `json:"rider_id,omitempty"`
}

func (c *Client) GetOrderTotal(ctx context.Context, orderID string) (*ports.OrderTotal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/internal/v1/orders/"+orderID+"/total", nil)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "order service unreachable", http.StatusBadGateway, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperror.ErrNotFound("order")
	default:
		return nil, apperror.Wrap(apperror.CodeInternal,
			fmt.Sprintf("order service returned status %d", resp.StatusCode), http.StatusBadGateway, nil)
	}

	var out orderTotalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decoding order total: %w", err))
	}
	if out.Subtotal < 0 || out.DeliveryFee < 0 {
		return nil, apperror.Validation("order service reported negative amounts")
	}

	return &ports.OrderTotal{
		OrderID:     out.OrderID,
		Subtotal:    out.Subtotal,
		DeliveryFee: out.DeliveryFee,
		VendorID:    out.VendorID,
		RiderID:     out.RiderID,
	}, nil
}
