package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RESTBroker talks to an order venue over its JSON HTTP API. Error
// classification is the contract: credential rejections surface as AuthError,
// network and venue hiccups as TransientError, everything else verbatim.
type RESTBroker struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewRESTBroker constructs an adapter for the venue at baseURL.
func NewRESTBroker(baseURL, apiKey string, log zerolog.Logger) *RESTBroker {
	return &RESTBroker{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "broker").Logger(),
	}
}

type placeOrderBody struct {
	OrderID   string  `json:"order_id"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Quantity  float64 `json:"quantity"`
	OrderType string  `json:"order_type"`
	Price     float64 `json:"price,omitempty"`
}

type placeOrderResponse struct {
	BrokerOrderID string `json:"broker_order_id"`
}

// PlaceOrder submits the order and returns the venue's order id.
func (b *RESTBroker) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	body, err := json.Marshal(placeOrderBody{
		OrderID:   req.OrderID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		OrderType: req.OrderType,
		Price:     req.Price,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	var out placeOrderResponse
	if err := b.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if out.BrokerOrderID == "" {
		return "", fmt.Errorf("venue returned no order id")
	}
	b.log.Info().Str("order", req.OrderID).Str("broker_order", out.BrokerOrderID).Msg("order placed")
	return out.BrokerOrderID, nil
}

// CancelOrder asks the venue to cancel a working order.
func (b *RESTBroker) CancelOrder(ctx context.Context, brokerOrderID string) error {
	return b.do(ctx, http.MethodDelete, "/orders/"+brokerOrderID, nil, nil)
}

type orderStatusResponse struct {
	Status      string  `json:"status"`
	FilledPrice float64 `json:"filled_price"`
}

// OrderStatus fetches the venue's current view of a working order.
func (b *RESTBroker) OrderStatus(ctx context.Context, brokerOrderID string) (OrderUpdate, error) {
	var out orderStatusResponse
	if err := b.do(ctx, http.MethodGet, "/orders/"+brokerOrderID, nil, &out); err != nil {
		return OrderUpdate{}, err
	}
	return OrderUpdate{Status: out.Status, FilledPrice: out.FilledPrice}, nil
}

type positionsResponse struct {
	Positions []Position `json:"positions"`
}

// Positions fetches the venue-side position book.
func (b *RESTBroker) Positions(ctx context.Context) ([]Position, error) {
	var out positionsResponse
	if err := b.do(ctx, http.MethodGet, "/positions", nil, &out); err != nil {
		return nil, err
	}
	return out.Positions, nil
}

// Funds fetches account buying power.
func (b *RESTBroker) Funds(ctx context.Context) (Funds, error) {
	var out Funds
	if err := b.do(ctx, http.MethodGet, "/funds", nil, &out); err != nil {
		return Funds{}, err
	}
	return out, nil
}

func (b *RESTBroker) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Reason: fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode)}
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &TransientError{Err: fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)}
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
