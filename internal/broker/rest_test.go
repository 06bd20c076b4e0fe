package broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func testRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		OrderID: "ord-1", Symbol: "NIFTY", Side: "BUY",
		Quantity: 50, OrderType: "MARKET",
	}
}

func TestPlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		_, _ = w.Write([]byte(`{"broker_order_id":"brk-42"}`))
	}))
	defer srv.Close()

	b := NewRESTBroker(srv.URL, "key", zerolog.Nop())
	id, err := b.PlaceOrder(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if id != "brk-42" {
		t.Fatalf("unexpected broker order id %q", id)
	}
}

func TestPlaceOrderAuthClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := NewRESTBroker(srv.URL, "stale", zerolog.Nop())
	_, err := b.PlaceOrder(context.Background(), testRequest())
	if !IsAuth(err) {
		t.Fatalf("401 must classify as auth error, got %v", err)
	}
	if IsTransient(err) {
		t.Fatal("auth errors must not also classify as transient")
	}
}

func TestPlaceOrderTransientClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := NewRESTBroker(srv.URL, "key", zerolog.Nop())
	_, err := b.PlaceOrder(context.Background(), testRequest())
	if !IsTransient(err) {
		t.Fatalf("502 must classify as transient, got %v", err)
	}

	// A closed server means a network error, also transient.
	srv.Close()
	_, err = b.PlaceOrder(context.Background(), testRequest())
	if !IsTransient(err) {
		t.Fatalf("network failure must classify as transient, got %v", err)
	}
}

func TestPlaceOrderClientErrorIsPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown symbol", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	b := NewRESTBroker(srv.URL, "key", zerolog.Nop())
	_, err := b.PlaceOrder(context.Background(), testRequest())
	if err == nil || IsAuth(err) || IsTransient(err) {
		t.Fatalf("422 must be a plain rejection, got %v", err)
	}
}

func TestOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/orders/brk-42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"FILLED","filled_price":101.5}`))
	}))
	defer srv.Close()

	b := NewRESTBroker(srv.URL, "key", zerolog.Nop())
	upd, err := b.OrderStatus(context.Background(), "brk-42")
	if err != nil {
		t.Fatalf("OrderStatus returned error: %v", err)
	}
	if upd.Status != "FILLED" || upd.FilledPrice != 101.5 {
		t.Fatalf("unexpected update %+v", upd)
	}
}

func TestCancelAndQueries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/orders/brk-42":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/positions":
			_, _ = w.Write([]byte(`{"positions":[{"Symbol":"NIFTY","Quantity":50,"AvgPrice":100}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/funds":
			_, _ = w.Write([]byte(`{"Available":90000,"Used":10000}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	b := NewRESTBroker(srv.URL, "key", zerolog.Nop())
	ctx := context.Background()

	if err := b.CancelOrder(ctx, "brk-42"); err != nil {
		t.Fatalf("CancelOrder returned error: %v", err)
	}
	positions, err := b.Positions(ctx)
	if err != nil {
		t.Fatalf("Positions returned error: %v", err)
	}
	if len(positions) != 1 || positions[0].Symbol != "NIFTY" {
		t.Fatalf("unexpected positions %+v", positions)
	}
	funds, err := b.Funds(ctx)
	if err != nil {
		t.Fatalf("Funds returned error: %v", err)
	}
	if funds.Available != 90000 {
		t.Fatalf("unexpected funds %+v", funds)
	}
}
