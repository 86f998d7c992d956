package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tickethub/internal/domain"
)

func TestCreateOrderParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if _, _, ok := r.BasicAuth(); !ok {
			t.Errorf("missing basic auth")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_abc","amount":120000,"currency":"INR","receipt":"BKG-X","status":"created"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret", 2*time.Second)
	order, err := c.CreateOrder(context.Background(), 120000, "INR", "BKG-X")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if order.ID != "order_abc" || order.Amount != 120000 {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Raw == "" {
		t.Fatalf("raw response not captured")
	}
}

func TestServerErrorsAreRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret", 2*time.Second)
	_, err := c.FetchPayment(context.Background(), "pay_1")
	if err == nil {
		t.Fatal("expected error on 502")
	}
	if !domain.IsRetryableGateway(err) {
		t.Fatalf("expected retryable gateway error, got %v", err)
	}
}

func TestClientErrorsAreTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"description":"bad amount"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret", 2*time.Second)
	_, err := c.Refund(context.Background(), "pay_1", 100)
	if err == nil {
		t.Fatal("expected error on 400")
	}
	if domain.IsRetryableGateway(err) {
		t.Fatalf("4xx must not be retryable: %v", err)
	}
}

func TestTimeoutIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret", 20*time.Millisecond)
	_, err := c.FetchPayment(context.Background(), "pay_1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !domain.IsRetryableGateway(err) {
		t.Fatalf("expected retryable gateway error on timeout, got %v", err)
	}
}
