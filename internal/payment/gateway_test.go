package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPGatewayCreateOrder(t *testing.T) {
	t.Run("posts amount with basic auth", func(t *testing.T) {
		var gotBody gatewayOrderRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != "key_id" || pass != "key_secret" {
				t.Errorf("unexpected credentials: %s / %s", user, pass)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(GatewayOrder{ID: "order_abc", Amount: gotBody.Amount})
		}))
		defer server.Close()

		gw := NewHTTPGateway(server.URL, "key_id", "key_secret", server.Client())
		order, err := gw.CreateOrder(context.Background(), 30000)
		if err != nil {
			t.Fatalf("create order: %v", err)
		}

		if order.ID != "order_abc" || order.Amount != 30000 {
			t.Errorf("unexpected order: %+v", order)
		}
		if gotBody.Amount != 30000 || gotBody.Currency != "INR" || gotBody.Receipt == "" {
			t.Errorf("unexpected request body: %+v", gotBody)
		}
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		gw := NewHTTPGateway(server.URL, "bad", "creds", server.Client())
		if _, err := gw.CreateOrder(context.Background(), 100); err == nil {
			t.Error("expected error for 401 response")
		}
	})

	t.Run("missing order id is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(GatewayOrder{Amount: 100})
		}))
		defer server.Close()

		gw := NewHTTPGateway(server.URL, "key", "secret", server.Client())
		if _, err := gw.CreateOrder(context.Background(), 100); err == nil {
			t.Error("expected error for empty order id")
		}
	})
}

func TestHTTPGatewayVerifySignature(t *testing.T) {
	gw := NewHTTPGateway("http://gateway", "key", "secret", http.DefaultClient)

	sign := func(orderID, paymentID string) string {
		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte(orderID + "|" + paymentID))
		return hex.EncodeToString(mac.Sum(nil))
	}

	if !gw.VerifySignature("order_1", "pay_1", sign("order_1", "pay_1")) {
		t.Error("valid signature rejected")
	}
	if gw.VerifySignature("order_1", "pay_1", sign("order_1", "pay_2")) {
		t.Error("signature for a different payment accepted")
	}
	if gw.VerifySignature("order_1", "pay_1", "not-a-signature") {
		t.Error("garbage signature accepted")
	}
	if gw.VerifySignature("order_1", "pay_1", "") {
		t.Error("empty signature accepted")
	}
}
