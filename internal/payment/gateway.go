package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// GatewayOrder is the gateway-side handle for a pending charge.
type GatewayOrder struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// Gateway is the external payment processor. CreateOrder reserves a
// gateway-side order for the amount; VerifySignature checks the
// signature returned by the gateway UI after capture.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64) (GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// HTTPGateway talks to the processor's REST API with key-id/secret
// basic auth. Signatures are HMAC-SHA256 over "orderID|paymentID" keyed
// with the secret, hex encoded.
type HTTPGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewHTTPGateway(baseURL, keyID, keySecret string, client *http.Client) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    client,
	}
}

type gatewayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func (g *HTTPGateway) CreateOrder(ctx context.Context, amount int64) (GatewayOrder, error) {
	body, err := json.Marshal(gatewayOrderRequest{
		Amount:   amount,
		Currency: "INR",
		Receipt:  uuid.New().String(),
	})
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("marshal create order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("gateway create order: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return GatewayOrder{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return GatewayOrder{}, fmt.Errorf("decode gateway order: %w", err)
	}
	if order.ID == "" {
		return GatewayOrder{}, fmt.Errorf("gateway order missing id")
	}

	return order, nil
}

func (g *HTTPGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
