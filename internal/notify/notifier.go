// Package notify pushes placed orders to the kitchen order console so
// staff see new orders without polling.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

type Notifier struct {
	consoleURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(consoleURL string, client *http.Client, logger *slog.Logger) *Notifier {
	return &Notifier{
		consoleURL: consoleURL,
		httpClient: client,
		logger:     logger,
	}
}

type consoleNotification struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	PaymentType string `json:"payment_type"`
	Total       int64  `json:"total"`
}

// Handle is the order.placed consumer handler.
func (n *Notifier) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	n.logger.Info("notifying order console", "order_id", event.OrderID, "payment_type", event.PaymentType)

	if err := n.post(ctx, consoleNotification{
		OrderID:     event.OrderID,
		UserID:      event.UserID,
		PaymentType: event.PaymentType,
		Total:       event.Total,
	}); err != nil {
		n.logger.Error("failed to notify order console", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("notify order console: %w", err)
	}

	return nil
}

func (n *Notifier) post(ctx context.Context, notification consoleNotification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.consoleURL+"/notifications", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("order console returned status %d", resp.StatusCode)
	}

	return nil
}
