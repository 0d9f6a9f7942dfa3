package orders

import (
	"context"
	"log/slog"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

// Publisher emits domain events. May be nil when no broker is
// configured.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// PublishingSubmitter decorates an order store so every successful
// write emits an order placement event for the kitchen console,
// whichever path the order arrived through.
type PublishingSubmitter struct {
	next     Submitter
	producer Publisher
	logger   *slog.Logger
}

func NewPublishingSubmitter(next Submitter, producer Publisher, logger *slog.Logger) *PublishingSubmitter {
	return &PublishingSubmitter{
		next:     next,
		producer: producer,
		logger:   logger,
	}
}

// Submit writes the record and publishes the placement event keyed by
// the new order id. A publish failure never fails the order; the
// record is already durable.
func (s *PublishingSubmitter) Submit(ctx context.Context, rec *domain.OrderRecord) (string, error) {
	orderID, err := s.next.Submit(ctx, rec)
	if err != nil {
		return "", err
	}

	if s.producer != nil {
		event := domain.OrderPlacedEvent{
			OrderID:     orderID,
			UserID:      rec.BuyerUserID,
			PaymentType: rec.PaymentType,
			Total:       rec.Price,
			Timestamp:   rec.OrderDateTime,
		}
		if err := s.producer.Publish(ctx, orderID, event); err != nil {
			s.logger.Error("failed to publish order placed event", "error", err, "order_id", orderID)
		}
	}

	return orderID, nil
}

func (s *PublishingSubmitter) ListByUser(ctx context.Context, userID string) ([]domain.OrderRecord, error) {
	return s.next.ListByUser(ctx, userID)
}
