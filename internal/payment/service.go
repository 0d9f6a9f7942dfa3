package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neurocanteen/canteen-go/internal/auth"
	"github.com/neurocanteen/canteen-go/internal/checkout"
	"github.com/neurocanteen/canteen-go/internal/domain"
	"github.com/neurocanteen/canteen-go/internal/telemetry"
)

var (
	ErrUnknownIntent      = errors.New("no payment intent for gateway order")
	ErrVerificationFailed = errors.New("payment signature verification failed")
)

// IntentStore is the persistence slice the payment flow uses.
type IntentStore interface {
	Create(ctx context.Context, intent *domain.PaymentIntent) error
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentIntent, error)
	MarkCaptured(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
	MarkCancelled(ctx context.Context, id string) error
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
	SetOrderID(ctx context.Context, id, orderID string) error
}

// DraftBuilder assembles the order record to reserve on the intent.
// The checkout service implements it.
type DraftBuilder interface {
	BuildDraft(ctx context.Context, identity auth.Identity, details checkout.DeliveryDetails, tipInput, paymentType string) (domain.OrderRecord, checkout.Totals, error)
}

// CartClearer empties the buyer's cart after a finalized payment.
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Publisher emits payment.captured events. May be nil when no broker
// is configured; the ticker sweep then carries recovery alone.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Service runs the online payment branch: reserve an intent with the
// order draft, charge through the gateway, verify the signature, then
// settle the intent into an order record exactly once.
type Service struct {
	gateway  Gateway
	intents  IntentStore
	drafts   DraftBuilder
	orders   checkout.OrderSubmitter
	carts    CartClearer
	producer Publisher
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

func NewService(gateway Gateway, intents IntentStore, drafts DraftBuilder, orders checkout.OrderSubmitter,
	carts CartClearer, producer Publisher, metrics *telemetry.Metrics, logger *slog.Logger) *Service {
	return &Service{
		gateway:  gateway,
		intents:  intents,
		drafts:   drafts,
		orders:   orders,
		carts:    carts,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateOrder prices the cart, opens a gateway order for the grand
// total, and reserves a payment intent carrying the order draft. No
// order record exists yet.
func (s *Service) CreateOrder(ctx context.Context, identity auth.Identity, details checkout.DeliveryDetails, tipInput string) (GatewayOrder, error) {
	flow := NewFlow()

	draft, totals, err := s.drafts.BuildDraft(ctx, identity, details, tipInput, domain.PaymentTypeUPI)
	if err != nil {
		return GatewayOrder{}, err
	}
	if err := flow.Advance(StateIdentityCheck); err != nil {
		return GatewayOrder{}, err
	}

	order, err := s.gateway.CreateOrder(ctx, totals.GrandTotal)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("create gateway order: %w", err)
	}
	if err := flow.Advance(StateOrderCreated); err != nil {
		return GatewayOrder{}, err
	}

	intent := &domain.PaymentIntent{
		GatewayOrderID: order.ID,
		UserID:         identity.Subject,
		Amount:         totals.GrandTotal,
		Draft:          draft,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return GatewayOrder{}, fmt.Errorf("reserve payment intent: %w", err)
	}
	if err := flow.Advance(StateAwaitingGateway); err != nil {
		return GatewayOrder{}, err
	}

	s.logger.Info("payment intent reserved", "intent_id", intent.ID, "gateway_order_id", order.ID,
		"user", identity.Subject, "amount", totals.GrandTotal, "state", flow.State())
	return order, nil
}

// Verify checks the gateway signature against the backend secret and,
// on success, marks the intent captured and finalizes it into an order.
// Finalization failures leave the intent captured for the reconciler.
func (s *Service) Verify(ctx context.Context, gatewayOrderID, paymentID, signature string) (string, error) {
	intent, err := s.intents.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return "", fmt.Errorf("load payment intent: %w", err)
	}
	if intent == nil {
		return "", ErrUnknownIntent
	}

	flow := Resume(intent.Status)

	if !s.gateway.VerifySignature(gatewayOrderID, paymentID, signature) {
		s.metrics.VerificationFailure(ctx)
		// Only an unsettled intent is failed; a forged retry must not
		// unwind a confirmed payment.
		if !flow.State().Terminal() && flow.State() != StateIdle {
			if err := s.intents.MarkFailed(ctx, intent.ID); err != nil {
				s.logger.Error("failed to mark intent failed", "error", err, "intent_id", intent.ID)
			}
		}
		s.logger.Warn("payment verification failed", "intent_id", intent.ID, "gateway_order_id", gatewayOrderID)
		return "", ErrVerificationFailed
	}

	if flow.State().Terminal() {
		// Replayed callback for a settled payment: report the order
		// that was already written.
		return intent.OrderID, nil
	}
	// A captured intent is already mid-verification; an earlier
	// callback got this far and lost its finalization.
	if flow.State() != StateVerifying {
		if err := flow.Advance(StateVerifying); err != nil {
			return "", fmt.Errorf("intent %s is %s: %w", intent.ID, intent.Status, err)
		}
	}

	if err := s.intents.MarkCaptured(ctx, intent.ID); err != nil {
		return "", fmt.Errorf("mark intent captured: %w", err)
	}

	if s.producer != nil {
		event := domain.PaymentCapturedEvent{
			IntentID:       intent.ID,
			GatewayOrderID: gatewayOrderID,
			UserID:         intent.UserID,
			Amount:         intent.Amount,
			Timestamp:      time.Now().UTC(),
		}
		if err := s.producer.Publish(ctx, intent.ID, event); err != nil {
			// The ticker sweep will still settle the intent.
			s.logger.Error("failed to publish payment captured event", "error", err, "intent_id", intent.ID)
		}
	}

	orderID, err := s.Finalize(ctx, intent)
	if err != nil {
		s.logger.Error("failed to finalize captured payment", "error", err, "intent_id", intent.ID)
		return "", fmt.Errorf("finalize payment: %w", err)
	}

	if err := flow.Advance(StateSubmitted); err != nil {
		return "", fmt.Errorf("intent %s: %w", intent.ID, err)
	}
	return orderID, nil
}

// Finalize settles a captured intent into an order record. It is
// idempotent across callers: the intent is claimed before the order
// write, so the inline path and the reconciler never both submit.
func (s *Service) Finalize(ctx context.Context, intent *domain.PaymentIntent) (string, error) {
	claimed, err := s.intents.Claim(ctx, intent.ID)
	if err != nil {
		return "", fmt.Errorf("claim intent: %w", err)
	}
	if !claimed {
		return "", nil
	}

	record := intent.Draft
	record.PaymentReceived = true
	status := domain.PaymentStatusCompleted
	record.PaymentStatus = &status

	orderID, err := s.orders.Submit(ctx, &record)
	if err != nil {
		if releaseErr := s.intents.Release(ctx, intent.ID); releaseErr != nil {
			s.logger.Error("failed to release claimed intent", "error", releaseErr, "intent_id", intent.ID)
		}
		return "", fmt.Errorf("submit order: %w", err)
	}

	if err := s.intents.SetOrderID(ctx, intent.ID, orderID); err != nil {
		s.logger.Error("failed to link order to intent", "error", err, "intent_id", intent.ID, "order_id", orderID)
	}

	if err := s.carts.Clear(ctx, intent.UserID); err != nil {
		s.logger.Error("failed to clear cart after payment", "error", err, "user", intent.UserID)
	}

	s.metrics.OrderSubmitted(ctx, domain.PaymentTypeUPI)
	s.logger.Info("online order placed", "order_id", orderID, "intent_id", intent.ID, "user", intent.UserID)
	return orderID, nil
}

// Cancel records a user dismissal of the gateway checkout. Unknown
// gateway orders are ignored.
func (s *Service) Cancel(ctx context.Context, gatewayOrderID string) error {
	intent, err := s.intents.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("load payment intent: %w", err)
	}
	if intent == nil {
		return nil
	}

	// A settled payment cannot be dismissed from the widget.
	if err := Resume(intent.Status).Fail(); err != nil {
		return fmt.Errorf("cancel intent %s: %w", intent.ID, err)
	}

	if err := s.intents.MarkCancelled(ctx, intent.ID); err != nil {
		return fmt.Errorf("mark intent cancelled: %w", err)
	}

	s.logger.Info("payment cancelled", "intent_id", intent.ID, "gateway_order_id", gatewayOrderID)
	return nil
}
