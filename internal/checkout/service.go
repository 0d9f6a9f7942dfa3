package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neurocanteen/canteen-go/internal/auth"
	"github.com/neurocanteen/canteen-go/internal/domain"
	"github.com/neurocanteen/canteen-go/internal/telemetry"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// CartStore is the slice of the cart store the orchestrator uses.
type CartStore interface {
	Load(ctx context.Context, userID string) (domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// MenuSource supplies the cached menu reference data.
type MenuSource interface {
	ListAvailable(ctx context.Context) ([]domain.MenuItem, error)
}

// OrderSubmitter persists a write-once order record and returns its id.
type OrderSubmitter interface {
	Submit(ctx context.Context, rec *domain.OrderRecord) (string, error)
}

// Service is the checkout orchestrator: it prices the cart, validates
// the delivery details, and runs the cash-on-delivery branch. The online
// payment branch builds its draft here too, then hands off to the
// payment flow.
type Service struct {
	carts   CartStore
	menu    MenuSource
	orders  OrderSubmitter
	guard   *Guard
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

func NewService(carts CartStore, menu MenuSource, orders OrderSubmitter, metrics *telemetry.Metrics, logger *slog.Logger) *Service {
	return &Service{
		carts:   carts,
		menu:    menu,
		orders:  orders,
		guard:   NewGuard(),
		metrics: metrics,
		logger:  logger,
	}
}

// Quote prices the current cart for the buyer.
func (s *Service) Quote(ctx context.Context, identity auth.Identity, tipInput string) (Totals, error) {
	cartItems, err := s.carts.Load(ctx, identity.Subject)
	if err != nil {
		return Totals{}, fmt.Errorf("load cart: %w", err)
	}

	menuItems, err := s.menu.ListAvailable(ctx)
	if err != nil {
		return Totals{}, fmt.Errorf("load menu: %w", err)
	}

	return ComputeTotals(cartItems, menuItems, identity.Role, ParseTip(tipInput)), nil
}

// BuildDraft validates the delivery details and assembles the order
// record for the given payment type without submitting it. The online
// payment branch reserves this draft on its payment intent before the
// gateway charge.
func (s *Service) BuildDraft(ctx context.Context, identity auth.Identity, details DeliveryDetails, tipInput, paymentType string) (domain.OrderRecord, Totals, error) {
	if err := ValidateDetails(details); err != nil {
		return domain.OrderRecord{}, Totals{}, err
	}

	totals, err := s.Quote(ctx, identity, tipInput)
	if err != nil {
		return domain.OrderRecord{}, Totals{}, err
	}
	if len(totals.Lines) == 0 {
		return domain.OrderRecord{}, Totals{}, ErrEmptyCart
	}

	return BuildOrderRecord(identity, details, totals, paymentType), totals, nil
}

// SubmitCOD runs the pay-on-delivery branch: exactly one order
// submission, then the cart is cleared. Validation failures and an empty
// cart produce zero backend writes. Re-entrant submission while one is
// in flight is rejected.
func (s *Service) SubmitCOD(ctx context.Context, identity auth.Identity, details DeliveryDetails, tipInput string) (string, Totals, error) {
	if !s.guard.Begin(identity.Subject) {
		return "", Totals{}, ErrSubmissionInFlight
	}
	defer s.guard.End(identity.Subject)

	record, totals, err := s.BuildDraft(ctx, identity, details, tipInput, domain.PaymentTypeCOD)
	if err != nil {
		return "", Totals{}, err
	}

	orderID, err := s.orders.Submit(ctx, &record)
	if err != nil {
		return "", Totals{}, fmt.Errorf("submit order: %w", err)
	}

	if err := s.carts.Clear(ctx, identity.Subject); err != nil {
		// The order is placed; a stale cart is recoverable on next load.
		s.logger.Error("failed to clear cart after order", "error", err, "user", identity.Subject, "order_id", orderID)
	}

	s.metrics.OrderSubmitted(ctx, domain.PaymentTypeCOD)
	s.logger.Info("cod order placed", "order_id", orderID, "user", identity.Subject, "grand_total", totals.GrandTotal)
	return orderID, totals, nil
}
