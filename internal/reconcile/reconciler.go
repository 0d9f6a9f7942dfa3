// Package reconcile settles captured payments whose order record was
// never written, either because the verify request died mid-flight or
// because the order write failed. It reacts to payment.captured events
// and runs a periodic sweep as a backstop.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/neurocanteen/canteen-go/internal/domain"
	"github.com/neurocanteen/canteen-go/internal/telemetry"
)

// IntentSource reads payment intents for reconciliation.
type IntentSource interface {
	GetByID(ctx context.Context, id string) (*domain.PaymentIntent, error)
	ListCapturedBefore(ctx context.Context, cutoff time.Time) ([]domain.PaymentIntent, error)
}

// Finalizer settles a captured intent into an order record. The payment
// service implements it; settlement is idempotent, so the reconciler
// and the inline verify path can race safely.
type Finalizer interface {
	Finalize(ctx context.Context, intent *domain.PaymentIntent) (string, error)
}

type Reconciler struct {
	intents   IntentSource
	finalizer Finalizer
	metrics   *telemetry.Metrics
	logger    *slog.Logger

	// grace holds back the sweep so it does not race a verify request
	// that is still in flight.
	grace    time.Duration
	interval time.Duration
}

func New(intents IntentSource, finalizer Finalizer, metrics *telemetry.Metrics, logger *slog.Logger, grace, interval time.Duration) *Reconciler {
	return &Reconciler{
		intents:   intents,
		finalizer: finalizer,
		metrics:   metrics,
		logger:    logger,
		grace:     grace,
		interval:  interval,
	}
}

// HandleCapturedEvent is the payment.captured consumer handler. The
// event is a nudge, not the source of truth: the intent row decides
// whether anything is still owed.
func (r *Reconciler) HandleCapturedEvent(ctx context.Context, payload []byte) error {
	var event domain.PaymentCapturedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal payment captured event: %w", err)
	}

	intent, err := r.intents.GetByID(ctx, event.IntentID)
	if err != nil {
		return fmt.Errorf("load intent %s: %w", event.IntentID, err)
	}
	if intent == nil {
		r.logger.Warn("captured event for unknown intent", "intent_id", event.IntentID)
		return nil
	}
	if intent.Status != domain.IntentStatusCaptured {
		return nil
	}

	r.settle(ctx, intent)
	return nil
}

// Run sweeps on a ticker until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Sweep settles every captured intent older than the grace period.
func (r *Reconciler) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.grace)
	intents, err := r.intents.ListCapturedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list captured intents: %w", err)
	}

	for i := range intents {
		r.settle(ctx, &intents[i])
	}
	return nil
}

func (r *Reconciler) settle(ctx context.Context, intent *domain.PaymentIntent) {
	orderID, err := r.finalizer.Finalize(ctx, intent)
	if err != nil {
		r.logger.Error("failed to settle captured payment", "error", err, "intent_id", intent.ID)
		return
	}
	if orderID == "" {
		// Another writer got there first.
		return
	}

	r.metrics.PaymentReconciled(ctx)
	r.logger.Info("captured payment settled", "intent_id", intent.ID, "order_id", orderID, "user", intent.UserID)
}
