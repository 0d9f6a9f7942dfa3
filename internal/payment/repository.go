package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

// Repository persists payment intents. The status column carries the
// two-phase bookkeeping: created -> captured -> confirmed, with
// cancelled and failed as side exits.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	intent.ID = uuid.New().String()
	intent.Status = domain.IntentStatusCreated

	draft, err := json.Marshal(intent.Draft)
	if err != nil {
		return fmt.Errorf("marshal order draft: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO payment_intents (id, gateway_order_id, user_id, amount, status, draft, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`, intent.ID, intent.GatewayOrderID, intent.UserID, intent.Amount, intent.Status, draft)
	return err
}

// GetByGatewayOrderID returns nil when no intent matches.
func (r *Repository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentIntent, error) {
	return r.get(ctx, `
		SELECT id, gateway_order_id, user_id, amount, status, draft, order_id, created_at, updated_at
		FROM payment_intents
		WHERE gateway_order_id = $1
	`, gatewayOrderID)
}

// GetByID returns nil when no intent matches.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return r.get(ctx, `
		SELECT id, gateway_order_id, user_id, amount, status, draft, order_id, created_at, updated_at
		FROM payment_intents
		WHERE id = $1
	`, id)
}

func (r *Repository) get(ctx context.Context, query string, arg any) (*domain.PaymentIntent, error) {
	intent := &domain.PaymentIntent{}
	var draft []byte
	var orderID sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&intent.ID, &intent.GatewayOrderID,
		&intent.UserID, &intent.Amount, &intent.Status, &draft, &orderID, &intent.CreatedAt, &intent.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	intent.OrderID = orderID.String

	if err := json.Unmarshal(draft, &intent.Draft); err != nil {
		return nil, fmt.Errorf("unmarshal order draft: %w", err)
	}

	return intent, nil
}

func (r *Repository) MarkCaptured(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.IntentStatusCaptured)
}

func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.IntentStatusFailed)
}

// MarkCancelled records a user dismissal of the gateway UI. Only
// unsettled intents can be cancelled; a capture in flight wins.
func (r *Repository) MarkCancelled(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, domain.IntentStatusCancelled, id, domain.IntentStatusCreated)
	return err
}

// Claim atomically moves a captured intent to confirmed, returning
// false when another writer settled it first.
func (r *Repository) Claim(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, domain.IntentStatusConfirmed, id, domain.IntentStatusCaptured)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Release puts a claimed intent back to captured after a failed order
// write so the reconciler can retry it.
func (r *Repository) Release(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.IntentStatusCaptured)
}

// SetOrderID links the written order record to the intent.
func (r *Repository) SetOrderID(ctx context.Context, id, orderID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents SET order_id = $1, updated_at = NOW()
		WHERE id = $2
	`, orderID, id)
	return err
}

// ListCapturedBefore returns captured intents older than the cutoff:
// payments the gateway confirmed whose order record was never written.
func (r *Repository) ListCapturedBefore(ctx context.Context, cutoff time.Time) ([]domain.PaymentIntent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, gateway_order_id, user_id, amount, status, draft, order_id, created_at, updated_at
		FROM payment_intents
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
	`, domain.IntentStatusCaptured, cutoff)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	intents := []domain.PaymentIntent{}
	for rows.Next() {
		var intent domain.PaymentIntent
		var draft []byte
		var orderID sql.NullString
		if err := rows.Scan(&intent.ID, &intent.GatewayOrderID, &intent.UserID, &intent.Amount,
			&intent.Status, &draft, &orderID, &intent.CreatedAt, &intent.UpdatedAt); err != nil {
			return nil, err
		}
		intent.OrderID = orderID.String
		if err := json.Unmarshal(draft, &intent.Draft); err != nil {
			return nil, fmt.Errorf("unmarshal order draft: %w", err)
		}
		intents = append(intents, intent)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return intents, nil
}

func (r *Repository) setStatus(ctx context.Context, id string, status domain.IntentStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	return err
}
