package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Submit inserts the write-once order record and returns its id. The
// record is never updated after this point.
func (r *Repository) Submit(ctx context.Context, rec *domain.OrderRecord) (string, error) {
	rec.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, ordered_role, ordered_name, ordered_user_id, item_name,
			quantity, category, price, order_status, payment_type,
			payment_status, order_date_time, address, phone_no, payment_received
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, rec.ID, rec.BuyerRole, rec.BuyerName, rec.BuyerUserID, rec.ItemName,
		rec.Quantity, rec.Category, rec.Price, rec.OrderStatus, rec.PaymentType,
		rec.PaymentStatus, rec.OrderDateTime, rec.Address, rec.PhoneNo, rec.PaymentReceived)
	if err != nil {
		return "", err
	}

	return rec.ID, nil
}

// GetByID returns nil when the order does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.OrderRecord, error) {
	rec := &domain.OrderRecord{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, ordered_role, ordered_name, ordered_user_id, item_name,
		       quantity, category, price, order_status, payment_type,
		       payment_status, order_date_time, address, phone_no, payment_received
		FROM orders
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.BuyerRole, &rec.BuyerName, &rec.BuyerUserID, &rec.ItemName,
		&rec.Quantity, &rec.Category, &rec.Price, &rec.OrderStatus, &rec.PaymentType,
		&rec.PaymentStatus, &rec.OrderDateTime, &rec.Address, &rec.PhoneNo, &rec.PaymentReceived)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rec, nil
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.OrderRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ordered_role, ordered_name, ordered_user_id, item_name,
		       quantity, category, price, order_status, payment_type,
		       payment_status, order_date_time, address, phone_no, payment_received
		FROM orders
		WHERE ordered_user_id = $1
		ORDER BY order_date_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := []domain.OrderRecord{}
	for rows.Next() {
		var rec domain.OrderRecord
		if err := rows.Scan(&rec.ID, &rec.BuyerRole, &rec.BuyerName, &rec.BuyerUserID, &rec.ItemName,
			&rec.Quantity, &rec.Category, &rec.Price, &rec.OrderStatus, &rec.PaymentType,
			&rec.PaymentStatus, &rec.OrderDateTime, &rec.Address, &rec.PhoneNo, &rec.PaymentReceived); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
