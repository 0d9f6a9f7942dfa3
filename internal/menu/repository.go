package menu

import (
	"context"
	"database/sql"
	"errors"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListAvailable returns the items currently offered, ordered by category
// then name.
func (r *Repository) ListAvailable(ctx context.Context) ([]domain.MenuItem, error) {
	return r.list(ctx, `
		SELECT id, name, description, staff_price, patient_price, dietitian_price,
		       available, category, image_url
		FROM menu_items
		WHERE available
		ORDER BY category, name
	`)
}

// ListAll returns every item regardless of availability.
func (r *Repository) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	return r.list(ctx, `
		SELECT id, name, description, staff_price, patient_price, dietitian_price,
		       available, category, image_url
		FROM menu_items
		ORDER BY category, name
	`)
}

func (r *Repository) list(ctx context.Context, query string) ([]domain.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.MenuItem{}
	for rows.Next() {
		var item domain.MenuItem
		var description, imageURL sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &description, &item.StaffPrice,
			&item.PatientPrice, &item.DietitianPrice, &item.Available, &item.Category, &imageURL); err != nil {
			return nil, err
		}
		item.Description = description.String
		item.ImageURL = imageURL.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// GetByID returns nil when the item does not exist.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.MenuItem, error) {
	item := &domain.MenuItem{}
	var description, imageURL sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, staff_price, patient_price, dietitian_price,
		       available, category, image_url
		FROM menu_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &description, &item.StaffPrice,
		&item.PatientPrice, &item.DietitianPrice, &item.Available, &item.Category, &imageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	item.Description = description.String
	item.ImageURL = imageURL.String
	return item, nil
}
