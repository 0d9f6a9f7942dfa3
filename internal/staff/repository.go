package staff

import (
	"context"
	"database/sql"
	"errors"
)

var ErrDuplicateEmployeeID = errors.New("employee id already exists")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, employee_id, department, role, mobile_number, payment_details
		FROM staff
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var department, role, paymentDetails sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.EmployeeID, &department, &role,
			&rec.MobileNumber, &paymentDetails); err != nil {
			return nil, err
		}
		rec.Department = department.String
		rec.Role = role.String
		rec.PaymentDetails = paymentDetails.String
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Create inserts the record and fills in its id. A conflicting employee
// id yields ErrDuplicateEmployeeID.
func (r *Repository) Create(ctx context.Context, rec *Record) error {
	taken, err := r.employeeIDTaken(ctx, rec.EmployeeID, 0)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateEmployeeID
	}

	return r.db.QueryRowContext(ctx, `
		INSERT INTO staff (name, employee_id, department, role, mobile_number, payment_details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, rec.Name, rec.EmployeeID, rec.Department, rec.Role, rec.MobileNumber, rec.PaymentDetails).Scan(&rec.ID)
}

// Update rewrites the record. Returns false when no row matched the id.
func (r *Repository) Update(ctx context.Context, rec *Record) (bool, error) {
	taken, err := r.employeeIDTaken(ctx, rec.EmployeeID, rec.ID)
	if err != nil {
		return false, err
	}
	if taken {
		return false, ErrDuplicateEmployeeID
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE staff
		SET name = $1, employee_id = $2, department = $3, role = $4,
		    mobile_number = $5, payment_details = $6
		WHERE id = $7
	`, rec.Name, rec.EmployeeID, rec.Department, rec.Role, rec.MobileNumber, rec.PaymentDetails, rec.ID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Delete returns false when no row matched the id.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *Repository) employeeIDTaken(ctx context.Context, employeeID string, excludeID int64) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM staff WHERE employee_id = $1 AND id <> $2
	`, employeeID, excludeID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
