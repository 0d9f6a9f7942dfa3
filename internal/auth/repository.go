package auth

import (
	"context"
	"database/sql"
	"errors"
)

// PatientRepository looks up registered patients by their UHID.
type PatientRepository struct {
	db *sql.DB
}

func NewPatientRepository(db *sql.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// Exists reports whether the UHID belongs to a registered patient.
func (r *PatientRepository) Exists(ctx context.Context, uhid string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx, `
		SELECT uhid FROM patients WHERE uhid = $1
	`, uhid).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
