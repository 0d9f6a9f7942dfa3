package domain

// Buyer roles. Each role sees its own price column on the menu.
const (
	RoleStaff     = "staff"
	RolePatient   = "patient"
	RoleDietitian = "dietitian"
	RoleAdmin     = "admin"
)

// MenuItem is read-only reference data owned by the menu repository.
// Prices are in paise.
type MenuItem struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	StaffPrice     int64  `json:"staff_price"`
	PatientPrice   int64  `json:"patient_price"`
	DietitianPrice int64  `json:"dietitian_price"`
	Available      bool   `json:"available"`
	Category       string `json:"category"`
	ImageURL       string `json:"image_url,omitempty"`
}

// PriceFor returns the unit price for the given buyer role.
// Unknown roles pay the patient price.
func (m MenuItem) PriceFor(role string) int64 {
	switch role {
	case RoleStaff:
		return m.StaffPrice
	case RoleDietitian:
		return m.DietitianPrice
	default:
		return m.PatientPrice
	}
}
