package staff

// Record is a canteen staff entry managed from the admin console.
type Record struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	EmployeeID     string `json:"employee_id"`
	Department     string `json:"department,omitempty"`
	Role           string `json:"role,omitempty"`
	MobileNumber   string `json:"mobile_number"`
	PaymentDetails string `json:"payment_details,omitempty"`
}
