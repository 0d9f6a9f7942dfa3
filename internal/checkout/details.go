package checkout

import (
	"fmt"
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// DeliveryDetails is the buyer identity captured before dispatch.
// Address is optional free text.
type DeliveryDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateDetails enforces the submission gate: non-empty buyer name and
// a phone number of exactly 10 digits.
func ValidateDetails(d DeliveryDetails) error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(d.Phone) == "" {
		return ValidationError{Field: "phone", Message: "phone number is required"}
	}
	if !phonePattern.MatchString(d.Phone) {
		return ValidationError{Field: "phone", Message: "phone number must be exactly 10 digits"}
	}
	return nil
}
