package staff

import (
	"fmt"
	"regexp"
	"strings"
)

var mobilePattern = regexp.MustCompile(`^\d{10}$`)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a record before it reaches the repository. Validation
// failures block the write locally; they never hit the database.
func Validate(rec *Record) error {
	if strings.TrimSpace(rec.Name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}

	if strings.TrimSpace(rec.EmployeeID) == "" {
		return ValidationError{Field: "employee_id", Message: "employee id is required"}
	}

	if strings.TrimSpace(rec.MobileNumber) == "" {
		return ValidationError{Field: "mobile_number", Message: "mobile number is required"}
	}

	if !mobilePattern.MatchString(rec.MobileNumber) {
		return ValidationError{Field: "mobile_number", Message: "mobile number must be exactly 10 digits"}
	}

	return nil
}
