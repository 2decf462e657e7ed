// errors/policy_errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyNotFound    = errors.New("policy not found")
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInvalidPolicyData = errors.New("invalid policy data")
	ErrPolicyConflict    = errors.New("policy conflict")
	ErrInternalServer    = errors.New("internal server error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// PolicyConfigError describes a malformed policy rejected at construction or
// add-time. It always unwraps to ErrInvalidPolicyData.
type PolicyConfigError struct {
	PolicyID string
	Field    string
	Message  string
}

func (e *PolicyConfigError) Error() string {
	if e.PolicyID == "" {
		return fmt.Sprintf("invalid policy: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid policy %q: %s: %s", e.PolicyID, e.Field, e.Message)
}

func (e *PolicyConfigError) Unwrap() error {
	return ErrInvalidPolicyData
}

func NewPolicyConfigError(policyID, field, message string) *PolicyConfigError {
	return &PolicyConfigError{PolicyID: policyID, Field: field, Message: message}
}
