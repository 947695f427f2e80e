package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for outcomes the service layer distinguishes. The transport
// maps these onto HTTP status codes.
var (
	// ErrNotFound means a lookup by email, id or confirmation code matched
	// nothing.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized covers password mismatches and invalid or expired
	// session tokens. It deliberately carries no detail about which check
	// failed.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports field-level, user-correctable input problems.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// NewFieldError is a shorthand for a single failing field.
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// UpstreamError reports a non-success response from an external identity
// provider. The provider's raw response body is never carried here; only a
// generic description crosses the trust boundary.
type UpstreamError struct {
	Provider    string `json:"provider"`
	Description string `json:"description"`
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Description)
}

func NewUpstreamError(provider, description string) *UpstreamError {
	return &UpstreamError{Provider: provider, Description: description}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether err wraps ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// AsValidation extracts a ValidationError from err, or nil.
func AsValidation(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
