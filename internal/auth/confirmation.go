package auth

import (
	"github.com/google/uuid"

	apperrors "github.com/civica-dev/accounts/errors"
)

// ConfirmationCodeIssuer generates and structurally validates the opaque
// codes a registrant exchanges for account activation.
type ConfirmationCodeIssuer struct{}

func NewConfirmationCodeIssuer() *ConfirmationCodeIssuer {
	return &ConfirmationCodeIssuer{}
}

// Issue returns a fresh version-4 random code, unique with overwhelming
// probability.
func (i *ConfirmationCodeIssuer) Issue() string {
	return uuid.NewString()
}

// Validate checks that code has the shape of an issued token. Malformed input
// is rejected here, cheaply, before any store lookup happens.
func (i *ConfirmationCodeIssuer) Validate(code string) error {
	if code == "" {
		return apperrors.NewFieldError("confirmation_code", "confirmation code is required")
	}
	if err := uuid.Validate(code); err != nil {
		return apperrors.NewFieldError("confirmation_code", "confirmation code is not valid")
	}
	return nil
}
