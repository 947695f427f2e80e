package federation

import "errors"

var (
	// ErrProviderMisconfigured means the provider is missing its client id or
	// secret and cannot build an OAuth2 config.
	ErrProviderMisconfigured = errors.New("identity provider is misconfigured")

	// ErrEmailNotVerified means the provider reported the account email as
	// unverified; such profiles are rejected before any account is touched.
	ErrEmailNotVerified = errors.New("provider email is not verified")
)
