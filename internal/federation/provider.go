package federation

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// ExternalUserInfo holds standardized user information retrieved from an
// external OAuth2 identity provider.
type ExternalUserInfo struct {
	ProviderUserID string // Unique ID of the user within the provider (e.g. Google's numeric id)
	Email          string
	FirstName      string
	LastName       string
	DisplayName    string
	PictureURL     string
}

// OAuth2Provider defines the interface for an external OAuth2 identity
// provider. Implementations handle provider-specific endpoints and response
// shapes.
type OAuth2Provider interface {
	// Name returns the unique identifier for the provider (e.g. "google").
	Name() string

	// GetAuthCodeURL builds the authorization URL the user should be
	// redirected to. redirectURL is the callback this system registered with
	// the provider and must not be empty.
	GetAuthCodeURL(redirectURL string, opts ...oauth2.AuthCodeOption) (string, error)

	// ExchangeCode exchanges an authorization code for an OAuth2 token.
	ExchangeCode(ctx context.Context, redirectURL, code string) (*oauth2.Token, error)

	// FetchUserInfo uses an access token to retrieve a normalized profile
	// from the provider.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error)
}

// ProviderConfig holds the credentials and scope set for one provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string

	// HTTPClient, when set, is used for the provider's token and userinfo
	// calls. It carries the outbound timeout.
	HTTPClient *http.Client
}

// withHTTPClient injects the configured client into ctx so the oauth2
// package uses it for the token exchange.
func (c ProviderConfig) withHTTPClient(ctx context.Context) context.Context {
	if c.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
}
