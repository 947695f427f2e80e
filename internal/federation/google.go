package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"

	apperrors "github.com/civica-dev/accounts/errors"
)

// GoogleUserInfoEndpoint is a var so tests can point it at a mock server.
var GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

const googleProviderName = "Google"

// GoogleProvider implements OAuth2Provider against Google's OAuth2 endpoints.
type GoogleProvider struct {
	config ProviderConfig
}

// NewGoogleProvider creates a GoogleProvider, filling in the userinfo scopes
// when the configuration omits them.
func NewGoogleProvider(config ProviderConfig) (*GoogleProvider, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	hasProfile := false
	hasEmail := false
	for _, scope := range config.Scopes {
		if scope == "profile" || scope == "https://www.googleapis.com/auth/userinfo.profile" {
			hasProfile = true
		}
		if scope == "email" || scope == "https://www.googleapis.com/auth/userinfo.email" {
			hasEmail = true
		}
	}
	if !hasProfile {
		config.Scopes = append(config.Scopes, "https://www.googleapis.com/auth/userinfo.profile")
	}
	if !hasEmail {
		config.Scopes = append(config.Scopes, "https://www.googleapis.com/auth/userinfo.email")
	}
	return &GoogleProvider{config: config}, nil
}

func (g *GoogleProvider) Name() string { return googleProviderName }

func (g *GoogleProvider) oauth2Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.config.ClientID,
		ClientSecret: g.config.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       g.config.Scopes,
		Endpoint:     googleOAuth2.Endpoint,
	}
}

// GetAuthCodeURL builds the authorization URL for the given callback.
func (g *GoogleProvider) GetAuthCodeURL(redirectURL string, opts ...oauth2.AuthCodeOption) (string, error) {
	if redirectURL == "" {
		return "", apperrors.NewFieldError("redirect_uri", "redirect URI is required")
	}
	return g.oauth2Config(redirectURL).AuthCodeURL("", opts...), nil
}

// ExchangeCode posts the authorization code to Google's token endpoint.
// Any non-success response surfaces as a generic upstream error; the
// provider's raw error body is logged but never returned as a trust signal.
func (g *GoogleProvider) ExchangeCode(ctx context.Context, redirectURL, code string) (*oauth2.Token, error) {
	token, err := g.oauth2Config(redirectURL).Exchange(g.config.withHTTPClient(ctx), code)
	if err != nil {
		log.Warn().Err(err).Msg("Google token exchange failed")
		return nil, apperrors.NewUpstreamError(googleProviderName, "failed to obtain access token")
	}
	return token, nil
}

// FetchUserInfo retrieves the userinfo document with a bearer credential and
// normalizes it. Profiles with verified_email=false are rejected.
func (g *GoogleProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	client := g.oauth2Config("").Client(g.config.withHTTPClient(ctx), token)
	resp, err := client.Get(GoogleUserInfoEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("Google userinfo request failed")
		return nil, apperrors.NewUpstreamError(googleProviderName, "failed to fetch user profile")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Warn().Int("status", resp.StatusCode).Bytes("body", body).Msg("Google userinfo returned non-success status")
		return nil, apperrors.NewUpstreamError(googleProviderName, "failed to fetch user profile")
	}

	var raw struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Google user info: %w", err)
	}

	if !raw.VerifiedEmail {
		log.Warn().Str("provider_user_id", raw.ID).Msg("Google profile rejected: email not verified")
		return nil, apperrors.NewUpstreamError(googleProviderName, "provider email is not verified")
	}

	return &ExternalUserInfo{
		ProviderUserID: raw.ID,
		Email:          raw.Email,
		FirstName:      raw.GivenName,
		LastName:       raw.FamilyName,
		DisplayName:    raw.Name,
		PictureURL:     raw.Picture,
	}, nil
}

var _ OAuth2Provider = (*GoogleProvider)(nil)
