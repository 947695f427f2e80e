package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/civica-dev/accounts/domain"
	apperrors "github.com/civica-dev/accounts/errors"
	"github.com/civica-dev/accounts/internal/federation"
)

// AccountView is the account shape handed back to callers. The password hash
// never leaves the service layer.
type AccountView struct {
	ID               string                `json:"id"`
	FirstName        string                `json:"first_name"`
	LastName         string                `json:"last_name"`
	DisplayName      string                `json:"display_name"`
	Email            string                `json:"email"`
	Provider         string                `json:"provider,omitempty"`
	ProviderUserID   string                `json:"provider_user_id,omitempty"`
	PictureURL       string                `json:"picture_url,omitempty"`
	Confirmed        bool                  `json:"confirmed"`
	Active           bool                  `json:"active"`
	ConfirmationCode string                `json:"confirmation_code,omitempty"`
	LastModifiedAt   time.Time             `json:"last_modified_at,omitempty"`
	LastLoginAt      *time.Time            `json:"last_login_at,omitempty"`
	Events           []domain.AccountEvent `json:"events,omitempty"`
}

func newAccountView(a *domain.Account) *AccountView {
	return &AccountView{
		ID:               a.ID,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		DisplayName:      a.DisplayName,
		Email:            a.Email,
		Provider:         a.Provider,
		ProviderUserID:   a.ProviderUserID,
		PictureURL:       a.PictureURL,
		Confirmed:        a.Confirmed,
		Active:           a.Active,
		ConfirmationCode: a.ConfirmationCode,
		LastModifiedAt:   a.LastModifiedAt,
		LastLoginAt:      a.LastLoginAt,
		Events:           a.Events,
	}
}

// RegisterInput is the parsed body of a local registration request.
type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// SessionResult pairs an issued session token with the account it belongs to.
type SessionResult struct {
	Token   string       `json:"jwt"`
	Account *AccountView `json:"account"`
}

// AccountService orchestrates registration, login, confirmation and the
// Google OAuth2 sign-in flow. It never talks to the transport directly.
type AccountService struct {
	accounts      domain.AccountRepository
	notifications domain.NotificationRepository
	hasher        PasswordHasher
	codes         domain.ConfirmationCodeIssuer
	tokens        *SessionTokenService
	google        federation.OAuth2Provider
	notifier      *RegistrationNotifier
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	accounts domain.AccountRepository,
	notifications domain.NotificationRepository,
	hasher PasswordHasher,
	codes domain.ConfirmationCodeIssuer,
	tokens *SessionTokenService,
	google federation.OAuth2Provider,
	notifier *RegistrationNotifier,
) *AccountService {
	return &AccountService{
		accounts:      accounts,
		notifications: notifications,
		hasher:        hasher,
		codes:         codes,
		tokens:        tokens,
		google:        google,
		notifier:      notifier,
	}
}

// Register creates a local account in the unconfirmed, inactive state and
// queues the confirmation email. Notification delivery is fire-and-forget:
// a failed insert never rolls back the account.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AccountView, error) {
	if in.Password == "" {
		return nil, apperrors.NewFieldError("password", "password is required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.accounts.CreateLocal(ctx, domain.NewLocalAccount{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	notification := s.notifier.ConfirmationNotification(account)
	if err := s.notifications.Create(ctx, notification); err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("failed to queue confirmation notification")
	}

	log.Info().Str("account_id", account.ID).Str("email", account.Email).Msg("account registered")
	return newAccountView(account), nil
}

// ConfirmRegistration exchanges a confirmation code for activation. The code
// shape is checked before the store is consulted, so malformed input is a
// validation failure and a well-formed unknown code is a not-found.
func (s *AccountService) ConfirmRegistration(ctx context.Context, code, origin string) (*AccountView, error) {
	if err := s.codes.Validate(code); err != nil {
		return nil, err
	}

	account, err := s.accounts.MarkConfirmed(ctx, code, "Registration confirmation", origin)
	if err != nil {
		return nil, err
	}

	log.Info().Str("account_id", account.ID).Msg("registration confirmed")
	return newAccountView(account), nil
}

// Login verifies a password and issues a session token. Missing accounts and
// wrong passwords surface as distinct outcomes, which is a deliberate product
// choice of the API.
func (s *AccountService) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(account.PasswordHash, password) {
		log.Warn().Str("account_id", account.ID).Msg("login rejected: password mismatch")
		return nil, apperrors.ErrUnauthorized
	}

	if !account.Active {
		log.Warn().Str("account_id", account.ID).Msg("login rejected: account not active")
		return nil, apperrors.ErrUnauthorized
	}

	return s.startSession(ctx, account)
}

// GoogleAuthURL builds the provider authorization URL for the given callback.
func (s *AccountService) GoogleAuthURL(_ context.Context, redirectURI string) (string, error) {
	return s.google.GetAuthCodeURL(redirectURI)
}

// LoginWithGoogle runs the full federated sign-in: code exchange, profile
// fetch, upsert by email, session issuance. A failure at either outbound step
// aborts the flow without touching any account. OAuth accounts come out
// confirmed and active; the provider already verified the email.
func (s *AccountService) LoginWithGoogle(ctx context.Context, code, redirectURI string) (*SessionResult, error) {
	token, err := s.google.ExchangeCode(ctx, redirectURI, code)
	if err != nil {
		return nil, err
	}

	info, err := s.google.FetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.UpsertByEmail(ctx, domain.FederatedProfile{
		FirstName:      info.FirstName,
		LastName:       info.LastName,
		DisplayName:    info.DisplayName,
		Email:          info.Email,
		Provider:       s.google.Name(),
		ProviderUserID: info.ProviderUserID,
		PictureURL:     info.PictureURL,
	}, newSerializedID())
	if err != nil {
		return nil, err
	}

	log.Info().Str("account_id", account.ID).Str("provider", account.Provider).Msg("federated login")
	return s.startSession(ctx, account)
}

// CurrentAccount resolves a session token to the account it asserts.
func (s *AccountService) CurrentAccount(ctx context.Context, token string) (*AccountView, error) {
	subjectID, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return newAccountView(account), nil
}

// AccountBySerializedID resolves the numeric session key handed out during
// federated logins.
func (s *AccountService) AccountBySerializedID(ctx context.Context, serializedID int64) (*AccountView, error) {
	account, err := s.accounts.GetBySerializedID(ctx, serializedID)
	if err != nil {
		return nil, err
	}
	return newAccountView(account), nil
}

// ListAccounts returns a page of account views.
func (s *AccountService) ListAccounts(ctx context.Context, pageToken string, pageSize int) ([]*AccountView, string, error) {
	accounts, next, err := s.accounts.ListAccounts(ctx, pageToken, pageSize)
	if err != nil {
		return nil, "", err
	}
	views := make([]*AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, newAccountView(a))
	}
	return views, next, nil
}

func (s *AccountService) startSession(ctx context.Context, account *domain.Account) (*SessionResult, error) {
	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to update last login")
	}

	return &SessionResult{Token: token, Account: newAccountView(account)}, nil
}

func newSerializedID() int64 {
	return rand.Int64N(1_000_000_000)
}
