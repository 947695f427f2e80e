package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/civica-dev/accounts/domain"
	apperrors "github.com/civica-dev/accounts/errors"
	"github.com/civica-dev/accounts/internal/auth"
	"github.com/civica-dev/accounts/internal/federation"
	"github.com/civica-dev/accounts/services"
)

// --- Mock Implementations ---

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateLocal(ctx context.Context, in domain.NewLocalAccount) (*domain.Account, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpsertByEmail(ctx context.Context, profile domain.FederatedProfile, serializedID int64) (*domain.Account, error) {
	args := m.Called(ctx, profile, serializedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetBySerializedID(ctx context.Context, serializedID int64) (*domain.Account, error) {
	args := m.Called(ctx, serializedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) MarkConfirmed(ctx context.Context, code, detail, origin string) (*domain.Account, error) {
	args := m.Called(ctx, code, detail, origin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, pageToken string, pageSize int) ([]*domain.Account, string, error) {
	args := m.Called(ctx, pageToken, pageSize)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Account), args.String(1), args.Error(2)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(hashedPassword, password string) bool {
	args := m.Called(hashedPassword, password)
	return args.Bool(0)
}

type MockOAuth2Provider struct {
	mock.Mock
}

func (m *MockOAuth2Provider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockOAuth2Provider) GetAuthCodeURL(redirectURL string, opts ...oauth2.AuthCodeOption) (string, error) {
	args := m.Called(redirectURL)
	return args.String(0), args.Error(1)
}

func (m *MockOAuth2Provider) ExchangeCode(ctx context.Context, redirectURL, code string) (*oauth2.Token, error) {
	args := m.Called(ctx, redirectURL, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockOAuth2Provider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*federation.ExternalUserInfo, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*federation.ExternalUserInfo), args.Error(1)
}

// --- Fixture ---

type serviceFixture struct {
	accounts      *MockAccountRepository
	notifications *MockNotificationRepository
	hasher        *MockPasswordHasher
	provider      *MockOAuth2Provider
	tokens        *services.SessionTokenService
	service       *services.AccountService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		accounts:      new(MockAccountRepository),
		notifications: new(MockNotificationRepository),
		hasher:        new(MockPasswordHasher),
		provider:      new(MockOAuth2Provider),
	}
	f.tokens = newTokenService(t, "test-secret", time.Hour)
	notifier := services.NewRegistrationNotifier("http://localhost:8080/v1/account/confirm", 48*time.Hour)
	f.service = services.NewAccountService(
		f.accounts, f.notifications, f.hasher, auth.NewConfirmationCodeIssuer(), f.tokens, f.provider, notifier,
	)
	return f
}

func storedAccount() *domain.Account {
	return &domain.Account{
		ID:               "64f1b2a3c4d5e6f708192a3b",
		FirstName:        "Ana",
		LastName:         "Ruiz",
		DisplayName:      "Ana Ruiz",
		Email:            "ana@example.com",
		PasswordHash:     "$2a$10$hashedhashedhashedhashed",
		Confirmed:        true,
		Active:           true,
		ConfirmationCode: "123e4567-e89b-42d3-a456-426614174000",
	}
}

// --- Register ---

func TestAccountService_Register(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created := storedAccount()
	created.Confirmed = false
	created.Active = false

	f.hasher.On("Hash", "secret123").Return("$2a$10$hashedhashedhashedhashed", nil)
	f.accounts.On("CreateLocal", ctx, domain.NewLocalAccount{
		FirstName:    "Ana",
		LastName:     "Ruiz",
		Email:        "ana@example.com",
		PasswordHash: "$2a$10$hashedhashedhashedhashed",
	}).Return(created, nil)
	f.notifications.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

	view, err := f.service.Register(ctx, services.RegisterInput{
		FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.False(t, view.Confirmed)
	assert.False(t, view.Active)
	assert.Len(t, view.ConfirmationCode, 36)

	// The queued notification carries the confirmation link and recipient.
	notification := f.notifications.Calls[0].Arguments.Get(1).(*domain.Notification)
	assert.Equal(t, domain.NotificationChannelEmail, notification.Channel)
	assert.Equal(t, "ana@example.com", notification.Recipient)
	assert.Contains(t, notification.Body, created.ConfirmationCode)

	f.accounts.AssertExpectations(t)
	f.hasher.AssertExpectations(t)
	f.notifications.AssertExpectations(t)
}

func TestAccountService_Register_MissingPassword(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Register(context.Background(), services.RegisterInput{
		FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com",
	})
	require.Error(t, err)
	ve := apperrors.AsValidation(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields, "password")
	f.hasher.AssertNotCalled(t, "Hash", mock.Anything)
	f.accounts.AssertNotCalled(t, "CreateLocal", mock.Anything, mock.Anything)
}

func TestAccountService_Register_DuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.hasher.On("Hash", "secret123").Return("hashed", nil)
	f.accounts.On("CreateLocal", ctx, mock.AnythingOfType("domain.NewLocalAccount")).
		Return(nil, apperrors.NewFieldError("email", "email already exists"))

	_, err := f.service.Register(ctx, services.RegisterInput{
		FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com", Password: "secret123",
	})
	require.Error(t, err)
	ve := apperrors.AsValidation(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields, "email")
	f.notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAccountService_Register_NotificationFailureIsNotFatal(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created := storedAccount()
	f.hasher.On("Hash", "secret123").Return("hashed", nil)
	f.accounts.On("CreateLocal", ctx, mock.AnythingOfType("domain.NewLocalAccount")).Return(created, nil)
	f.notifications.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
		Return(assert.AnError)

	view, err := f.service.Register(ctx, services.RegisterInput{
		FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, view.ID)
}

// --- ConfirmRegistration ---

func TestAccountService_ConfirmRegistration(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	confirmed := storedAccount()
	confirmed.Events = []domain.AccountEvent{
		{At: time.Now(), Detail: "Registration confirmation", Origin: "1.2.3.4"},
	}
	f.accounts.On("MarkConfirmed", ctx, confirmed.ConfirmationCode, "Registration confirmation", "1.2.3.4").
		Return(confirmed, nil)

	view, err := f.service.ConfirmRegistration(ctx, confirmed.ConfirmationCode, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, view.Confirmed)
	assert.True(t, view.Active)
	assert.Len(t, view.Events, 1)
}

func TestAccountService_ConfirmRegistration_MalformedCode(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.ConfirmRegistration(context.Background(), "not-a-code", "1.2.3.4")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	// Malformed input never reaches the store.
	f.accounts.AssertNotCalled(t, "MarkConfirmed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountService_ConfirmRegistration_UnknownCode(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	code := "123e4567-e89b-42d3-a456-426614174999"
	f.accounts.On("MarkConfirmed", ctx, code, "Registration confirmation", "1.2.3.4").
		Return(nil, apperrors.ErrNotFound)

	_, err := f.service.ConfirmRegistration(ctx, code, "1.2.3.4")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Login ---

func TestAccountService_Login(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	account := storedAccount()
	f.accounts.On("GetByEmail", ctx, "ana@example.com").Return(account, nil)
	f.hasher.On("Verify", account.PasswordHash, "secret123").Return(true)
	f.accounts.On("UpdateLastLogin", ctx, account.ID).Return(nil)

	session, err := f.service.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	// The token's subject is the account id.
	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(session.Token, &claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.Subject)
}

func TestAccountService_Login_UnknownEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.accounts.On("GetByEmail", ctx, "nobody@example.com").Return(nil, apperrors.ErrNotFound)

	_, err := f.service.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccountService_Login_WrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	account := storedAccount()
	f.accounts.On("GetByEmail", ctx, "ana@example.com").Return(account, nil)
	f.hasher.On("Verify", account.PasswordHash, "wrong").Return(false)

	session, err := f.service.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Nil(t, session)
	f.accounts.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
}

func TestAccountService_Login_InactiveAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	account := storedAccount()
	account.Confirmed = false
	account.Active = false
	f.accounts.On("GetByEmail", ctx, "ana@example.com").Return(account, nil)
	f.hasher.On("Verify", account.PasswordHash, "secret123").Return(true)

	_, err := f.service.Login(ctx, "ana@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// --- Google flow ---

func TestAccountService_GoogleAuthURL(t *testing.T) {
	f := newServiceFixture(t)

	f.provider.On("GetAuthCodeURL", "http://localhost/callback").
		Return("https://accounts.google.com/o/oauth2/auth?client_id=x", nil)

	url, err := f.service.GoogleAuthURL(context.Background(), "http://localhost/callback")
	require.NoError(t, err)
	assert.Contains(t, url, "accounts.google.com")
}

func TestAccountService_LoginWithGoogle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	token := &oauth2.Token{AccessToken: "upstream-token"}
	info := &federation.ExternalUserInfo{
		ProviderUserID: "1234567890",
		Email:          "ana@example.com",
		FirstName:      "Ana",
		LastName:       "Ruiz",
		DisplayName:    "Ana Ruiz",
		PictureURL:     "https://example.com/avatar.jpg",
	}
	account := storedAccount()
	account.Provider = "Google"
	account.ProviderUserID = "1234567890"

	f.provider.On("ExchangeCode", ctx, "http://localhost/callback", "auth-code").Return(token, nil)
	f.provider.On("FetchUserInfo", ctx, token).Return(info, nil)
	f.provider.On("Name").Return("Google")
	f.accounts.On("UpsertByEmail", ctx, domain.FederatedProfile{
		FirstName:      "Ana",
		LastName:       "Ruiz",
		DisplayName:    "Ana Ruiz",
		Email:          "ana@example.com",
		Provider:       "Google",
		ProviderUserID: "1234567890",
		PictureURL:     "https://example.com/avatar.jpg",
	}, mock.AnythingOfType("int64")).Return(account, nil)
	f.accounts.On("UpdateLastLogin", ctx, account.ID).Return(nil)

	session, err := f.service.LoginWithGoogle(ctx, "auth-code", "http://localhost/callback")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "Google", session.Account.Provider)
}

func TestAccountService_LoginWithGoogle_ExchangeFails(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.provider.On("ExchangeCode", ctx, "http://localhost/callback", "bad-code").
		Return(nil, apperrors.NewUpstreamError("Google", "failed to obtain access token"))

	_, err := f.service.LoginWithGoogle(ctx, "bad-code", "http://localhost/callback")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	f.provider.AssertNotCalled(t, "FetchUserInfo", mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "UpsertByEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountService_LoginWithGoogle_UnverifiedEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	token := &oauth2.Token{AccessToken: "upstream-token"}
	f.provider.On("ExchangeCode", ctx, "http://localhost/callback", "auth-code").Return(token, nil)
	f.provider.On("FetchUserInfo", ctx, token).
		Return(nil, apperrors.NewUpstreamError("Google", "provider email is not verified"))

	_, err := f.service.LoginWithGoogle(ctx, "auth-code", "http://localhost/callback")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	// A rejected profile never creates or updates an account.
	f.accounts.AssertNotCalled(t, "UpsertByEmail", mock.Anything, mock.Anything, mock.Anything)
}

// --- Session resolution ---

func TestAccountService_CurrentAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	account := storedAccount()
	f.accounts.On("GetByEmail", ctx, "ana@example.com").Return(account, nil)
	f.hasher.On("Verify", account.PasswordHash, "secret123").Return(true)
	f.accounts.On("UpdateLastLogin", ctx, account.ID).Return(nil)
	f.accounts.On("GetByID", ctx, account.ID).Return(account, nil)

	session, err := f.service.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	view, err := f.service.CurrentAccount(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, view.ID)
	assert.Equal(t, account.Email, view.Email)
}

func TestAccountService_CurrentAccount_BadToken(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CurrentAccount(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	f.accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestAccountService_ListAccounts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.accounts.On("ListAccounts", ctx, "", 10).
		Return([]*domain.Account{storedAccount()}, "10", nil)

	views, next, err := f.service.ListAccounts(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "ana@example.com", views[0].Email)
	assert.Equal(t, "10", next)
}

func TestAccountService_AccountBySerializedID(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	account := storedAccount()
	account.SerializedID = 123456789
	f.accounts.On("GetBySerializedID", ctx, int64(123456789)).Return(account, nil)

	view, err := f.service.AccountBySerializedID(ctx, 123456789)
	require.NoError(t, err)
	assert.Equal(t, account.ID, view.ID)
}
