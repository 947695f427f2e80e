package echo

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	apperrors "github.com/civica-dev/accounts/errors"
	"github.com/civica-dev/accounts/services"
)

const jwtCookieName = "jwt"

// AccountAPI binds the account service to HTTP. It only parses requests,
// maps errors to status codes and manages the session cookie; all domain
// logic lives in the service.
type AccountAPI struct {
	service *services.AccountService
	tokens  *services.SessionTokenService
}

// NewAccountAPI initializes the account API.
func NewAccountAPI(service *services.AccountService, tokens *services.SessionTokenService) *AccountAPI {
	return &AccountAPI{
		service: service,
		tokens:  tokens,
	}
}

// RegisterRoutes registers the account routes.
func (a *AccountAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/account/register", a.RegisterHandler)
	e.GET("/v1/account/confirm/:code", a.ConfirmHandler)
	e.POST("/v1/account/login", a.LoginHandler)
	e.POST("/v1/account/logout", a.LogoutHandler)
	e.GET("/v1/account", a.MeHandler)
	e.POST("/v1/account/google/url", a.GoogleAuthURLHandler)
	e.POST("/v1/account/google/login", a.GoogleLoginHandler)
}

type apiResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeError maps the service error taxonomy onto HTTP status codes.
func writeError(c echo.Context, err error) error {
	switch {
	case apperrors.IsValidation(err):
		return c.JSON(http.StatusBadRequest, apiResponse{Message: "Bad Request", Data: apperrors.AsValidation(err).Fields})
	case apperrors.IsNotFound(err):
		return c.JSON(http.StatusNotFound, apiResponse{Message: "Not Found"})
	case apperrors.IsUnauthorized(err):
		return c.JSON(http.StatusUnauthorized, apiResponse{Message: "Authorization Required"})
	case apperrors.IsUpstream(err):
		return c.JSON(http.StatusBadGateway, apiResponse{Message: "Upstream Provider Error"})
	default:
		log.Error().Err(err).Msg("internal error")
		return c.JSON(http.StatusInternalServerError, apiResponse{Message: "Internal Server Error"})
	}
}

func (a *AccountAPI) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     jwtCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(a.tokens.TTL()),
	})
}

// RegisterHandler creates a local account and queues the confirmation email.
func (a *AccountAPI) RegisterHandler(c echo.Context) error {
	var in services.RegisterInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Message: "Bad Request"})
	}

	account, err := a.service.Register(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, apiResponse{Message: "Created", Data: account})
}

// ConfirmHandler exchanges a confirmation code for account activation. The
// caller's address is recorded as the event origin.
func (a *AccountAPI) ConfirmHandler(c echo.Context) error {
	account, err := a.service.ConfirmRegistration(c.Request().Context(), c.Param("code"), c.RealIP())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Message: "OK", Data: account})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler verifies credentials and sets the session cookie.
func (a *AccountAPI) LoginHandler(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Message: "Bad Request"})
	}

	session, err := a.service.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return writeError(c, err)
	}

	a.setSessionCookie(c, session.Token)
	return c.JSON(http.StatusOK, apiResponse{Message: "OK", Data: map[string]string{"jwt": session.Token}})
}

// LogoutHandler clears the session cookie. Tokens are stateless; the cookie
// removal is the whole logout.
func (a *AccountAPI) LogoutHandler(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     jwtCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return c.JSON(http.StatusOK, apiResponse{Message: "OK"})
}

// MeHandler resolves the session cookie to the authenticated account.
func (a *AccountAPI) MeHandler(c echo.Context) error {
	cookie, err := c.Cookie(jwtCookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, apiResponse{Message: "Authorization Required"})
	}

	account, err := a.service.CurrentAccount(c.Request().Context(), cookie.Value)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Message: "OK", Data: account})
}

type googleAuthURLRequest struct {
	RedirectURI string `json:"redirect_uri"`
}

// GoogleAuthURLHandler returns the provider authorization URL for the given
// callback.
func (a *AccountAPI) GoogleAuthURLHandler(c echo.Context) error {
	var in googleAuthURLRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Message: "Bad Request"})
	}

	url, err := a.service.GoogleAuthURL(c.Request().Context(), in.RedirectURI)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Message: "OK", Data: map[string]string{"url": url}})
}

type googleLoginRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// GoogleLoginHandler completes the federated sign-in and sets the session
// cookie.
func (a *AccountAPI) GoogleLoginHandler(c echo.Context) error {
	var in googleLoginRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Message: "Bad Request"})
	}

	session, err := a.service.LoginWithGoogle(c.Request().Context(), in.Code, in.RedirectURI)
	if err != nil {
		return writeError(c, err)
	}

	a.setSessionCookie(c, session.Token)
	return c.JSON(http.StatusOK, apiResponse{Message: "OK", Data: map[string]string{"jwt": session.Token}})
}
