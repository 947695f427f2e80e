package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/civica-dev/accounts/api/echo"
	"github.com/civica-dev/accounts/cache"
	redistore "github.com/civica-dev/accounts/cache/redis"
	"github.com/civica-dev/accounts/config"
	"github.com/civica-dev/accounts/internal/auth"
	"github.com/civica-dev/accounts/internal/federation"
	"github.com/civica-dev/accounts/mongodb"
	"github.com/civica-dev/accounts/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if parseErr != nil {
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	log.Info().Str("http_port", cfg.HTTPPort).Str("mongo_db", cfg.MongoDBName).Msg("Starting accounts server")

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MongoDB connection")
	}
	db := mongodb.GetDB()

	// Repositories
	codeIssuer := auth.NewConfirmationCodeIssuer()
	accountRepo, err := mongodb.NewAccountRepository(ctx, db, codeIssuer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AccountRepository")
	}
	notificationRepo := mongodb.NewNotificationRepository(db)

	// Verified-token cache
	sessionTTL := time.Duration(cfg.SessionTokenTTLMin) * time.Minute
	var tokenStore cache.TokenStore
	switch cfg.TokenCacheBackend {
	case "redis":
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		tokenStore = redistore.NewTokenStore(redisClient, cfg.RedisKeyPrefix)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis token cache")
	default:
		tokenStore = cache.NewMemoryTokenStore(sessionTTL)
		log.Info().Msg("Using in-memory token cache")
	}
	defer tokenStore.Close()

	// Services
	passwordHasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)

	signer := services.NewTokenSigner()
	signer.AddKeySigner(cfg.JWTSecretKey)
	tokenService := services.NewSessionTokenService(signer, tokenStore, cfg.JWTIssuer, sessionTTL)

	googleProvider, err := federation.NewGoogleProvider(federation.ProviderConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Scopes:       cfg.GoogleScopes,
		HTTPClient:   &http.Client{Timeout: time.Duration(cfg.OAuthHTTPTimeoutSec) * time.Second},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Google provider")
	}

	notifier := services.NewRegistrationNotifier(cfg.ConfirmationBaseURL, time.Duration(cfg.NotificationExpiryHours)*time.Hour)
	accountService := services.NewAccountService(
		accountRepo, notificationRepo, passwordHasher, codeIssuer, tokenService, googleProvider, notifier,
	)

	// HTTP transport
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	echoapi.NewAccountAPI(accountService, tokenService).RegisterRoutes(e)
	e.GET("/healthz", func(c echo.Context) error {
		if err := mongodb.Ping(c.Request().Context()); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	mongodb.CloseMongoDB(shutdownCtx)
}
