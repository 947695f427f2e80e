package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// Session token signing
	JWTSecretKey       string `mapstructure:"JWT_SECRET_KEY"`
	JWTIssuer          string `mapstructure:"JWT_ISSUER"`
	SessionTokenTTLMin int    `mapstructure:"SESSION_TOKEN_TTL_MIN"`

	// Verified-token cache: "memory" or "redis"
	TokenCacheBackend string `mapstructure:"TOKEN_CACHE_BACKEND"`
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	RedisKeyPrefix    string `mapstructure:"REDIS_KEY_PREFIX"`

	// Google OAuth2
	GoogleClientID      string   `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string   `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleScopes        []string `mapstructure:"GOOGLE_SCOPES"`
	OAuthHTTPTimeoutSec int      `mapstructure:"OAUTH_HTTP_TIMEOUT_SEC"`

	// Registration confirmation
	ConfirmationBaseURL     string `mapstructure:"CONFIRMATION_BASE_URL"`
	NotificationExpiryHours int    `mapstructure:"NOTIFICATION_EXPIRY_HOURS"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/accounts/")
	v.AddConfigPath("$HOME/.accounts")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/accounts_dev")
	v.SetDefault("MONGO_DB_NAME", "accounts_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("JWT_ISSUER", "accounts")
	v.SetDefault("SESSION_TOKEN_TTL_MIN", 60)
	v.SetDefault("TOKEN_CACHE_BACKEND", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_KEY_PREFIX", "accounts")
	v.SetDefault("OAUTH_HTTP_TIMEOUT_SEC", 10)
	v.SetDefault("CONFIRMATION_BASE_URL", "http://localhost:8080/v1/account/confirm")
	v.SetDefault("NOTIFICATION_EXPIRY_HOURS", 48)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply; any
		// other read error is real.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
