package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		CORS
		Enrichment
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Auth struct {
		// Password is the shared secret guarding the API. Empty means
		// authentication is disabled entirely (open mode, logged loudly
		// at startup).
		Password        string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool
	}
	CORS struct {
		AllowOrigins []string
	}
	Enrichment struct {
		// RequestInterval throttles Open Library calls.
		RequestInterval time.Duration
		Timeout         time.Duration
	}
)

// Enabled reports whether a shared secret is configured.
func (a Auth) Enabled() bool {
	return a.Password != ""
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 5001)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_password", "") // Empty disables authentication
	v.SetDefault("auth_session_lifetime", "720h")
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)

	// CORS defaults
	v.SetDefault("cors_allow_origins", []string{"*"})

	// Open Library defaults
	v.SetDefault("enrichment_request_interval", "1s")
	v.SetDefault("enrichment_timeout", "10s")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			Password:        v.GetString("AUTH_PASSWORD"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
		},
		CORS: CORS{
			AllowOrigins: v.GetStringSlice("CORS_ALLOW_ORIGINS"),
		},
		Enrichment: Enrichment{
			RequestInterval: v.GetDuration("ENRICHMENT_REQUEST_INTERVAL"),
			Timeout:         v.GetDuration("ENRICHMENT_TIMEOUT"),
		},
	}
}
