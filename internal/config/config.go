// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server reads from its environment. Defaults
// suit local development; production deployments set the variables
// explicitly.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"Study Auth"`
	Env     string `env:"ENV" envDefault:"DEV"`
	Port    string `env:"PORT" envDefault:"8080"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"12h"`
	ReauthTokenTTL  time.Duration `env:"REAUTH_TOKEN_TTL" envDefault:"720h"`
	SignInTokenTTL  time.Duration `env:"SIGNIN_TOKEN_TTL" envDefault:"15m"`
	VerifyTokenTTL  time.Duration `env:"VERIFY_TOKEN_TTL" envDefault:"24h"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL" envDefault:"2h"`

	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"study_session"`
	PhoneRegion       string `env:"PHONE_REGION" envDefault:"US"`

	// OIDC settings for the external identity provider. All three must be
	// set to enable the OAuth sign-in channel.
	OIDCIssuerURL    string `env:"OIDC_ISSUER_URL"`
	OIDCClientID     string `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `env:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `env:"OIDC_REDIRECT_URL"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	return c, nil
}

// ListenAddr returns the address for http.Server, normalizing a bare port.
func (c Config) ListenAddr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// IsDev reports whether the server is running in development mode.
func (c Config) IsDev() bool {
	return c.Env == "DEV"
}

// OIDCEnabled reports whether the external identity provider is configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuerURL != "" && c.OIDCClientID != "" && c.OIDCClientSecret != ""
}
