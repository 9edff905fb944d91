package auth

import (
	"github.com/caarlos0/env/v11"
)

// Config carries everything the server needs, populated from the
// environment.
type Config struct {
	// Addr is the listen address for the HTTP server
	Addr string `env:"AUTH_ADDR" envDefault:":8080"`

	// SecretKey signs bearer tokens when JWTSigningKey is unset
	SecretKey string `env:"AUTH_SECRET_KEY"`

	// JWTSigningKey, when set, takes precedence over SecretKey for tokens
	JWTSigningKey string `env:"AUTH_JWT_SIGNING_KEY"`

	// Issuer is stamped into issued tokens when set
	Issuer string `env:"AUTH_ISSUER"`

	// DSN is the postgres connection string; empty falls back to the
	// file-backed stores rooted at DataDir
	DSN     string `env:"AUTH_DATABASE_URL"`
	DataDir string `env:"AUTH_DATA_DIR" envDefault:"./data"`

	// BaseURL is this service's externally visible URL, used in email links
	BaseURL string `env:"AUTH_BASE_URL" envDefault:"http://localhost:8080"`

	// FrontendURL is where the OAuth callback redirects with the token
	FrontendURL string `env:"AUTH_FRONTEND_URL" envDefault:"http://localhost:3000/auth/callback"`

	// CORSOrigins lists the origins allowed to call the JSON API
	CORSOrigins []string `env:"AUTH_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	GoogleClientID     string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"OAUTH2_GOOGLE_CALLBACK_URL"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
