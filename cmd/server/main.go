// Command server runs the auth service as a standalone HTTP server. Storage
// is postgres when AUTH_DATABASE_URL is set, otherwise JSON files under
// AUTH_DATA_DIR.
package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/projecthuman/auth"
	"github.com/projecthuman/auth/oauth2"
	"github.com/projecthuman/auth/stores"
	gormstores "github.com/projecthuman/auth/stores/gorm"
)

func main() {
	cfg, err := auth.LoadConfig()
	if err != nil {
		log.Fatal("error loading config: ", err)
	}
	if cfg.SecretKey == "" && cfg.JWTSigningKey == "" {
		log.Fatal("AUTH_SECRET_KEY or AUTH_JWT_SIGNING_KEY must be set")
	}

	accounts, resets := buildStores(cfg)

	codec := &auth.TokenCodec{
		SigningKey: cfg.JWTSigningKey,
		AppSecret:  cfg.SecretKey,
		Issuer:     cfg.Issuer,
	}

	local := &auth.LocalAuth{
		Accounts:    accounts,
		Resets:      resets,
		Codec:       codec,
		EmailSender: &auth.ConsoleEmailSender{},
		BaseURL:     cfg.BaseURL,
	}
	local.SweepExpiredResetTokens()

	sessions := scs.New()
	sessions.Lifetime = 10 * time.Minute
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	oauthLogin := &auth.OAuthLogin{
		Accounts:    accounts,
		Codec:       codec,
		Google:      oauth2.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL),
		Sessions:    sessions,
		FrontendURL: cfg.FrontendURL,
	}

	svc := &auth.Service{
		Local:       local,
		OAuth:       oauthLogin,
		Middleware:  &auth.Middleware{Codec: codec},
		Sessions:    sessions,
		CORSOrigins: cfg.CORSOrigins,
	}

	slog.Info("starting auth server", "addr", cfg.Addr, "google", oauthLogin.Google.Configured())
	if err := http.ListenAndServe(cfg.Addr, svc.Handler()); err != nil {
		log.Fatal(err)
	}
}

func buildStores(cfg *auth.Config) (auth.AccountStore, auth.ResetTokenStore) {
	if cfg.DSN != "" {
		db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
		if err != nil {
			log.Fatal("error connecting to database: ", err)
		}
		if err := gormstores.AutoMigrate(db); err != nil {
			log.Fatal("error running migrations: ", err)
		}
		return gormstores.NewAccountStore(db), gormstores.NewResetTokenStore(db)
	}

	slog.Info("no database configured, using file stores", "dir", cfg.DataDir)
	accounts := stores.NewFSAccountStore(cfg.DataDir)
	return accounts, stores.NewFSResetTokenStore(cfg.DataDir, accounts)
}
