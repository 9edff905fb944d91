package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/projecthuman/auth/oauth2"
)

// OAuthLogin handles the federated login endpoints: the redirect-based
// authorization flow and direct ID token verification.
type OAuthLogin struct {
	Accounts AccountStore
	Codec    *TokenCodec
	Google   *oauth2.Google

	// Sessions, when set, carries the flow state server-side; otherwise the
	// state rides in a short-lived cookie
	Sessions *scs.SessionManager

	// FrontendURL is where the callback redirects with the issued token
	FrontendURL string
}

const stateSessionVar = "oauthstate"

func (o *OAuthLogin) rememberState(w http.ResponseWriter, r *http.Request, state string) {
	if o.Sessions != nil {
		o.Sessions.Put(r.Context(), stateSessionVar, state)
		return
	}
	oauth2.SetStateCookie(w, state)
}

func (o *OAuthLogin) checkState(w http.ResponseWriter, r *http.Request, state string) bool {
	if o.Sessions != nil {
		expected := o.Sessions.PopString(r.Context(), stateSessionVar)
		return expected != "" && state == expected
	}
	return oauth2.VerifyStateCookie(w, r, state)
}

// HandleAuthorize starts the redirect flow (GET /api/auth/google/authorize).
// Returns the provider authorization URL and the state bound to the caller.
func (o *OAuthLogin) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	if !o.Google.Configured() {
		respondError(w, NewAuthError(ErrCodeOAuthFailed, "Google sign-in is not configured", ""))
		return
	}

	state, err := oauth2.GenerateState()
	if err != nil {
		log.Println("error generating oauth state: ", err)
		respondError(w, err)
		return
	}
	o.rememberState(w, r, state)

	respondJSON(w, http.StatusOK, map[string]any{
		"authorization_url": o.Google.AuthCodeURL(state),
		"state":             state,
	})
}

// HandleCallback completes the redirect flow (GET /api/auth/google/callback).
// The state echoed by the provider must match the cookie set at authorization
// time or the exchange is refused. On success the browser is redirected to
// the frontend with a bearer token in the query string; on failure with an
// error code instead.
func (o *OAuthLogin) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		log.Println("provider returned error: ", providerErr)
		o.redirectError(w, r, "oauth_denied")
		return
	}

	if !o.checkState(w, r, r.URL.Query().Get("state")) {
		log.Println("oauth state mismatch")
		o.redirectError(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		o.redirectError(w, r, "missing_code")
		return
	}

	profile, err := o.Google.Exchange(r.Context(), code)
	if err != nil {
		log.Println("code exchange failed: ", err)
		o.redirectError(w, r, "oauth_failed")
		return
	}

	account, err := o.ensureFederatedAccount("google", profile)
	if err != nil {
		log.Println("error reconciling federated account: ", err)
		o.redirectError(w, r, "oauth_failed")
		return
	}

	token, err := o.Codec.Issue(claimsFor(account), FederatedTokenExpiry)
	if err != nil {
		log.Println("error signing token: ", err)
		o.redirectError(w, r, "server_error")
		return
	}

	http.Redirect(w, r, fmt.Sprintf("%s?token=%s", o.FrontendURL, url.QueryEscape(token)), http.StatusFound)
}

// HandleVerifyToken accepts a Google ID token obtained by the client itself
// and signs the user in (POST /api/auth/google/verify).
func (o *OAuthLogin) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondError(w, NewAuthError(ErrCodeMissingField, "Token required", "token"))
		return
	}

	profile, err := o.Google.VerifyIDToken(r.Context(), req.Token)
	if err != nil {
		log.Println("id token verification failed: ", err)
		respondError(w, NewAuthError(ErrCodeOAuthFailed, "Invalid Google token", "token"))
		return
	}

	account, err := o.ensureFederatedAccount("google", profile)
	if err != nil {
		log.Println("error reconciling federated account: ", err)
		respondError(w, err)
		return
	}

	token, err := o.Codec.Issue(claimsFor(account), FederatedTokenExpiry)
	if err != nil {
		log.Println("error signing token: ", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{
		Message: "Login successful",
		Token:   token,
		User:    account,
	})
}

// ensureFederatedAccount resolves the provider assertion to a local account.
// Resolution order: the exact provider identity, then the asserted email
// (which links the provider to an existing local account), then a fresh
// account. Linking and creation both leave the account email-verified since
// the provider vouched for the address.
func (o *OAuthLogin) ensureFederatedAccount(provider string, profile *oauth2.Profile) (*Account, error) {
	account, err := o.Accounts.GetAccountByProvider(provider, profile.Subject)
	if err == nil {
		if !account.IsActive {
			return nil, NewAuthError(ErrCodeAccountDisabled, "Your account has been disabled", "")
		}
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	email := NormalizeEmail(profile.Email)
	account, err = o.Accounts.GetAccountByEmail(email)
	if err == nil {
		if !account.IsActive {
			return nil, NewAuthError(ErrCodeAccountDisabled, "Your account has been disabled", "")
		}
		account.Provider = provider
		account.ProviderID = profile.Subject
		account.IsVerified = true
		account.VerificationToken = ""
		if account.Picture == "" {
			account.Picture = profile.Picture
		}
		if err := o.Accounts.SaveAccount(account); err != nil {
			return nil, err
		}
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	username, err := o.deriveUsername(profile)
	if err != nil {
		return nil, err
	}
	account = &Account{
		Username:   username,
		Email:      email,
		IsActive:   true,
		IsVerified: true,
		Provider:   provider,
		ProviderID: profile.Subject,
		Picture:    profile.Picture,
		CreatedAt:  time.Now(),
	}
	if err := o.Accounts.CreateAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// deriveUsername turns the provider profile into a locally valid, unused
// username. The display name is slugged first, the email local part is the
// fallback, and collisions get a numeric suffix.
func (o *OAuthLogin) deriveUsername(profile *oauth2.Profile) (string, error) {
	base := slugUsername(profile.Name)
	if base == "" {
		local, _, _ := strings.Cut(profile.Email, "@")
		base = slugUsername(local)
	}
	if base == "" {
		base = "user"
	}
	for len(base) < MinUsernameLength {
		base += "_"
	}
	if len(base) > MaxUsernameLength {
		base = base[:MaxUsernameLength]
	}

	candidate := base
	for i := 1; ; i++ {
		_, err := o.Accounts.GetAccountByUsername(candidate)
		if errors.Is(err, ErrAccountNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		suffix := fmt.Sprintf("%d", i)
		trimmed := base
		if len(trimmed)+len(suffix) > MaxUsernameLength {
			trimmed = trimmed[:MaxUsernameLength-len(suffix)]
		}
		candidate = trimmed + suffix
	}
}

// slugUsername lowercases and strips a display name down to the allowed
// username alphabet, mapping spaces to underscores.
func slugUsername(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (o *OAuthLogin) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, fmt.Sprintf("%s?error=%s", o.FrontendURL, url.QueryEscape(code)), http.StatusFound)
}
