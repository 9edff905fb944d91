package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"
)

const stateCookieName = "oauthstate"

// GenerateState returns an unguessable state value for CSRF protection of the
// authorization flow.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// SetStateCookie binds the state value to the caller's browser for the
// duration of the round trip to the provider.
func SetStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// VerifyStateCookie compares the state echoed by the provider against the
// cookie set at authorization time, and clears the cookie either way.
func VerifyStateCookie(w http.ResponseWriter, r *http.Request, state string) bool {
	cookie, err := r.Cookie(stateCookieName)
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	if err != nil || cookie.Value == "" {
		return false
	}
	return state != "" && state == cookie.Value
}
