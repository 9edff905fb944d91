package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const contextKeyAccountID contextKey = "account_id"

// GetAccountID retrieves the authenticated account id from the request
// context. Returns 0 when the request did not pass through RequireUser.
func GetAccountID(ctx context.Context) int64 {
	if v := ctx.Value(contextKeyAccountID); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// SetAccountID stores the authenticated account id in the context. Exposed
// mainly for handler tests.
func SetAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, contextKeyAccountID, id)
}

// Middleware gates protected endpoints on a valid bearer token.
type Middleware struct {
	Codec *TokenCodec

	// AuthHeader defaults to "Authorization"
	AuthHeader string
}

// RequireUser rejects the request with 401 unless it carries a verifiable
// bearer token, and forwards the resolved account id in the request context.
// A token whose account has since disappeared is NOT caught here; that is a
// downstream not-found.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			respondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(SetAccountID(r.Context(), claims.AccountID)))
	})
}

// authenticate extracts and verifies the bearer credential from the request.
func (m *Middleware) authenticate(r *http.Request) (*Claims, error) {
	header := m.AuthHeader
	if header == "" {
		header = "Authorization"
	}

	authHeader := r.Header.Get(header)
	if authHeader == "" {
		return nil, NewAuthError(ErrCodeUnauthorized, "Authentication required", "")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, NewAuthError(ErrCodeUnauthorized, "Invalid authorization header format", "")
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, NewAuthError(ErrCodeUnauthorized, "Invalid authorization header format", "")
	}

	claims, err := m.Codec.Verify(tokenString)
	if err != nil {
		return nil, NewAuthError(ErrCodeUnauthorized, "Invalid or expired token", "")
	}
	return claims, nil
}
