package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error codes returned to API clients.
const (
	ErrCodeMissingField    = "missing_field"
	ErrCodeInvalidUsername = "invalid_username"
	ErrCodeInvalidEmail    = "invalid_email"
	ErrCodeWeakPassword    = "weak_password"
	ErrCodeEmailExists     = "email_exists"
	ErrCodeUsernameTaken   = "username_taken"
	ErrCodeInvalidCreds    = "invalid_credentials"
	ErrCodeAccountDisabled = "account_disabled"
	ErrCodeInvalidToken    = "invalid_token"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeNotFound        = "not_found"
	ErrCodeOAuthFailed     = "oauth_failed"
	ErrCodeServerError     = "server_error"
)

// Sentinel errors used by the stores
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrTokenNotFound   = errors.New("token not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username is already taken")
)

// AuthError is the error shape surfaced by all auth endpoints. Field is set
// for validation failures so clients can highlight the offending input.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	return e.Message
}

// StatusCode maps an error code to the HTTP status it is reported with.
// Conflicts get their own status so clients can tell "taken" from "malformed".
func (e *AuthError) StatusCode() int {
	switch e.Code {
	case ErrCodeEmailExists, ErrCodeUsernameTaken:
		return http.StatusConflict
	case ErrCodeInvalidCreds, ErrCodeAccountDisabled, ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes an AuthError as JSON. Non-AuthError errors are masked
// behind a generic message so internal detail never reaches the caller.
func respondError(w http.ResponseWriter, err error) {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		authErr = NewAuthError(ErrCodeServerError, "An unexpected error occurred", "")
	}
	respondJSON(w, authErr.StatusCode(), authErr)
}
