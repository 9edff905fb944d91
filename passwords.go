package auth

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// RequestReset issues a fresh reset token for the account registered under
// email. Unknown and inactive accounts are silently skipped so the endpoint
// cannot be used to enumerate accounts; the caller sees the same generic
// acknowledgement either way.
func (a *LocalAuth) RequestReset(email string) {
	account, err := a.Accounts.GetAccountByEmail(NormalizeEmail(email))
	if err != nil || !account.IsActive {
		return
	}

	token, err := a.Resets.IssueResetToken(account.ID, ResetTokenExpiry)
	if err != nil {
		log.Println("error issuing reset token: ", err)
		return
	}

	if a.EmailSender != nil && a.BaseURL != "" {
		resetLink := fmt.Sprintf("%s/reset-password?token=%s", a.BaseURL, token.Token)
		if err := a.EmailSender.SendPasswordResetEmail(account.Email, resetLink); err != nil {
			log.Println("error sending reset email: ", err)
		}
	}
}

// CompleteReset consumes a reset token and sets the new password. The token
// must be unconsumed and unexpired, and the owning account still active.
// Setting the password and marking the token used commit atomically.
func (a *LocalAuth) CompleteReset(tokenString, password string) error {
	invalid := NewAuthError(ErrCodeInvalidToken, "Invalid or expired reset token", "token")

	token, err := a.Resets.GetResetToken(tokenString)
	if err != nil || !token.IsValid() {
		return invalid
	}

	account, err := a.Accounts.GetAccountByID(token.AccountID)
	if err != nil || !account.IsActive {
		return invalid
	}

	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	// The store refuses a second consume of the same token, so a concurrent
	// replay loses here even after both passed IsValid above.
	if err := a.Resets.ConsumeResetToken(tokenString, hash); err != nil {
		return invalid
	}
	return nil
}

// HandleForgotPassword starts password recovery (POST /api/auth/request-password-reset)
func (a *LocalAuth) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		respondError(w, NewAuthError(ErrCodeMissingField, "Email required", "email"))
		return
	}

	a.RequestReset(req.Email)

	// Always the same response, whether or not the email exists
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "If that email exists, a reset link has been sent",
	})
}

// HandleResetPassword completes password recovery (POST /api/auth/reset-password)
func (a *LocalAuth) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, NewAuthError(ErrCodeMissingField, "Invalid request body", ""))
		return
	}
	if req.Token == "" || req.Password == "" {
		respondError(w, NewAuthError(ErrCodeMissingField, "Token and password are required", ""))
		return
	}

	if err := a.CompleteReset(req.Token, req.Password); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Password reset successfully"})
}

// SweepExpiredResetTokens drops reset tokens past their expiry. Safe to run
// at any time, typically at process start.
func (a *LocalAuth) SweepExpiredResetTokens() {
	if err := a.Resets.PurgeExpiredTokens(); err != nil {
		log.Println("error purging expired reset tokens: ", err)
	}
}
