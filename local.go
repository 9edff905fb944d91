package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// LocalAuth handles username/password registration and login, email
// verification, and the password reset endpoints.
type LocalAuth struct {
	Accounts AccountStore
	Resets   ResetTokenStore
	Codec    *TokenCodec

	// Optional email sender for verification and reset emails
	EmailSender SendEmail

	// Base URL for generating verification/reset links
	BaseURL string
}

type tokenResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    *Account `json:"user"`
	Warning string   `json:"warning,omitempty"`
}

// HandleRegister processes user registration (POST /api/auth/register)
func (a *LocalAuth) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, NewAuthError(ErrCodeMissingField, "Invalid request body", ""))
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	creds.Email = strings.TrimSpace(creds.Email)

	if err := creds.Validate(); err != nil {
		respondError(w, err)
		return
	}

	verificationToken, err := GenerateSecureToken()
	if err != nil {
		log.Println("error generating verification token: ", err)
		respondError(w, err)
		return
	}

	account := &Account{
		Username:          creds.Username,
		Email:             NormalizeEmail(creds.Email),
		IsActive:          true,
		IsVerified:        false,
		VerificationToken: verificationToken,
		CreatedAt:         time.Now(),
	}
	if err := account.SetPassword(creds.Password); err != nil {
		respondError(w, err)
		return
	}

	if err := a.Accounts.CreateAccount(account); err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			respondError(w, NewAuthError(ErrCodeEmailExists, "An account with this email already exists", "email"))
		case errors.Is(err, ErrUsernameTaken):
			respondError(w, NewAuthError(ErrCodeUsernameTaken, "This username is already taken", "username"))
		default:
			log.Println("error creating account: ", err)
			respondError(w, err)
		}
		return
	}

	a.sendVerificationEmail(account)

	token, err := a.Codec.Issue(claimsFor(account), SessionTokenExpiry)
	if err != nil {
		log.Println("error signing token: ", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, tokenResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    account,
	})
}

// HandleLogin authenticates a user and returns a bearer token (POST /api/auth/login)
func (a *LocalAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, NewAuthError(ErrCodeMissingField, "Invalid request body", ""))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respondError(w, NewAuthError(ErrCodeMissingField, "Email and password are required", ""))
		return
	}

	// A missing account and a wrong password are indistinguishable to the
	// caller. The disabled check runs after the credential match, so it does
	// not become an account-existence oracle.
	account, err := a.Accounts.GetAccountByEmail(NormalizeEmail(req.Email))
	if err != nil || !account.CheckPassword(req.Password) {
		respondError(w, NewAuthError(ErrCodeInvalidCreds, "Email or password is incorrect", ""))
		return
	}

	if !account.IsActive {
		respondError(w, NewAuthError(ErrCodeAccountDisabled, "Your account has been disabled", ""))
		return
	}

	token, err := a.Codec.Issue(claimsFor(account), SessionTokenExpiry)
	if err != nil {
		log.Println("error signing token: ", err)
		respondError(w, err)
		return
	}

	resp := tokenResponse{
		Message: "Login successful",
		Token:   token,
		User:    account,
	}
	if !account.IsVerified {
		resp.Warning = "Email address not verified"
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleMe returns the authenticated account (GET /api/auth/me, bearer)
func (a *LocalAuth) HandleMe(w http.ResponseWriter, r *http.Request) {
	account, err := a.Accounts.GetAccountByID(GetAccountID(r.Context()))
	if err != nil {
		respondError(w, NewAuthError(ErrCodeNotFound, "User account no longer exists", ""))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": account})
}

// HandleLogout acknowledges logout (POST /api/auth/logout, bearer). Tokens are
// not revoked server-side; the client discards its copy.
func (a *LocalAuth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Logged out successfully",
		"note":    "Please remove the token from client storage",
	})
}

// HandleVerifyEmail consumes a pending verification token (GET /api/auth/verify-email?token=...)
func (a *LocalAuth) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, NewAuthError(ErrCodeMissingField, "Token required", "token"))
		return
	}

	account, err := a.Accounts.GetAccountByVerificationToken(token)
	if err != nil {
		respondError(w, NewAuthError(ErrCodeInvalidToken, "Invalid verification token", "token"))
		return
	}

	account.IsVerified = true
	account.VerificationToken = ""
	if err := a.Accounts.SaveAccount(account); err != nil {
		log.Println("error saving account: ", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Email verified successfully"})
}

// HandleResendVerification replaces the pending verification token and resends
// the email (POST /api/auth/resend-verification, bearer). Already-verified
// accounts get a no-op success.
func (a *LocalAuth) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	account, err := a.Accounts.GetAccountByID(GetAccountID(r.Context()))
	if err != nil {
		respondError(w, NewAuthError(ErrCodeNotFound, "User account no longer exists", ""))
		return
	}

	if account.IsVerified {
		respondJSON(w, http.StatusOK, map[string]any{"message": "Email is already verified"})
		return
	}

	verificationToken, err := GenerateSecureToken()
	if err != nil {
		respondError(w, err)
		return
	}
	account.VerificationToken = verificationToken
	if err := a.Accounts.SaveAccount(account); err != nil {
		log.Println("error saving account: ", err)
		respondError(w, err)
		return
	}

	a.sendVerificationEmail(account)
	respondJSON(w, http.StatusOK, map[string]any{"message": "Verification email sent"})
}

// sendVerificationEmail sends the verification link if a sender is configured.
// Failures are logged, never surfaced; email delivery is best effort.
func (a *LocalAuth) sendVerificationEmail(account *Account) {
	if a.EmailSender == nil || a.BaseURL == "" || account.VerificationToken == "" {
		return
	}
	link := fmt.Sprintf("%s/api/auth/verify-email?token=%s", a.BaseURL, account.VerificationToken)
	if err := a.EmailSender.SendVerificationEmail(account.Email, link); err != nil {
		log.Println("error sending verification email: ", err)
	}
}

func claimsFor(account *Account) Claims {
	return Claims{
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
	}
}
