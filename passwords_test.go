package auth

import (
	"net/http"
	"testing"
	"time"
)

func TestForgotPasswordGenericAck(t *testing.T) {
	local, _, resets := newTestAuth()
	account := registerAccount(t, local, "alice", "alice@example.com", "secret123")

	known := postJSON(local.HandleForgotPassword, map[string]string{"email": "alice@example.com"})
	unknown := postJSON(local.HandleForgotPassword, map[string]string{"email": "nobody@example.com"})

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200 for both, got %d and %d", known.Code, unknown.Code)
	}
	// Existence must not leak through the response
	if known.Body.String() != unknown.Body.String() {
		t.Errorf("known and unknown email responses differ:\n%s\n%s",
			known.Body.String(), unknown.Body.String())
	}

	if got := resets.validCount(account.ID); got != 1 {
		t.Errorf("expected 1 valid token for the known account, got %d", got)
	}
}

func TestForgotPasswordInactiveAccount(t *testing.T) {
	local, accounts, resets := newTestAuth()
	account := registerAccount(t, local, "alice", "alice@example.com", "secret123")
	account.IsActive = false
	if err := accounts.SaveAccount(account); err != nil {
		t.Fatal(err)
	}

	w := postJSON(local.HandleForgotPassword, map[string]string{"email": "alice@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := resets.validCount(account.ID); got != 0 {
		t.Errorf("inactive account should get no token, found %d", got)
	}
}

func TestRepeatedRequestsLeaveOneValidToken(t *testing.T) {
	local, _, resets := newTestAuth()
	account := registerAccount(t, local, "alice", "alice@example.com", "secret123")

	local.RequestReset("alice@example.com")
	first, err := resets.IssueResetToken(account.ID, ResetTokenExpiry)
	if err != nil {
		t.Fatal(err)
	}

	if got := resets.validCount(account.ID); got != 1 {
		t.Fatalf("expected exactly 1 valid token, got %d", got)
	}

	// The latest token works, any earlier one is gone
	if _, err := resets.GetResetToken(first.Token); err != nil {
		t.Errorf("latest token should resolve: %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	local, accounts, resets := newTestAuth()
	account := registerAccount(t, local, "alice", "alice@example.com", "secret123")
	token, err := resets.IssueResetToken(account.ID, ResetTokenExpiry)
	if err != nil {
		t.Fatal(err)
	}

	w := postJSON(local.HandleResetPassword, map[string]string{
		"token": token.Token, "password": "brand-new-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	updated, _ := accounts.GetAccountByID(account.ID)
	if !updated.CheckPassword("brand-new-password") {
		t.Error("new password does not match after reset")
	}
	if updated.CheckPassword("secret123") {
		t.Error("old password still matches after reset")
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	local, _, resets := newTestAuth()
	account := registerAccount(t, local, "alice", "alice@example.com", "secret123")
	token, err := resets.IssueResetToken(account.ID, ResetTokenExpiry)
	if err != nil {
		t.Fatal(err)
	}

	first := postJSON(local.HandleResetPassword, map[string]string{
		"token": token.Token, "password": "brand-new-password",
	})
	if first.Code != http.StatusOK {
		t.Fatalf("first reset should succeed, got %d", first.Code)
	}

	replay := postJSON(local.HandleResetPassword, map[string]string{
		"token": token.Token, "password": "another-password",
	})
	if replay.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for replayed token, got %d", replay.Code)
	}
	if body := decodeBody(t, replay); body["code"] != ErrCodeInvalidToken {
		t.Errorf("expected code %q, got %v", ErrCodeInvalidToken, body["code"])
	}
}

func TestResetTokenExpiryWindow(t *testing.T) {
	tests := []struct {
		name   string
		age    time.Duration
		wantOK bool
	}{
		{"just inside the window", ResetTokenExpiry - time.Second, true},
		{"just past the window", ResetTokenExpiry + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, _, resets := newTestAuth()
			account := registerAccount(t, local, "alice", "alice@example.com", "secret123")
			token, err := resets.IssueResetToken(account.ID, ResetTokenExpiry)
			if err != nil {
				t.Fatal(err)
			}

			// Age the token by shifting its timestamps backwards
			resets.mu.Lock()
			stored := resets.tokens[token.Token]
			stored.CreatedAt = stored.CreatedAt.Add(-tt.age)
			stored.ExpiresAt = stored.ExpiresAt.Add(-tt.age)
			resets.mu.Unlock()

			w := postJSON(local.HandleResetPassword, map[string]string{
				"token": token.Token, "password": "brand-new-password",
			})
			if tt.wantOK && w.Code != http.StatusOK {
				t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			if !tt.wantOK && w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestResetUnknownToken(t *testing.T) {
	local, _, _ := newTestAuth()

	w := postJSON(local.HandleResetPassword, map[string]string{
		"token": "no-such-token", "password": "brand-new-password",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestResetWeakPassword(t *testing.T) {
	local, _, resets := newTestAuth()
	account := registerAccount(t, local, "alice", "alice@example.com", "secret123")
	token, err := resets.IssueResetToken(account.ID, ResetTokenExpiry)
	if err != nil {
		t.Fatal(err)
	}

	w := postJSON(local.HandleResetPassword, map[string]string{
		"token": token.Token, "password": "12345",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != ErrCodeWeakPassword {
		t.Errorf("expected code %q, got %v", ErrCodeWeakPassword, body["code"])
	}

	// A rejected password leaves the token consumable
	second := postJSON(local.HandleResetPassword, map[string]string{
		"token": token.Token, "password": "long-enough-now",
	})
	if second.Code != http.StatusOK {
		t.Errorf("token should survive a weak-password attempt, got %d", second.Code)
	}
}

func TestResetInactiveAccount(t *testing.T) {
	local, accounts, resets := newTestAuth()
	account := registerAccount(t, local, "alice", "alice@example.com", "secret123")
	token, err := resets.IssueResetToken(account.ID, ResetTokenExpiry)
	if err != nil {
		t.Fatal(err)
	}

	account.IsActive = false
	if err := accounts.SaveAccount(account); err != nil {
		t.Fatal(err)
	}

	w := postJSON(local.HandleResetPassword, map[string]string{
		"token": token.Token, "password": "brand-new-password",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inactive account, got %d", w.Code)
	}
}

func TestSweepExpiredResetTokens(t *testing.T) {
	local, _, resets := newTestAuth()
	account := registerAccount(t, local, "alice", "alice@example.com", "secret123")
	token, err := resets.IssueResetToken(account.ID, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	local.SweepExpiredResetTokens()

	if _, err := resets.GetResetToken(token.Token); err == nil {
		t.Error("expired token should be purged")
	}
}
