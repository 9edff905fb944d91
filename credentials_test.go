package auth

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		wantCode string
	}{
		{"alice", ""},
		{"ab_c-3", ""},
		{"abc", ""},
		{strings.Repeat("a", 80), ""},
		{"", ErrCodeMissingField},
		{"ab", ErrCodeInvalidUsername},
		{strings.Repeat("a", 81), ErrCodeInvalidUsername},
		{"has space", ErrCodeInvalidUsername},
		{"has.dot", ErrCodeInvalidUsername},
		{"émile", ErrCodeInvalidUsername},
	}

	for _, tt := range tests {
		err := ValidateUsername(tt.username)
		if tt.wantCode == "" {
			if err != nil {
				t.Errorf("ValidateUsername(%q) = %v, expected ok", tt.username, err)
			}
			continue
		}
		if err == nil || err.Code != tt.wantCode {
			t.Errorf("ValidateUsername(%q) = %v, expected code %q", tt.username, err, tt.wantCode)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email    string
		wantCode string
	}{
		{"alice@example.com", ""},
		{"a.b+c@sub.example.org", ""},
		{"", ErrCodeMissingField},
		{"not-an-email", ErrCodeInvalidEmail},
		{"missing@tld", ErrCodeInvalidEmail},
		{"@example.com", ErrCodeInvalidEmail},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if tt.wantCode == "" {
			if err != nil {
				t.Errorf("ValidateEmail(%q) = %v, expected ok", tt.email, err)
			}
			continue
		}
		if err == nil || err.Code != tt.wantCode {
			t.Errorf("ValidateEmail(%q) = %v, expected code %q", tt.email, err, tt.wantCode)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("123456"); err != nil {
		t.Errorf("six characters should pass: %v", err)
	}
	if err := ValidatePassword("12345"); err == nil || err.Code != ErrCodeWeakPassword {
		t.Errorf("five characters should fail with weak_password, got %v", err)
	}
	if err := ValidatePassword(""); err == nil || err.Code != ErrCodeMissingField {
		t.Errorf("empty password should fail with missing_field, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM  "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestCheckPasswordWithoutHash(t *testing.T) {
	account := &Account{}
	if account.CheckPassword("") || account.CheckPassword("anything") {
		t.Error("accounts without a password hash must never match")
	}
}
