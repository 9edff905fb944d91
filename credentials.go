package auth

import "regexp"

// Validation rules for locally-registered credentials
const (
	MinUsernameLength = 3
	MaxUsernameLength = 80
	MinPasswordLength = 6
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Credentials carries a registration payload before validation.
type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateUsername checks length and character rules for a username.
func ValidateUsername(username string) *AuthError {
	if username == "" {
		return NewAuthError(ErrCodeMissingField, "Username is required", "username")
	}
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return NewAuthError(ErrCodeInvalidUsername, "Username must be 3-80 characters", "username")
	}
	if !usernameRegex.MatchString(username) {
		return NewAuthError(ErrCodeInvalidUsername, "Username can only contain letters, numbers, underscores, and hyphens", "username")
	}
	return nil
}

// ValidateEmail checks that an email address is plausibly deliverable.
func ValidateEmail(email string) *AuthError {
	if email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if !emailRegex.MatchString(email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) *AuthError {
	if password == "" {
		return NewAuthError(ErrCodeMissingField, "Password is required", "password")
	}
	if len(password) < MinPasswordLength {
		return NewAuthError(ErrCodeWeakPassword, "Password must be at least 6 characters", "password")
	}
	return nil
}

// ValidateCredentials runs all registration validations and returns the first
// failure.
func (c *Credentials) Validate() *AuthError {
	if err := ValidateUsername(c.Username); err != nil {
		return err
	}
	if err := ValidateEmail(c.Email); err != nil {
		return err
	}
	return ValidatePassword(c.Password)
}
