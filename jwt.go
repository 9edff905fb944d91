package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Bearer token lifetimes. Federated logins get a longer session by policy.
const (
	SessionTokenExpiry   = 60 * time.Minute
	FederatedTokenExpiry = 24 * time.Hour
	DefaultTokenExpiry   = 15 * time.Minute
)

// ErrInvalidToken is returned for every verification failure. Callers cannot
// distinguish expired from malformed from tampered, so nothing about the
// validation internals leaks.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the identity carried by a bearer token.
type Claims struct {
	AccountID int64
	Username  string
	Email     string
}

// TokenCodec signs and verifies bearer tokens with HMAC-SHA256. It is
// stateless; all its methods are pure computation.
type TokenCodec struct {
	// SigningKey is the dedicated token signing secret. When empty the shared
	// AppSecret is used instead.
	SigningKey string
	AppSecret  string
	Issuer     string
}

// secretKey resolves the signing secret. Deterministic and side-effect-free.
func (c *TokenCodec) secretKey() []byte {
	if c.SigningKey != "" {
		return []byte(c.SigningKey)
	}
	return []byte(c.AppSecret)
}

// Issue signs a token carrying claims plus iat/nbf/exp computed from ttl.
// A zero or negative ttl falls back to DefaultTokenExpiry.
func (c *TokenCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}

	now := time.Now()
	mapClaims := jwt.MapClaims{
		"user_id": claims.AccountID,
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if claims.Username != "" {
		mapClaims["username"] = claims.Username
	}
	if claims.Email != "" {
		mapClaims["email"] = claims.Email
	}
	if c.Issuer != "" {
		mapClaims["iss"] = c.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	tokenString, err := token.SignedString(c.secretKey())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks signature integrity and the [nbf, exp] window and returns the
// claim set. Every failure mode collapses to ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secretKey(), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := mapClaims["user_id"].(float64)
	if !ok || userID == 0 {
		return nil, ErrInvalidToken
	}

	claims := &Claims{AccountID: int64(userID)}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	return claims, nil
}
