package token

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SecretEnv is the environment variable holding the HMAC secret used to
// sign session tokens.
const SecretEnv = "OPSDECK_TOKEN_SECRET"

const minSecretSize = 32

// ErrMalformed indicates the token structure or signature is invalid.
var ErrMalformed = errors.New("malformed token")

// ErrExpired indicates the token is past its expiry.
var ErrExpired = errors.New("token expired")

// Claims are the session token claims issued at login.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// LoadSecret reads the signing secret from the environment.
func LoadSecret() ([]byte, error) {
	secret := os.Getenv(SecretEnv)
	if secret == "" {
		return nil, fmt.Errorf("%s environment variable is required", SecretEnv)
	}
	if len(secret) < minSecretSize {
		return nil, fmt.Errorf("%s must be at least %d bytes, got %d", SecretEnv, minSecretSize, len(secret))
	}
	return []byte(secret), nil
}

// Issuer signs and parses session tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer with the given secret and token lifetime.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl}
}

// Issue signs a token for the given user and returns it with its expiry.
func (i *Issuer) Issue(userID uint, username, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "opsdeck",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Parse validates a raw token string and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !tok.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}
