package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hongminglow/fund-ledger/internal/models"
)

// Claims is the payload of an access token. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed JWTs for authenticated users.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces time.Now, for deterministic expiry in tests.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenManager) { t.now = now }
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	t := &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TTL is the lifetime of issued tokens.
func (t *TokenManager) TTL() time.Duration { return t.ttl }

// Generate issues a signed JWT for user and returns it with its expiry.
func (t *TokenManager) Generate(user models.User) (string, time.Time, error) {
	if user.ID == "" {
		return "", time.Time{}, errors.New("token subject is empty")
	}
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
func (t *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token subject is empty")
	}
	return claims, nil
}
