package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is what a verified access token tells us
type AccessClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenCodec signs and verifies access tokens.
// Tokens are readable by anyone holding them, only the HMAC signature protects them
type TokenCodec struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	clock      clock.Clock
}

// NewTokenCodec accepts one of HS256, HS384 or HS512
func NewTokenCodec(secret, algorithm string, defaultTTL time.Duration, clk clock.Clock) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token codec requires a signing secret")
	}
	if defaultTTL <= 0 {
		return nil, errors.New("token codec requires a positive default ttl")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	return &TokenCodec{
		secret:     []byte(secret),
		method:     method,
		defaultTTL: defaultTTL,
		clock:      clk,
	}, nil
}

// Issue signs a token for subject. A non-positive ttl means the configured default
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.clock.Now()
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm and expiry. It returns ErrExpired or
// ErrMalformedToken (wrapping the parser error) and has no side effects
func (c *TokenCodec) Verify(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, ErrMalformedToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}

	return &AccessClaims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
