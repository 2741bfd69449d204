package auth

import (
	"testing"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTestCodec(t *testing.T, clk clock.Clock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec("test-secret", "HS256", 30*time.Minute, clk)
	require.NoError(t, err)
	return codec
}

func TestTokenCodec_RoundTripAndExpiry(t *testing.T) {
	clk := &clock.FixedClock{T: testEpoch}
	codec := newTestCodec(t, clk)

	tests := []struct {
		subject string
		ttl     time.Duration
	}{
		{"a@x.com", time.Minute},
		{"b@x.com", 15 * time.Minute},
		{"c@x.com", 0}, // default ttl
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			clk.T = testEpoch

			token, expiresAt, err := codec.Issue(tt.subject, tt.ttl)
			require.NoError(t, err)

			want := tt.ttl
			if want == 0 {
				want = 30 * time.Minute
			}
			assert.True(t, testEpoch.Add(want).Equal(expiresAt))

			claims, err := codec.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, claims.Subject)
			assert.True(t, expiresAt.Equal(claims.ExpiresAt))

			clk.Advance(want - time.Second)
			_, err = codec.Verify(token)
			assert.NoError(t, err)

			clk.Advance(time.Second)
			_, err = codec.Verify(token)
			assert.ErrorIs(t, err, ErrExpired)
		})
	}
}

func TestTokenCodec_TokensAreUnique(t *testing.T) {
	codec := newTestCodec(t, &clock.FixedClock{T: testEpoch})

	first, _, err := codec.Issue("a@x.com", 0)
	require.NoError(t, err)
	second, _, err := codec.Issue("a@x.com", 0)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenCodec_RejectsForeignTokens(t *testing.T) {
	clk := &clock.FixedClock{T: testEpoch}
	codec := newTestCodec(t, clk)

	claims := jwt.RegisteredClaims{
		Subject:   "a@x.com",
		ExpiresAt: jwt.NewNumericDate(testEpoch.Add(time.Hour)),
	}

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(testEpoch.Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "a@x.com",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":    "not-a-token",
		"empty":      "",
		"wrong key":  wrongKey,
		"wrong alg":  wrongAlg,
		"alg none":   unsigned,
		"no subject": noSubject,
		"no expiry":  noExpiry,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Verify(token)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestNewTokenCodec_Validation(t *testing.T) {
	clk := &clock.FixedClock{T: testEpoch}

	_, err := NewTokenCodec("", "HS256", time.Minute, clk)
	assert.Error(t, err)

	_, err = NewTokenCodec("secret", "RS256", time.Minute, clk)
	assert.Error(t, err)

	_, err = NewTokenCodec("secret", "HS256", 0, clk)
	assert.Error(t, err)

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		_, err := NewTokenCodec("secret", alg, time.Minute, clk)
		assert.NoError(t, err, alg)
	}
}
