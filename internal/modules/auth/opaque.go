package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// opaqueTokenBytes gives 256 bits of entropy per refresh or csrf token
const opaqueTokenBytes = 32

// generateOpaqueToken returns a URL-safe random string read from r
func generateOpaqueToken(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}

	b := make([]byte, opaqueTokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashToken is the storage key for a token, the raw value is never persisted
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
