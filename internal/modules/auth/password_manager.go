package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var _ PasswordHasher = (*PasswordManager)(nil)

// PasswordParams tunes the argon2id cost
type PasswordParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultPasswordParams follows the OWASP argon2id baseline
var DefaultPasswordParams = PasswordParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// PasswordManager hashes passwords with argon2id and an optional server-side pepper
type PasswordManager struct {
	params PasswordParams
	pepper []byte
}

func NewPasswordManager(pepper string, params PasswordParams) *PasswordManager {
	return &PasswordManager{
		params: params,
		pepper: []byte(pepper),
	}
}

// Hash returns the PHC-style encoding:
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>
func (pm *PasswordManager) Hash(password string) (string, error) {
	salt := make([]byte, pm.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(pm.peppered(password), salt, pm.params.Iterations, pm.params.Memory, pm.params.Parallelism, pm.params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		pm.params.Memory,
		pm.params.Iterations,
		pm.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify recomputes the hash with the parameters stored alongside it, so hashes
// produced under older params keep verifying after a cost change
func (pm *PasswordManager) Verify(password, encodedHash string) (bool, error) {
	p, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	otherHash := argon2.IDKey(pm.peppered(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return subtle.ConstantTimeCompare(hash, otherHash) == 1, nil
}

func (pm *PasswordManager) peppered(password string) []byte {
	return append([]byte(password), pm.pepper...)
}

func decodeHash(encodedHash string) (p PasswordParams, salt, hash []byte, err error) {
	vals := strings.Split(encodedHash, "$")
	if len(vals) != 6 {
		return p, nil, nil, errors.New("invalid encoded hash format: incorrect number of parts")
	}

	if vals[1] != "argon2id" {
		return p, nil, nil, errors.New("invalid hash algorithm: not argon2id")
	}

	var version int
	if _, err := fmt.Sscanf(vals[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("incompatible argon2 version %d: %v", version, err)
	}

	n, err := fmt.Sscanf(vals[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism)
	if err != nil || n != 3 {
		return p, nil, nil, fmt.Errorf("failed to parse argon2 parameters: %v", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(vals[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	p.SaltLength = uint32(len(salt))

	hash, err = base64.RawStdEncoding.DecodeString(vals[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("failed to decode hash: %w", err)
	}
	p.KeyLength = uint32(len(hash))

	return p, salt, hash, nil
}
