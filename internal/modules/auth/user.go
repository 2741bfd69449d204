package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRepository is the persistent user store consumed by the auth flow.
// Save reports ErrAlreadyRegistered on a duplicate email, the finders report ErrUserNotFound
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// PasswordHasher hashes new passwords and checks candidates against a stored hash
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// normalizeEmail makes lookups case-insensitive and ignores surrounding whitespace
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
