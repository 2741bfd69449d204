package auth

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
	"github.com/google/uuid"
)

// DefaultRefreshTokenTTL is how long an unused refresh token stays redeemable
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// RefreshStore maps opaque refresh tokens to users.
// Rotate is a single atomic step: the presented token stops working in the same
// critical section that yields its replacement, so a token can be redeemed once.
// Unknown, expired or already rotated tokens are reported as ErrInvalidRefreshToken.
// Revoke only drops a token owned by userID; anything else is a silent no-op
type RefreshStore interface {
	Issue(ctx context.Context, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, token string) (uuid.UUID, string, error)
	Revoke(ctx context.Context, userID uuid.UUID, token string) error
}

var _ RefreshStore = (*MemoryRefreshStore)(nil)

type refreshEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// MemoryRefreshStore is the single-process binding
type MemoryRefreshStore struct {
	mu      sync.Mutex
	entries map[string]refreshEntry
	ttl     time.Duration
	clock   clock.Clock
	entropy io.Reader
}

func NewMemoryRefreshStore(ttl time.Duration, clk clock.Clock) *MemoryRefreshStore {
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	return &MemoryRefreshStore{
		entries: make(map[string]refreshEntry),
		ttl:     ttl,
		clock:   clk,
		entropy: rand.Reader,
	}
}

func (s *MemoryRefreshStore) Issue(_ context.Context, userID uuid.UUID) (string, error) {
	token, err := generateOpaqueToken(s.entropy)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertLocked(token, userID)
	return token, nil
}

func (s *MemoryRefreshStore) Rotate(_ context.Context, token string) (uuid.UUID, string, error) {
	if token == "" {
		return uuid.Nil, "", ErrInvalidRefreshToken
	}

	next, err := generateOpaqueToken(s.entropy)
	if err != nil {
		return uuid.Nil, "", err
	}

	key := hashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return uuid.Nil, "", ErrInvalidRefreshToken
	}
	delete(s.entries, key)

	if !entry.expiresAt.After(s.clock.Now()) {
		return uuid.Nil, "", ErrInvalidRefreshToken
	}

	s.insertLocked(next, entry.userID)
	return entry.userID, next, nil
}

func (s *MemoryRefreshStore) Revoke(_ context.Context, userID uuid.UUID, token string) error {
	key := hashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && entry.userID == userID {
		delete(s.entries, key)
	}
	return nil
}

// PurgeExpired removes stale entries and reports how many were dropped
func (s *MemoryRefreshStore) PurgeExpired() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Run purges expired entries every interval until ctx is done
func (s *MemoryRefreshStore) Run(ctx context.Context, interval time.Duration) {
	log := ctxlogger.GetLogger(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.PurgeExpired(); n > 0 {
				log.Debug("purged expired refresh tokens", slog.Int("count", n))
			}
		}
	}
}

// Len reports how many tokens are currently held
func (s *MemoryRefreshStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryRefreshStore) insertLocked(token string, userID uuid.UUID) {
	s.entries[hashToken(token)] = refreshEntry{
		userID:    userID,
		expiresAt: s.clock.Now().Add(s.ttl),
	}
}
