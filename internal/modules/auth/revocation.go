package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
)

// RevocationRegistry is the denylist for access tokens invalidated before their expiry.
// Revoke is idempotent; an entry only has to live until expiresAt
type RevocationRegistry interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

var _ RevocationRegistry = (*MemoryRevocationRegistry)(nil)

// MemoryRevocationRegistry keeps the denylist in process. Call Run to evict
// entries whose token has expired on its own
type MemoryRevocationRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	clock   clock.Clock
}

func NewMemoryRevocationRegistry(clk clock.Clock) *MemoryRevocationRegistry {
	return &MemoryRevocationRegistry{
		entries: make(map[string]time.Time),
		clock:   clk,
	}
}

func (r *MemoryRevocationRegistry) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	key := hashToken(token)

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.entries[key]; !ok || expiresAt.After(current) {
		r.entries[key] = expiresAt
	}
	return nil
}

func (r *MemoryRevocationRegistry) IsRevoked(_ context.Context, token string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[hashToken(token)]
	return ok, nil
}

// Prune drops entries whose expiry has passed and reports how many were removed
func (r *MemoryRevocationRegistry) Prune() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, expiresAt := range r.entries {
		if !expiresAt.After(now) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Len is the number of tracked tokens
func (r *MemoryRevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Run prunes on every tick until ctx is cancelled
func (r *MemoryRevocationRegistry) Run(ctx context.Context, interval time.Duration) {
	log := ctxlogger.GetLogger(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(); n > 0 {
				log.Debug("pruned expired revocations", slog.Int("count", n))
			}
		}
	}
}
