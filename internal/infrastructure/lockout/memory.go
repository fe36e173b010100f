// Package lockout throttles login attempts per email after repeated failures.
package lockout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
)

const defaultCooldown = 15 * time.Minute

type entry struct {
	failures    int
	lockedUntil time.Time
}

// MemoryStore is a single-instance LoginLockoutStore. Use RedisStore when several instances
// serve logins.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]*entry
	max      int
	cooldown time.Duration
	now      func() time.Time
}

// NewMemoryStore locks an email for cooldown after maxAttempts consecutive failures.
// maxAttempts <= 0 disables lockout.
func NewMemoryStore(maxAttempts int, cooldown time.Duration) *MemoryStore {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &MemoryStore{
		data:     make(map[string]*entry),
		max:      maxAttempts,
		cooldown: cooldown,
		now:      time.Now,
	}
}

func (s *MemoryStore) IsLocked(ctx context.Context, email string) (bool, int) {
	if s.max <= 0 {
		return false, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[normalize(email)]
	if !ok {
		return false, 0
	}
	remaining := e.lockedUntil.Sub(s.now())
	if remaining <= 0 {
		return false, 0
	}
	return true, retryAfter(remaining)
}

func (s *MemoryStore) RecordFailure(ctx context.Context, email string) {
	if s.max <= 0 {
		return
	}
	k := normalize(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e := s.data[k]
	if e == nil {
		e = &entry{}
		s.data[k] = e
	}
	// An expired lock starts a fresh window.
	if !e.lockedUntil.IsZero() && !now.Before(e.lockedUntil) {
		*e = entry{}
	}
	e.failures++
	if e.failures >= s.max {
		e.lockedUntil = now.Add(s.cooldown)
	}
}

func (s *MemoryStore) RecordSuccess(ctx context.Context, email string) {
	if s.max <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, normalize(email))
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func retryAfter(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

var _ ports.LoginLockoutStore = (*MemoryStore)(nil)
