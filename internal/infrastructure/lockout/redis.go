package lockout

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
)

const (
	failuresKeyPrefix = "lockout:failures:"
	lockedKeyPrefix   = "lockout:locked:"
)

// RedisStore shares lockout state between instances. Failure counters expire after the
// cooldown; a lock is a key whose TTL is the remaining cooldown. Redis errors fail open.
type RedisStore struct {
	client   redis.UniversalClient
	max      int
	cooldown time.Duration
	log      zerolog.Logger
}

func NewRedisStore(client redis.UniversalClient, maxAttempts int, cooldown time.Duration, log zerolog.Logger) *RedisStore {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &RedisStore{client: client, max: maxAttempts, cooldown: cooldown, log: log}
}

func (s *RedisStore) IsLocked(ctx context.Context, email string) (bool, int) {
	if s.max <= 0 {
		return false, 0
	}
	ttl, err := s.client.PTTL(ctx, lockedKeyPrefix+normalize(email)).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("lockout lookup failed")
		return false, 0
	}
	// PTTL reports -2 for a missing key and -1 for a key without expiry.
	if ttl <= 0 {
		return false, 0
	}
	return true, retryAfter(ttl)
}

func (s *RedisStore) RecordFailure(ctx context.Context, email string) {
	if s.max <= 0 {
		return
	}
	k := normalize(email)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, failuresKeyPrefix+k)
	pipe.Expire(ctx, failuresKeyPrefix+k, s.cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("lockout failure not recorded")
		return
	}
	if incr.Val() < int64(s.max) {
		return
	}
	if err := s.client.Set(ctx, lockedKeyPrefix+k, "1", s.cooldown).Err(); err != nil {
		s.log.Warn().Err(err).Msg("lockout not applied")
		return
	}
	s.client.Del(ctx, failuresKeyPrefix+k)
}

func (s *RedisStore) RecordSuccess(ctx context.Context, email string) {
	if s.max <= 0 {
		return
	}
	k := normalize(email)
	if err := s.client.Del(ctx, failuresKeyPrefix+k, lockedKeyPrefix+k).Err(); err != nil {
		s.log.Warn().Err(err).Msg("lockout reset failed")
	}
}

var _ ports.LoginLockoutStore = (*RedisStore)(nil)
