package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/consensusai/consensus/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyUserRecord = "consensus:ratelimit:user:%s"
	keyUserLock   = "consensus:lock:usage:%s"
)

// UserLimiter throttles usage recording per user and serializes a user's
// aggregate updates across processes.
type UserLimiter struct {
	bucket *TokenBucket
	locker *Locker

	limitEnabled bool
	policy       Bucket
	lockTTL      time.Duration
	lockWait     time.Duration
}

func NewUserLimiter(cfg config.Config, client redis.UniversalClient) (*UserLimiter, error) {
	if client == nil {
		return nil, nil
	}
	limitCfg := cfg.RateLimit
	policy := Bucket{Rate: limitCfg.UserRate, Burst: limitCfg.UserBurst}
	if limitCfg.Enabled {
		if err := policy.validate(); err != nil {
			return nil, err
		}
	}
	lockTTL := time.Duration(limitCfg.LockTTLSeconds) * time.Second
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &UserLimiter{
		bucket:       NewTokenBucket(client),
		locker:       NewLocker(client),
		limitEnabled: limitCfg.Enabled,
		policy:       policy,
		lockTTL:      lockTTL,
		lockWait:     2 * lockTTL,
	}, nil
}

func (l *UserLimiter) Enabled() bool {
	return l != nil && l.limitEnabled
}

// AllowUser takes a token from the user's bucket. A disabled limiter always allows.
func (l *UserLimiter) AllowUser(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Take(ctx, fmt.Sprintf(keyUserRecord, strings.TrimSpace(userID)), l.policy)
}

// LockUser blocks until the user's distributed lock is held and returns its release func.
func (l *UserLimiter) LockUser(ctx context.Context, userID string) (func(context.Context) error, error) {
	if l == nil || l.locker == nil {
		return func(context.Context) error { return nil }, nil
	}
	key := fmt.Sprintf(keyUserLock, strings.TrimSpace(userID))
	lease, err := l.locker.Wait(ctx, key, l.lockTTL, l.lockWait)
	if err != nil {
		return nil, err
	}
	return lease.Release, nil
}
