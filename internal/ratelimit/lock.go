package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Deletes KEYS[1] only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var (
	ErrLockTimeout  = errors.New("lock_timeout")
	ErrLockArgument = errors.New("invalid_lock_argument")
)

// Locker hands out single-instance Redis leases (SET NX PX plus an owner token).
type Locker struct {
	client redis.UniversalClient
	poll   time.Duration
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	client redis.UniversalClient
	key    string
	token  string
}

// NewLocker returns nil when Redis is not configured; callers treat a nil
// Locker as "no cross-process locking".
func NewLocker(client redis.UniversalClient) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, poll: 10 * time.Millisecond}
}

// Acquire makes one attempt. A nil lease with a nil error means another
// holder owns key.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if key == "" || ttl <= 0 {
		return nil, ErrLockArgument
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, err
	}
	return &Lease{client: l.client, key: key, token: token}, nil
}

// Wait polls Acquire until the lease is granted or wait elapses.
func (l *Locker) Wait(ctx context.Context, key string, ttl, wait time.Duration) (*Lease, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		lease, err := l.Acquire(ctx, key, ttl)
		if err != nil || lease != nil {
			return lease, err
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.token == "" {
		return nil
	}
	err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
	if err == nil {
		l.token = ""
	}
	return err
}
