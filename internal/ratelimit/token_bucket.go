package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var ErrInvalidBucket = errors.New("invalid_rate_limit_bucket")

// Refills the hash at KEYS[1] from Redis TIME, takes one token when
// available and replies {allowed, whole tokens left, retry ms, now ms}.
// Only integers cross the wire; fractional tokens stay inside the hash.
var takeScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now
local elapsed = math.max(0, now - last)
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
local retry = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return {allowed, math.floor(tokens), retry, now}
`)

// Bucket is a refill policy: at most Burst tokens, Rate tokens per second.
type Bucket struct {
	Rate  float64
	Burst int
}

func (b Bucket) validate() error {
	if b.Rate <= 0 || math.IsInf(b.Rate, 0) || math.IsNaN(b.Rate) || b.Burst <= 0 {
		return fmt.Errorf("%w: rate=%v burst=%d", ErrInvalidBucket, b.Rate, b.Burst)
	}
	return nil
}

// idleTTL is twice the time a drained bucket takes to refill; an idle key
// past that point is indistinguishable from a fresh one.
func (b Bucket) idleTTL() time.Duration {
	return max(time.Second, time.Duration(2*float64(b.Burst)/b.Rate*float64(time.Second)).Round(time.Second))
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// TokenBucket keeps bucket state in Redis so every instance shares it.
type TokenBucket struct {
	client redis.UniversalClient
}

func NewTokenBucket(client redis.UniversalClient) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

// Take spends one token from the bucket stored at key.
func (t *TokenBucket) Take(ctx context.Context, key string, b Bucket) (*RateLimitResult, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidBucket)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	reply, err := takeScript.Run(ctx, t.client, []string{key}, b.Rate, b.Burst, b.idleTTL().Milliseconds()).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(reply) != 4 {
		return nil, fmt.Errorf("token bucket: unexpected reply %v", reply)
	}

	retry := time.Duration(reply[2]) * time.Millisecond
	return &RateLimitResult{
		Allowed:    reply[0] == 1,
		Limit:      b.Burst,
		Remaining:  int(reply[1]),
		ResetTime:  time.UnixMilli(reply[3]).Add(retry),
		RetryAfter: retry,
	}, nil
}
