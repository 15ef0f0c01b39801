package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeScript refills the bucket from the Redis clock, takes one token when
// available and reports the wait in milliseconds until the next token.
const takeScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now
if now > last then
  tokens = math.min(burst, tokens + (now - last) * rate / 1000)
end

local granted = 0
local wait = 0
if tokens >= 1 then
  granted = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {granted, math.floor(tokens), wait}
`

var (
	ErrNotConfigured = errors.New("rate_limiter_not_configured")
	ErrInvalidRule   = errors.New("rate_limiter_invalid_rule")
)

// Rule is a refill rate in tokens per second and a bucket capacity.
type Rule struct {
	Rate  float64
	Burst int
}

func (r Rule) validate() error {
	if r.Rate <= 0 || r.Burst <= 0 {
		return ErrInvalidRule
	}
	return nil
}

// ttl keeps an idle bucket around for twice its full refill time.
func (r Rule) ttl() time.Duration {
	if r.validate() != nil {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(r.Burst)/r.Rate*2))
	return time.Duration(seconds) * time.Second
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Bucket is a token bucket kept in Redis so every replica shares one budget
// per key.
type Bucket struct {
	client *redis.Client
	script *redis.Script
}

func NewBucket(client *redis.Client) *Bucket {
	if client == nil {
		return nil
	}
	return &Bucket{client: client, script: redis.NewScript(takeScript)}
}

func (b *Bucket) Take(ctx context.Context, key string, rule Rule) (Decision, error) {
	if b == nil || b.client == nil {
		return Decision{}, ErrNotConfigured
	}
	if key == "" {
		return Decision{}, fmt.Errorf("%w: empty key", ErrInvalidRule)
	}
	if err := rule.validate(); err != nil {
		return Decision{}, err
	}

	vals, err := b.script.Run(ctx, b.client, []string{key},
		rule.Rate, rule.Burst, rule.ttl().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	return decode(vals)
}

func decode(vals []int64) (Decision, error) {
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("rate limiter: unexpected reply of %d values", len(vals))
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}
