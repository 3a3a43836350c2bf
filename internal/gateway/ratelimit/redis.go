package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// incrScript increments the counter and opens the window on the first
// hit. It returns {count, pttl}. A key that lost its TTL gets a new one.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// DefaultRedisPrefix namespaces the counter keys.
const DefaultRedisPrefix = "elly:rl:"

// RedisStore keeps counters in Redis so several processes share them.
type RedisStore struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a RedisStore. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// Incr implements Store.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (Window, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("ratelimit: redis incr: unexpected reply %v", res)
	}
	return Window{
		Count:   res[0],
		ResetAt: s.now().Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}

// ConnectRedis parses url, connects and pings with exponential backoff.
func ConnectRedis(ctx context.Context, url string, retries uint64, log logger.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis url: %w", err)
	}
	client := redis.NewClient(opts)

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	err = backoff.RetryNotify(func() error {
		return client.Ping(ctx).Err()
	}, policy, func(err error, wait time.Duration) {
		log.Warn("redis ping failed, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: redis ping: %w", err)
	}
	return client, nil
}
