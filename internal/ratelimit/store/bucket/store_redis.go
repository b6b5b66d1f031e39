package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"titlechain/internal/ratelimit"
)

const redisKeyPrefix = "titlechain:ratelimit:"

// allowScript trims the window, then admits cost entries when they fit.
// KEYS[1] bucket; ARGV: now_ms, window_ms, limit, cost, member prefix.
// Returns {allowed, count, oldest_ms}.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count + cost <= limit then
  for i = 1, cost do
    redis.call('ZADD', key, now, ARGV[5] .. ':' .. i)
  end
  count = count + cost
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if oldest[2] then oldestScore = tonumber(oldest[2]) end
return {allowed, count, oldestScore}
`)

// RedisStore implements ratelimit.BucketStore with a sorted set per key, so
// replicas share counts.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*ratelimit.Result, error) {
	now := s.now()
	res, err := allowScript.Run(ctx, s.client, []string{redisKeyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, cost, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check for %s: %w", key, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit check for %s: unexpected reply of %d values", key, len(res))
	}

	resetAt := time.UnixMilli(res[2]).Add(window)
	result := &ratelimit.Result{
		Allowed: res[0] == 1,
		Limit:   limit,
		ResetAt: resetAt,
	}
	if result.Allowed {
		result.Remaining = limit - int(res[1])
	} else {
		result.RetryAfter = ratelimit.RetryAfter(now, resetAt)
	}
	return result, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset rate limit %s: %w", key, err)
	}
	return nil
}

// Count returns the admitted requests currently inside window.
func (s *RedisStore) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	min := strconv.FormatInt(s.now().Add(-window).UnixMilli(), 10)
	n, err := s.client.ZCount(ctx, redisKeyPrefix+key, "("+min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count rate limit %s: %w", key, err)
	}
	return int(n), nil
}
