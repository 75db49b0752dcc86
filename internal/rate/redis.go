package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkScript runs both dimensions atomically. It returns {0, 0} when admitted,
// or {dimension, pttl} where dimension is 1 for IP and 2 for install.
var checkScript = redis.NewScript(`
local function hit(key, limit, window)
  local count = tonumber(redis.call('GET', key) or '0')
  if count >= limit then
    local ttl = redis.call('PTTL', key)
    if ttl >= 0 then
      return ttl
    end
    redis.call('SET', key, 1, 'PX', window)
    return -1
  end
  if redis.call('INCR', key) == 1 then
    redis.call('PEXPIRE', key, window)
  end
  return -1
end

local window = tonumber(ARGV[3])
local ttl = hit(KEYS[1], tonumber(ARGV[1]), window)
if ttl >= 0 then
  return {1, ttl}
end
ttl = hit(KEYS[2], tonumber(ARGV[2]), window)
if ttl >= 0 then
  return {2, ttl}
end
return {0, 0}
`)

// RedisLimiter keeps fixed windows in Redis so every instance shares them.
// Window start and expiry follow the Redis server clock.
type RedisLimiter struct {
	redis redis.UniversalClient
	cfg   Config
}

// NewRedis returns a limiter backed by client.
func NewRedis(client redis.UniversalClient, cfg Config) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis limiter requires a client")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Prefix == "" {
		return nil, errors.New("redis limiter requires a key prefix")
	}
	return &RedisLimiter{redis: client, cfg: cfg}, nil
}

// Check applies the IP limit and then the install limit in one script call.
func (l *RedisLimiter) Check(ctx context.Context, clientIP, installID string) error {
	keys := []string{ipKey(l.cfg.Prefix, clientIP), installKey(l.cfg.Prefix, installID)}
	res, err := checkScript.Run(ctx, l.redis, keys, l.cfg.PerIP, l.cfg.PerInstall, l.cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return unavailable(err)
	}
	if len(res) != 2 {
		return unavailable(fmt.Errorf("unexpected script reply length %d", len(res)))
	}

	remaining := time.Duration(res[1]) * time.Millisecond
	switch res[0] {
	case 0:
		return nil
	case 1:
		return &ExceededError{Dimension: DimensionIP, RetryAfter: remaining}
	case 2:
		return &ExceededError{Dimension: DimensionInstall, RetryAfter: remaining}
	default:
		return unavailable(fmt.Errorf("unexpected script dimension %d", res[0]))
	}
}
