package intake

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned when a client sent too many submissions.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateKeyPrefix namespaces submission counters.
const RateKeyPrefix = "rate:anfrage:"

// Limiter decides whether a client may submit again.
type Limiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter allows perHour attempts per client and clock hour.
type RedisLimiter struct {
	client  redisRateCounter
	prefix  string
	perHour int
	now     func() time.Time
}

// NewRedisLimiter counts under keys "<prefix><client>:<YYYYMMDDHH>".
func NewRedisLimiter(client redisRateCounter, prefix string, perHour int) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, perHour: perHour, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, client string) (bool, error) {
	if l.perHour <= 0 {
		return true, nil
	}
	key := l.prefix + client + ":" + l.now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, l.client, key, time.Hour)
	if err != nil {
		return false, err
	}
	return count <= int64(l.perHour), nil
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
