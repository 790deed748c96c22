package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const rateLimitKeyPrefix = "ratelimit"

// RateLimitRedisRepository implements rate limiting counter storage with Redis.
type RateLimitRedisRepository struct {
	r redis.Cmdable
}

func NewRateLimitRedisRepository(r redis.Cmdable) *RateLimitRedisRepository {
	return &RateLimitRedisRepository{r: r}
}

// IncrementWindow increments the (route, fingerprint) counter for the
// current fixed window. INCR and EXPIRE run in one MULTI/EXEC pipeline so
// the count returned is the count this request observed; there is no
// separate read-then-write that could race under concurrency.
func (repo *RateLimitRedisRepository) IncrementWindow(ctx context.Context, route, fingerprint string, window time.Duration, ttl time.Duration) (int, time.Time, error) {
	now := time.Now()
	windowStart := now.Truncate(window)
	key := fmt.Sprintf("%s:%s:%s:%d", rateLimitKeyPrefix, route, fingerprint, windowStart.Unix())
	pipe := repo.r.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, windowStart, err
	}
	return int(incr.Val()), windowStart, nil
}
