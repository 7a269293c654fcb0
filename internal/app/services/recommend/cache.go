package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stamp-ai/recommender/internal/app/domain/recommend"
	"github.com/stamp-ai/recommender/pkg/logger"
)

// RedisCache memoises recommendation responses in Redis. Cache failures are
// logged and treated as misses; the cache never blocks a recommendation.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

var _ ResponseCache = (*RedisCache)(nil)

// NewRedisCache constructs a cache with the given TTL (default one minute).
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = logger.NewDefault("recommend-cache")
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

// cacheKey derives a stable key from the full request so any change in the
// candidate lists or location produces a distinct entry.
func cacheKey(req recommend.Request) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("rec:%s:%s", req.UserID, hex.EncodeToString(sum[:16])), nil
}

func (c *RedisCache) Get(ctx context.Context, req recommend.Request) (recommend.Response, bool) {
	key, err := cacheKey(req)
	if err != nil {
		return recommend.Response{}, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("cache read failed")
		}
		return recommend.Response{}, false
	}
	var resp recommend.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.log.WithError(err).Warn("cache entry corrupt")
		return recommend.Response{}, false
	}
	return resp, true
}

func (c *RedisCache) Set(ctx context.Context, req recommend.Request, resp recommend.Response) {
	key, err := cacheKey(req)
	if err != nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
}
