package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL is how long a cached pair lives when no TTL is configured.
const DefaultRedisTTL = 30 * 24 * time.Hour

type redisDistance struct {
	Meters  int `json:"m"`
	Seconds int `json:"s"`
}

// RedisDistanceCache stores distance results as JSON strings under
// "<prefix><origin>|<destination>" with a TTL.
type RedisDistanceCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisDistanceCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisDistanceCache {
	if prefix == "" {
		prefix = "dist:"
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisDistanceCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisDistanceCache) key(p ports.DistancePair) string {
	return c.prefix + p.Origin + "|" + p.Destination
}

func (c *RedisDistanceCache) GetMany(
	ctx context.Context,
	pairs []ports.DistancePair,
) (_ map[ports.DistancePair]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.redis.GetMany")(&err)

	if c.client == nil {
		return nil, errors.New("distance cache: redis client is nil")
	}

	origins, destinations := uniquePairs(pairs)
	out := make(map[ports.DistancePair]ports.DistanceResult, len(origins))
	if len(origins) == 0 {
		return out, nil
	}

	keys := make([]string, len(origins))
	for i := range origins {
		keys[i] = c.key(ports.DistancePair{Origin: origins[i], Destination: destinations[i]})
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get distance cache: mget: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var d redisDistance
		if err := json.Unmarshal([]byte(s), &d); err != nil {
			// A corrupt entry is a miss; the next write replaces it.
			continue
		}
		out[ports.DistancePair{Origin: origins[i], Destination: destinations[i]}] = ports.DistanceResult{
			DistanceMeters:  d.Meters,
			DurationSeconds: d.Seconds,
		}
	}

	return out, nil
}

func (c *RedisDistanceCache) PutMany(
	ctx context.Context,
	results map[ports.DistancePair]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.cache.redis.PutMany")(&err)

	if c.client == nil {
		return errors.New("distance cache: redis client is nil")
	}
	if len(results) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for p, r := range results {
		if err := validPair(p); err != nil {
			return fmt.Errorf("insert distance cache: %w", err)
		}
		data, err := json.Marshal(redisDistance{Meters: r.DistanceMeters, Seconds: r.DurationSeconds})
		if err != nil {
			return fmt.Errorf("insert distance cache: marshal: %w", err)
		}
		pipe.Set(ctx, c.key(p), data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert distance cache: pipeline: %w", err)
	}
	return nil
}
