package grant

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/redis/go-redis/v9"
)

const cacheNamespace = "access:grants"

// RedisCache keeps resolved grants under access:grants:<userID>.
type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(userID int64) string {
	return cacheNamespace + ":" + strconv.FormatInt(userID, 10)
}

func (c *RedisCache) Get(ctx context.Context, userID int64) ([]access.GrantRecord, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var records []access.GrantRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID int64, records []access.GrantRecord, ttl time.Duration) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(userID), raw, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, cacheKey(userID)).Err()
}
