package availability

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"bed-booking-service/internal/module/booking/models/entity"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "availability:bed:"

func Key(bedID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, bedID)
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, bedID int64) ([]entity.Interval, bool, error) {
	data, err := c.client.Get(ctx, Key(bedID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var intervals []entity.Interval
	if err := json.Unmarshal(data, &intervals); err != nil {
		return nil, false, err
	}
	return intervals, true, nil
}

func (c *RedisCache) Set(ctx context.Context, bedID int64, intervals []entity.Interval) error {
	data, err := json.Marshal(intervals)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(bedID), data, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, bedID int64) error {
	return c.client.Del(ctx, Key(bedID)).Err()
}
