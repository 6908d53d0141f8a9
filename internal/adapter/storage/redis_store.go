package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	saleRequestKeyPrefix = "sale:req:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// RedisStore is the gateway's duplicate-request gate. Keys expire after a
// day; within that window a resubmitted request ID is rejected before it
// reaches the engine.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, saleRequestKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisStore) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, saleRequestKeyPrefix+key).Err()
}
