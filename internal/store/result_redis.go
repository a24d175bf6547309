package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/pdftoolkit/internal/storage"
)

// RedisResults implements storage.Results. It keeps finished documents as binary values with a TTL.
type RedisResults struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResults(c *redis.Client, ttl time.Duration) *RedisResults {
	return &RedisResults{client: c, ttl: ttl}
}

func (r *RedisResults) key(id string) string { return fmt.Sprintf("job:%s:result", id) }

func (r *RedisResults) Put(ctx context.Context, id string, data []byte) error {
	return r.client.Set(ctx, r.key(id), data, r.ttl).Err()
}

func (r *RedisResults) Get(ctx context.Context, id string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	return b, err
}
