package hydration

import (
	"context"

	"github.com/okuusi/hydromind/pkg/redis"
)

// redisKV adapts the Redis client to the key-value persistence contract the
// behavior log and model store depend on.
type redisKV struct {
	client redis.Client
}

// NewRedisKV wraps a Redis client as a key-value store.
func NewRedisKV(client redis.Client) *redisKV {
	return &redisKV{client: client}
}

// Load returns the stored value, or (nil, nil) when the key has never been
// written.
func (r *redisKV) Load(ctx context.Context, key string) ([]byte, error) {
	exists, err := r.client.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	val, err := r.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// Save stores the value without expiry.
func (r *redisKV) Save(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0)
}

// Delete removes the key.
func (r *redisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key)
}
