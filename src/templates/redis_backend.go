package templates

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash that holds the templates.
const DefaultRedisKey = "inbox:prompt_templates"

// RedisBackend stores the mapping as a single Redis hash.
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(ctx context.Context, opts *redis.Options, key string) (*RedisBackend, error) {
	if key == "" {
		key = DefaultRedisKey
	}
	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &RedisBackend{client: client, key: key}, nil
}

func (b *RedisBackend) Load(ctx context.Context) (map[string]string, error) {
	out, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoSnapshot
	}
	return out, nil
}

func (b *RedisBackend) Save(ctx context.Context, snapshot map[string]string, changed string) error {
	entries := entriesToWrite(snapshot, changed)
	values := make(map[string]any, len(entries))
	for category, body := range entries {
		values[category] = body
	}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.key, values)
		return nil
	})
	return err
}

func (b *RedisBackend) Close() error { return b.client.Close() }
