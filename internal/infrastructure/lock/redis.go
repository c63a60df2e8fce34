package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	idgen "github.com/allanhy/tallysight-sub000/internal/platform/id"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker guards runs across replicas sharing one Redis.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ids    idgen.Generator
}

func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "tallysight:lock:"
	}
	return &RedisLocker{client: client, prefix: prefix, ids: idgen.NewPrefixedGenerator("lease")}
}

// NewRedisClient builds a client from a redis:// or rediss:// URL and pings it.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token, err := l.ids.NewID()
	if err != nil {
		return noopRelease, false, err
	}

	fullKey := l.prefix + key
	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return noopRelease, false, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return noopRelease, false, nil
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		return nil
	}, true, nil
}
