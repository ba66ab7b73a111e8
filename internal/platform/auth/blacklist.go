package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBlacklist keeps revoked token ids as expiring keys.
type RedisBlacklist struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisBlacklist(client redis.UniversalClient, prefix string) *RedisBlacklist {
	if prefix == "" {
		prefix = "token_blacklist"
	}
	return &RedisBlacklist{client: client, prefix: prefix}
}

func (b *RedisBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return b.client.SetNX(ctx, b.key(jti), 1, ttl).Result()
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	n, err := b.client.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *RedisBlacklist) key(jti string) string {
	return b.prefix + ":" + jti
}
