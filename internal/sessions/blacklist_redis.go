package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:access:"

// Blacklist records revoked access tokens until they would have expired anyway.
type Blacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// NewBlacklist returns a Redis-backed Blacklist, or a no-op one when c is nil.
func NewBlacklist(c *redis.Client) Blacklist {
	if c == nil {
		return noopBlacklist{}
	}
	return &RedisBlacklist{client: c}
}

// RedisBlacklist stores revoked tokens as keys with a TTL.
type RedisBlacklist struct {
	client *redis.Client
}

func key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistPrefix + hex.EncodeToString(sum[:])
}

// Revoke stores the token for ttl. A non-positive ttl means the token is already
// expired and nothing is stored.
func (b *RedisBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, key(token), "1", ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, key(token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

type noopBlacklist struct{}

func (noopBlacklist) Revoke(context.Context, string, time.Duration) error { return nil }

func (noopBlacklist) IsRevoked(context.Context, string) (bool, error) { return false, nil }
