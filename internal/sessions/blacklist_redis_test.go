package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisBlacklist_RevokeAndExpire(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	bl := NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))

	ctx := context.Background()
	token := "access-token-1"
	require.NoError(t, bl.Revoke(ctx, token, 2*time.Second))

	ok, err := bl.IsRevoked(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)

	// the raw token never appears in a key
	require.False(t, m.Exists(blacklistPrefix+token))

	ok, err = bl.IsRevoked(ctx, "access-token-2")
	require.NoError(t, err)
	require.False(t, ok)

	// advance past TTL
	m.FastForward(3 * time.Second)

	ok2, err := bl.IsRevoked(ctx, token)
	require.NoError(t, err)
	require.False(t, ok2)
}

func TestRedisBlacklist_NonPositiveTTLStoresNothing(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	bl := NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	require.NoError(t, bl.Revoke(context.Background(), "stale", 0))
	require.Empty(t, m.Keys())
}

func TestRedisBlacklist_ServerDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	bl := NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1}))
	m.Close()

	_, err = bl.IsRevoked(context.Background(), "t")
	require.Error(t, err)
}

func TestBlacklist_NoClient_Noop(t *testing.T) {
	bl := NewBlacklist(nil)
	ctx := context.Background()
	token := "no-client-token"
	require.NoError(t, bl.Revoke(ctx, token, time.Second))
	ok, err := bl.IsRevoked(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)
}
