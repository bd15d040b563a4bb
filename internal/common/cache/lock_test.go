package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewLocker(client)
	ctx := context.Background()
	key := BuildKey(KeyPrefixRedemption, "SAVE10", "ORD-1")

	t.Run("互斥", func(t *testing.T) {
		token, ok, err := locker.Acquire(ctx, key, 30*time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEmpty(t, token)

		_, ok, err = locker.Acquire(ctx, key, 30*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, locker.Release(ctx, key, token))
		assert.False(t, s.Exists(key))
	})

	t.Run("令牌不匹配不释放", func(t *testing.T) {
		_, ok, err := locker.Acquire(ctx, key, 30*time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, locker.Release(ctx, key, "someone-else"))
		assert.True(t, s.Exists(key))
	})

	t.Run("过期后可重新加锁", func(t *testing.T) {
		s.FastForward(31 * time.Second)
		_, ok, err := locker.Acquire(ctx, key, 30*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
