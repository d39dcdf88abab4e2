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

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheWithClient(client), mr
}

func TestLoginProtection(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	ip := "10.0.0.1"

	t.Run("blocks after limit", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			blocked, err := c.RecordLoginFailure(ctx, ip, 3, time.Minute, 15*time.Minute)
			require.NoError(t, err)
			assert.False(t, blocked)
		}

		ttl, err := c.IsLoginBlocked(ctx, ip)
		require.NoError(t, err)
		assert.Zero(t, ttl)

		blocked, err := c.RecordLoginFailure(ctx, ip, 3, time.Minute, 15*time.Minute)
		require.NoError(t, err)
		assert.True(t, blocked)

		ttl, err = c.IsLoginBlocked(ctx, ip)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, ttl)
	})

	t.Run("block expires", func(t *testing.T) {
		mr.FastForward(16 * time.Minute)
		ttl, err := c.IsLoginBlocked(ctx, ip)
		require.NoError(t, err)
		assert.Zero(t, ttl)
	})

	t.Run("window resets counter", func(t *testing.T) {
		mr.FlushAll()
		_, err := c.RecordLoginFailure(ctx, ip, 2, time.Minute, time.Minute)
		require.NoError(t, err)
		mr.FastForward(2 * time.Minute)

		blocked, err := c.RecordLoginFailure(ctx, ip, 2, time.Minute, time.Minute)
		require.NoError(t, err)
		assert.False(t, blocked)
	})

	t.Run("clear on success", func(t *testing.T) {
		mr.FlushAll()
		_, err := c.RecordLoginFailure(ctx, ip, 2, time.Minute, time.Minute)
		require.NoError(t, err)
		require.NoError(t, c.ClearLoginFailures(ctx, ip))

		blocked, err := c.RecordLoginFailure(ctx, ip, 2, time.Minute, time.Minute)
		require.NoError(t, err)
		assert.False(t, blocked)
	})
}

func TestDeviceTokenRevocation(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	assert.False(t, c.IsDeviceTokenRevoked(ctx, "tid"))

	require.NoError(t, c.RevokeDeviceToken(ctx, "tid", time.Now().Add(time.Hour)))
	assert.True(t, c.IsDeviceTokenRevoked(ctx, "tid"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, c.IsDeviceTokenRevoked(ctx, "tid"))

	// 已过期的凭证无需写入
	require.NoError(t, c.RevokeDeviceToken(ctx, "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("device:revoked:old"))
}

func TestAccessEventPubSub(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	sub := c.SubscribeAccessEvents(ctx)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, c.PublishAccessEvent(ctx, map[string]string{"user_id": "bob"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, AccessEventChannel, msg.Channel)
	assert.JSONEq(t, `{"user_id":"bob"}`, msg.Payload)

	require.NoError(t, c.Ping(ctx))
}
