package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	mr, client := setupMiniredis(t)
	ctx := context.Background()

	type payload struct {
		Mobile string `json:"mobile"`
		Score  int    `json:"score"`
	}

	require.NoError(t, client.SetJSON(ctx, "kredmitra_user_9876543210", payload{"9876543210", 750}, time.Minute))
	assert.True(t, mr.Exists("kredmitra_user_9876543210"))
	assert.Equal(t, time.Minute, mr.TTL("kredmitra_user_9876543210"))

	var got payload
	require.NoError(t, client.GetJSON(ctx, "kredmitra_user_9876543210", &got))
	assert.Equal(t, 750, got.Score)

	require.NoError(t, client.Del(ctx, "kredmitra_user_9876543210"))
	assert.ErrorIs(t, client.GetJSON(ctx, "kredmitra_user_9876543210", &got), ErrCacheMiss)
}

func TestRedisClient_GetJSONDecodeError(t *testing.T) {
	mr, client := setupMiniredis(t)
	require.NoError(t, mr.Set("broken", "{not json"))

	var out map[string]any
	err := client.GetJSON(context.Background(), "broken", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode broken")
}

func TestRedisClient_Ping(t *testing.T) {
	_, client := setupMiniredis(t)
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRedisClient_Incr(t *testing.T) {
	mr, client := setupMiniredis(t)
	ctx := context.Background()

	n, err := client.Incr(ctx, "kredmitra_otp_attempts_9876543210", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 5*time.Minute, mr.TTL("kredmitra_otp_attempts_9876543210"))

	mr.FastForward(time.Minute)
	n, err = client.Incr(ctx, "kredmitra_otp_attempts_9876543210", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	// later increments keep the original window
	assert.Equal(t, 4*time.Minute, mr.TTL("kredmitra_otp_attempts_9876543210"))
}
