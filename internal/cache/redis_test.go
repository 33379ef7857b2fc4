package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/jason-s-yu/cardduel/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRedis needs a reachable server (REDIS_ADDR or localhost:6379).
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rdb, err := ConnectRedis(ctx, addr, 0)
	if err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestPublisherPushesRecord(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	queue := "test_" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(context.Background(), queue) })

	p := NewPublisher(rdb, queue)
	rec := models.DuelEventRecord{
		SessionID:     "abc",
		ActionIndex:   1,
		Seat:          models.SeatPlayer1,
		ActionType:    "draw",
		ActionPayload: map[string]interface{}{"count": 1},
		Timestamp:     time.Now().UnixMilli(),
	}
	require.NoError(t, p.Publish(ctx, rec))

	raw, err := rdb.LPop(ctx, queue).Bytes()
	require.NoError(t, err)
	var got models.DuelEventRecord
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, "draw", got.ActionType)
}

func TestKVRoundTrip(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	prefix := "test:" + uuid.NewString() + ":"
	kv := NewKV(rdb, prefix)
	t.Cleanup(func() { rdb.Del(context.Background(), prefix+store.CoinBankKey) })

	_, err := kv.Load(ctx, store.CoinBankKey)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, kv.Save(ctx, store.CoinBankKey, []byte(`{"A":10}`)))
	got, err := kv.Load(ctx, store.CoinBankKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":10}`, string(got))
}

func TestConsumerPopsInOrder(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	queue := "test_" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(context.Background(), queue) })

	p := NewPublisher(rdb, queue)
	c := NewConsumer(rdb, queue)
	for i := 1; i <= 2; i++ {
		require.NoError(t, p.Publish(ctx, models.DuelEventRecord{SessionID: "abc", ActionIndex: i, ActionType: "draw"}))
	}

	for i := 1; i <= 2; i++ {
		rec, ok, err := c.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, rec.ActionIndex)
	}

	_, ok, err := c.Pop(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "empty queue times out")
}
