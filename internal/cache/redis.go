// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/jason-s-yu/cardduel/internal/store"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for duel event records.
const DefaultQueueName = "cardduel_events"

// ConnectRedis creates a client for addr/db and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher pushes duel event records onto the historian queue.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// Publish serializes the record to JSON, then pushes it to the Redis queue.
func (p *Publisher) Publish(ctx context.Context, record models.DuelEventRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal DuelEventRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// Consumer pops duel event records off the historian queue.
type Consumer struct {
	rdb   *redis.Client
	queue string
}

func NewConsumer(rdb *redis.Client, queue string) *Consumer {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Consumer{rdb: rdb, queue: queue}
}

// Pop blocks up to timeout for the next record. ok is false when the queue
// stayed empty. Redis cannot block for less than a second.
func (c *Consumer) Pop(ctx context.Context, timeout time.Duration) (models.DuelEventRecord, bool, error) {
	if timeout < time.Second {
		timeout = time.Second
	}
	res, err := c.rdb.BLPop(ctx, timeout, c.queue).Result()
	if errors.Is(err, redis.Nil) {
		return models.DuelEventRecord{}, false, nil
	}
	if err != nil {
		return models.DuelEventRecord{}, false, fmt.Errorf("BLPop %s: %w", c.queue, err)
	}
	// res[0] is the queue name, res[1] the payload.
	if len(res) < 2 {
		return models.DuelEventRecord{}, false, nil
	}
	var rec models.DuelEventRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return models.DuelEventRecord{}, false, fmt.Errorf("invalid duel event record: %w", err)
	}
	return rec, true, nil
}

// KV is a store.Gateway over plain Redis strings.
type KV struct {
	rdb    *redis.Client
	prefix string
}

func NewKV(rdb *redis.Client, prefix string) *KV {
	return &KV{rdb: rdb, prefix: prefix}
}

func (k *KV) Load(ctx context.Context, key string) ([]byte, error) {
	v, err := k.rdb.Get(ctx, k.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (k *KV) Save(ctx context.Context, key string, value []byte) error {
	if err := k.rdb.Set(ctx, k.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
