package trigger

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultQueueKey = "iffy:stylize"

// Redis pushes ids onto a list that cmd/worker drains with BRPOP.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultQueueKey
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Fire(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := r.client.LPush(ctx, r.key, id).Err(); err != nil {
		return wrap("redis", err)
	}
	return nil
}

// RedisQueue is the consuming side of Redis.
type RedisQueue struct {
	client *redis.Client
	key    string
	wait   time.Duration
}

func NewRedisQueue(client *redis.Client, key string, wait time.Duration) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisQueue{client: client, key: key, wait: wait}
}

// Next blocks up to the configured wait. It returns "" and no error when the
// wait elapsed without a job.
func (q *RedisQueue) Next(ctx context.Context) (string, error) {
	res, err := q.client.BRPop(ctx, q.wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", wrap("redis", err)
	}
	// BRPOP answers [key, value].
	if len(res) != 2 {
		return "", nil
	}
	return res[1], nil
}

func (q *RedisQueue) Close() error { return nil }
