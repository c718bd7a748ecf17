package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"recipe-digest/internal/domain"
	"recipe-digest/internal/infra/metrics"
)

// RedisRunQueue реализует очередь запусков на базе Redis lists.
// Взятая задача лежит в списке <key>:processing до подтверждения.
type RedisRunQueue struct {
	client     *redis.Client
	key        string
	processing string
}

var _ domain.RunQueue = (*RedisRunQueue)(nil)

// NewRedisRunQueue создаёт очередь по указанному ключу.
func NewRedisRunQueue(client *redis.Client, key string) *RedisRunQueue {
	return &RedisRunQueue{client: client, key: key, processing: key + ":processing"}
}

// Enqueue публикует задачу в очередь.
func (q *RedisRunQueue) Enqueue(ctx context.Context, job domain.RunJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди.
func (q *RedisRunQueue) Receive(ctx context.Context) (domain.RunJob, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.RunJob{}, nil, err
		}

		payload, err := q.client.BLMove(ctx, q.key, q.processing, "RIGHT", "LEFT", time.Second).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.RunJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.RunJob{}, nil, err
		}

		var job domain.RunJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			// битое сообщение не должно блокировать очередь
			_ = q.client.LRem(context.Background(), q.processing, 1, payload).Err()
			return domain.RunJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		return job, q.ack(payload), nil
	}
}

func (q *RedisRunQueue) ack(payload string) domain.AckFunc {
	return func(success bool) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, q.processing, 1, payload)
			if !success {
				pipe.LPush(ctx, q.key, payload)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("ack job: %w", err)
		}
		return nil
	}
}
