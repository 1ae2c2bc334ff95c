// Package reconcile provides the durable queue of reservation release jobs.
// A release that fails inline during checkout compensation is parked here and
// retried out of band until it succeeds or exhausts its attempt budget.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/dtos"
)

// DefaultQueueKey is the Redis list the services share.
const DefaultQueueKey = "checkout:release_queue"

type Queue interface {
	Enqueue(ctx context.Context, job dtos.ReleaseTicketDto) error
	// Dequeue blocks up to timeout for the next job. The second return value
	// is false when the queue stayed empty.
	Dequeue(ctx context.Context, timeout time.Duration) (dtos.ReleaseTicketDto, bool, error)
	// Size reports the number of parked jobs, for metrics.
	Size(ctx context.Context) (int64, error)
}

type RedisQueue struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

func NewRedisQueue(logger *zap.Logger, client *redis.Client, key string) Queue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key, logger: logger}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job dtos.ReleaseTicketDto) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err = q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("release job parked for reconciliation",
		zap.String(pkg.Ticket, job.Ticket),
		zap.String(pkg.Sku, job.Sku),
		zap.Int("attempts", job.Attempts),
	)
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (dtos.ReleaseTicketDto, bool, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return dtos.ReleaseTicketDto{}, false, nil
	}
	if err != nil {
		return dtos.ReleaseTicketDto{}, false, err
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return dtos.ReleaseTicketDto{}, false, errors.New("unexpected brpop reply")
	}
	var job dtos.ReleaseTicketDto
	if err = json.Unmarshal([]byte(res[1]), &job); err != nil {
		return dtos.ReleaseTicketDto{}, false, err
	}
	return job, true, nil
}

func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
