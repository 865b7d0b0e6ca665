package bus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Dequeue when no message arrived within the
// poll timeout.
var ErrQueueEmpty = errors.New("queue empty")

// QueueMessage carries a payload plus a delivery counter so consumers can
// route poison messages to the dead-letter queue.
type QueueMessage struct {
	ID         string          `json:"id"`
	Body       json.RawMessage `json:"body"`
	Deliveries int             `json:"deliveries"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Queue is a simple at-least-once work queue.
type Queue interface {
	Enqueue(ctx context.Context, queue string, body any) error
	Dequeue(ctx context.Context, queue string, timeout time.Duration) (*QueueMessage, error)
	Requeue(ctx context.Context, queue string, msg *QueueMessage) error
	DeadLetter(ctx context.Context, dlq string, msg *QueueMessage) error
}

type redisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a list-backed queue.
func NewRedisQueue(client *redis.Client) Queue {
	return &redisQueue{client: client}
}

func (q *redisQueue) Enqueue(ctx context.Context, queue string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	msg := QueueMessage{
		ID:         newMessageID(),
		Body:       raw,
		Deliveries: 0,
		EnqueuedAt: time.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, queue, payload).Err()
}

// Dequeue blocks up to timeout and increments the delivery counter on the
// returned message.
func (q *redisQueue) Dequeue(ctx context.Context, queue string, timeout time.Duration) (*QueueMessage, error) {
	res, err := q.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, err
	}
	// BRPop returns [key, value]
	if len(res) != 2 {
		return nil, ErrQueueEmpty
	}
	var msg QueueMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, err
	}
	msg.Deliveries++
	return &msg, nil
}

func (q *redisQueue) Requeue(ctx context.Context, queue string, msg *QueueMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, queue, payload).Err()
}

func (q *redisQueue) DeadLetter(ctx context.Context, dlq string, msg *QueueMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, dlq, payload).Err()
}
