package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Queue is the remote queue backend: one redis list per queue name under a
// shared key prefix. Push appends with RPUSH and Pop removes with LPOP, so
// pop order equals push order.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Push(ctx context.Context, list, entry string) error {
	return q.client.RPush(ctx, q.key(list), entry).Err()
}

func (q *Queue) Pop(ctx context.Context, list string) (string, bool, error) {
	entry, err := q.client.LPop(ctx, q.key(list)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry, true, nil
}

func (q *Queue) Peek(ctx context.Context, list string) (string, bool, error) {
	entry, err := q.client.LIndex(ctx, q.key(list), 0).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry, true, nil
}

func (q *Queue) Len(ctx context.Context, list string) (int, error) {
	n, err := q.client.LLen(ctx, q.key(list)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (q *Queue) key(list string) string {
	return "classroom:queue:" + list
}
