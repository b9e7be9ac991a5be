package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizcraft-backend/internal/config"
)

// DeadlineQueue is a sorted set of open attempts scored by their deadline (unix seconds).
type DeadlineQueue struct {
	rdb *redis.Client
}

func NewDeadlineQueue(rdb *redis.Client) *DeadlineQueue {
	return &DeadlineQueue{rdb: rdb}
}

// Schedule registers or moves the deadline of an attempt.
func (q *DeadlineQueue) Schedule(ctx context.Context, attemptID uuid.UUID, deadline time.Time) error {
	return q.rdb.ZAdd(ctx, config.WorkerKey.AttemptDeadlines, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: attemptID.String(),
	}).Err()
}

// Due returns up to limit attempts whose deadline is at or before now.
func (q *DeadlineQueue) Due(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	members, err := q.rdb.ZRangeByScore(ctx, config.WorkerKey.AttemptDeadlines, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			// Unparseable members would otherwise block the head of the queue forever.
			q.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlines, m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Remove drops an attempt from the queue.
func (q *DeadlineQueue) Remove(ctx context.Context, attemptID uuid.UUID) error {
	return q.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlines, attemptID.String()).Err()
}
