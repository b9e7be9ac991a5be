// Package cache holds the Redis-backed stores used by the services.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizcraft-backend/internal/config"
	"github.com/stemsi/quizcraft-backend/internal/model"
)

// QuizCache stores complete quiz aggregates.
type QuizCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuizCache creates a QuizCache whose entries expire after ttl.
func NewQuizCache(rdb *redis.Client, ttl time.Duration) *QuizCache {
	return &QuizCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached aggregate, or nil on a miss.
func (c *QuizCache) Get(ctx context.Context, quizID uuid.UUID) (*model.QuizAggregate, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.QuizAggregateKey(quizID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quiz cache: %w", err)
	}
	return decodeAggregate(raw)
}

// Set stores an aggregate. Partial aggregates are rejected.
func (c *QuizCache) Set(ctx context.Context, agg *model.QuizAggregate) error {
	if agg.Partial {
		return errors.New("refusing to cache a partial aggregate")
	}
	raw, err := encodeAggregate(agg)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, config.CacheKey.QuizAggregateKey(agg.ID.String()), raw, c.ttl).Err()
}

// Invalidate drops the cached aggregate of a quiz.
func (c *QuizCache) Invalidate(ctx context.Context, quizID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.QuizAggregateKey(quizID.String())).Err()
}

// The API form of an answer key drops its type, so the cached form carries it explicitly.
type cachedAggregate struct {
	Quiz      model.Quiz       `json:"quiz"`
	Questions []cachedQuestion `json:"questions"`
}

type cachedQuestion struct {
	Question model.Question     `json:"question"`
	Options  []cachedOption     `json:"options"`
	KeyType  model.QuestionType `json:"key_type,omitempty"`
	Key      model.AnswerValue  `json:"key"`
}

type cachedOption struct {
	ID       uuid.UUID `json:"id"`
	OptionID string    `json:"option_id"`
	Text     string    `json:"text"`
	OrderNum int       `json:"order_num"`
}

func encodeAggregate(agg *model.QuizAggregate) ([]byte, error) {
	c := cachedAggregate{Quiz: agg.Quiz, Questions: make([]cachedQuestion, len(agg.Questions))}
	for i, q := range agg.Questions {
		cq := cachedQuestion{Question: q.Question, Options: make([]cachedOption, len(q.Options))}
		for j, o := range q.Options {
			cq.Options[j] = cachedOption{ID: o.ID, OptionID: o.OptionID, Text: o.Text, OrderNum: o.OrderNum}
		}
		if q.CorrectAnswer != nil {
			cq.KeyType = q.CorrectAnswer.Type
			cq.Key = q.CorrectAnswer.Value
		}
		c.Questions[i] = cq
	}
	return json.Marshal(c)
}

func decodeAggregate(raw []byte) (*model.QuizAggregate, error) {
	var c cachedAggregate
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode quiz cache: %w", err)
	}

	agg := &model.QuizAggregate{Quiz: c.Quiz, Questions: make([]model.QuestionDetail, len(c.Questions))}
	for i, cq := range c.Questions {
		d := model.QuestionDetail{Question: cq.Question, Options: make([]model.Option, len(cq.Options))}
		for j, o := range cq.Options {
			d.Options[j] = model.Option{ID: o.ID, QuestionID: cq.Question.ID, OptionID: o.OptionID, Text: o.Text, OrderNum: o.OrderNum}
		}
		if cq.KeyType != "" {
			d.CorrectAnswer = &model.AnswerKey{Type: cq.KeyType, Value: cq.Key}
		}
		agg.Questions[i] = d
	}
	return agg, nil
}
