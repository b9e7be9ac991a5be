package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizcraft-backend/internal/config"
)

// ErrNoSession is returned when a user has no stored login session.
var ErrNoSession = errors.New("no active session")

// SessionStore keeps the token id of each user's current login.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Save records jti as the user's active session for ttl.
func (s *SessionStore) Save(ctx context.Context, userID, jti string, ttl time.Duration) error {
	return s.rdb.Set(ctx, config.CacheKey.UserSessionKey(userID), jti, ttl).Err()
}

// Get returns the active jti of a user.
func (s *SessionStore) Get(ctx context.Context, userID string) (string, error) {
	jti, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	return jti, err
}

// Delete ends the user's session.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, config.CacheKey.UserSessionKey(userID)).Err()
}
