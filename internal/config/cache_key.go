package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding the active token ID of a user.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// QuizAggregateKey returns the cache key for a fully assembled quiz (questions, options, keys).
func (r *CacheKeyStruct) QuizAggregateKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:aggregate", quizID)
}

var CacheKey = NewCacheKeyStruct()
