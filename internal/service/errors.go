package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors.
var (
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrNotQuizCreator    = errors.New("not the creator of this quiz")
	ErrQuizNotVisible    = errors.New("quiz is private")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrNotAttemptOwner   = errors.New("attempt belongs to another user")
	ErrAttemptCompleted  = errors.New("attempt is already complete")
	ErrQuestionNotInQuiz = errors.New("question does not belong to this quiz")
	ErrSubjectExists     = errors.New("subject already exists")
)

// ValidationError maps request fields to human-readable problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records the first problem found for a field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// OrNil returns e when it holds at least one problem.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
