package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/repository"
)

// QuizStore is the persistence surface of the quiz aggregate.
// *repository.QuizRepository implements it.
type QuizStore interface {
	WriteAggregate(ctx context.Context, fn func(w repository.AggregateWriter) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error)
	ListOptions(ctx context.Context, questionID uuid.UUID) ([]model.Option, error)
	GetAnswerKey(ctx context.Context, questionID uuid.UUID, qType model.QuestionType) (model.AnswerKey, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Quiz, error)
	ListPublic(ctx context.Context, limit, offset int) ([]model.Quiz, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AttemptStore is implemented by *repository.AttemptRepository.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	UpsertAnswer(ctx context.Context, ans *model.SubmittedAnswer) error
	Complete(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerReview, error)
	ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.AttemptSummary, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.LearnerAttempt, error)
	ListOpenWithDeadline(ctx context.Context) ([]model.Attempt, error)
}

// UserStore is implemented by *repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// SubjectStore is implemented by *repository.SubjectRepository.
type SubjectStore interface {
	Create(ctx context.Context, s *model.Subject) error
	GetAll(ctx context.Context) ([]model.Subject, error)
}

// QuizCache is implemented by *cache.QuizCache. Get returns nil on a miss.
type QuizCache interface {
	Get(ctx context.Context, quizID uuid.UUID) (*model.QuizAggregate, error)
	Set(ctx context.Context, agg *model.QuizAggregate) error
	Invalidate(ctx context.Context, quizID uuid.UUID) error
}

// DeadlineQueue is implemented by *cache.DeadlineQueue.
type DeadlineQueue interface {
	Schedule(ctx context.Context, attemptID uuid.UUID, deadline time.Time) error
	Due(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error)
	Remove(ctx context.Context, attemptID uuid.UUID) error
}

// SessionStore is implemented by *cache.SessionStore.
type SessionStore interface {
	Save(ctx context.Context, userID, jti string, ttl time.Duration) error
	Get(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, userID string) error
}
