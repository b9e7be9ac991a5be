package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/grading"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/repository"
)

// QuizReader loads quiz aggregates. *QuizService implements it.
type QuizReader interface {
	Get(ctx context.Context, quizID uuid.UUID) (*model.QuizAggregate, error)
}

// AttemptService drives an attempt from start to completion and grades each answer.
type AttemptService struct {
	attempts  AttemptStore
	quizzes   QuizReader
	deadlines DeadlineQueue
	now       func() time.Time
	log       zerolog.Logger
}

// NewAttemptService creates a new AttemptService. deadlines may be nil, in which
// case timed attempts are only closed by their owner or the timer stream.
func NewAttemptService(attempts AttemptStore, quizzes QuizReader, deadlines DeadlineQueue, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		quizzes:   quizzes,
		deadlines: deadlines,
		now:       time.Now,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start opens a new attempt of userID on quizID.
func (s *AttemptService) Start(ctx context.Context, quizID, userID uuid.UUID) (*model.Attempt, error) {
	agg, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !agg.VisibleTo(userID) {
		return nil, ErrQuizNotVisible
	}

	a := &model.Attempt{QuizID: quizID, UserID: userID}
	if err := s.attempts.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	a.ExpiresAt = a.Deadline(agg.TimeLimit)
	if a.ExpiresAt != nil && s.deadlines != nil {
		if err := s.deadlines.Schedule(ctx, a.ID, *a.ExpiresAt); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to schedule attempt deadline")
		}
	}

	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("quiz_id", quizID.String()).
		Str("user_id", userID.String()).
		Msg("Attempt started")
	return a, nil
}

// Get returns an attempt owned by userID with its deadline filled in.
func (s *AttemptService) Get(ctx context.Context, attemptID, userID uuid.UUID) (*model.Attempt, error) {
	a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	agg, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}
	a.ExpiresAt = a.Deadline(agg.TimeLimit)
	return a, nil
}

// SubmitAnswer grades value against the question's key and stores it. Answering the
// same question again replaces the earlier answer.
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptID, userID, questionID uuid.UUID, value model.AnswerValue) (*model.SubmittedAnswer, error) {
	a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if a.IsComplete {
		return nil, ErrAttemptCompleted
	}

	agg, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}

	if deadline := a.Deadline(agg.TimeLimit); deadline != nil && s.now().After(*deadline) {
		if _, err := s.Expire(ctx, a.ID); err != nil {
			s.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to expire overdue attempt")
		}
		return nil, ErrAttemptCompleted
	}

	q := findQuestion(agg, questionID)
	if q == nil {
		return nil, ErrQuestionNotInQuiz
	}
	if q.CorrectAnswer == nil {
		return nil, fmt.Errorf("answer key of question %s is unavailable", questionID)
	}

	result := grading.Evaluate(q.Type, *q.CorrectAnswer, value, q.Points)
	ans := &model.SubmittedAnswer{
		AttemptID:    a.ID,
		QuestionID:   questionID,
		UserAnswer:   value,
		IsCorrect:    result.IsCorrect,
		PointsEarned: result.PointsEarned,
	}
	if err := s.attempts.UpsertAnswer(ctx, ans); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptCompleted
		}
		return nil, fmt.Errorf("save answer: %w", err)
	}

	s.log.Debug().
		Str("attempt_id", a.ID.String()).
		Str("question_id", questionID.String()).
		Bool("is_correct", result.IsCorrect).
		Msg("Answer graded")
	return ans, nil
}

// Complete closes the attempt and records its score.
func (s *AttemptService) Complete(ctx context.Context, attemptID, userID uuid.UUID) (*model.Attempt, error) {
	a, err := s.owned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if a.IsComplete {
		return nil, ErrAttemptCompleted
	}

	done, err := s.attempts.Complete(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptCompleted
		}
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	s.clearDeadline(ctx, attemptID)

	s.logCompleted(done, "user")
	return done, nil
}

// Expire completes an attempt on behalf of the system, for example when its time runs out.
// An attempt that is already complete is returned unchanged.
func (s *AttemptService) Expire(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	done, err := s.attempts.Complete(ctx, attemptID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expire attempt: %w", err)
		}
		existing, err := s.attempts.GetByID(ctx, attemptID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				s.clearDeadline(ctx, attemptID)
				return nil, ErrAttemptNotFound
			}
			return nil, fmt.Errorf("get attempt: %w", err)
		}
		s.clearDeadline(ctx, attemptID)
		return existing, nil
	}
	s.clearDeadline(ctx, attemptID)

	s.logCompleted(done, "expired")
	return done, nil
}

// Results returns the attempt with every submitted answer, its question and the correct
// answer. The attempt owner and the quiz creator may view it.
func (s *AttemptService) Results(ctx context.Context, attemptID, userID uuid.UUID) (*model.AttemptResults, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	agg, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID && agg.CreatorID != userID {
		return nil, ErrNotAttemptOwner
	}
	a.ExpiresAt = a.Deadline(agg.TimeLimit)

	answers, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if answers == nil {
		answers = []model.AnswerReview{}
	}

	res := &model.AttemptResults{
		Attempt:         *a,
		QuizTitle:       agg.Title,
		QuizDescription: agg.Description,
		Answers:         answers,
		Partial:         agg.Partial,
	}
	for i := range res.Answers {
		q := findQuestion(agg, res.Answers[i].QuestionID)
		if q == nil || q.CorrectAnswer == nil {
			res.Partial = true
			continue
		}
		res.Answers[i].Options = q.Options
		res.Answers[i].CorrectAnswer = q.CorrectAnswer
	}
	return res, nil
}

// ListByQuiz returns every attempt on a quiz. Only the quiz creator may list them.
func (s *AttemptService) ListByQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]model.AttemptSummary, error) {
	agg, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if agg.CreatorID != userID {
		return nil, ErrNotQuizCreator
	}

	attempts, err := s.attempts.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []model.AttemptSummary{}
	}
	return attempts, nil
}

// ListMine returns the attempts made by userID, newest first.
func (s *AttemptService) ListMine(ctx context.Context, userID uuid.UUID) ([]model.LearnerAttempt, error) {
	attempts, err := s.attempts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []model.LearnerAttempt{}
	}
	return attempts, nil
}

// RestoreDeadlines re-registers the deadlines of all open timed attempts.
// Called on startup so attempts started before a Redis flush still expire.
func (s *AttemptService) RestoreDeadlines(ctx context.Context) (int, error) {
	if s.deadlines == nil {
		return 0, nil
	}
	open, err := s.attempts.ListOpenWithDeadline(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open attempts: %w", err)
	}
	for _, a := range open {
		if err := s.deadlines.Schedule(ctx, a.ID, *a.ExpiresAt); err != nil {
			return 0, fmt.Errorf("schedule attempt %s: %w", a.ID, err)
		}
	}
	return len(open), nil
}

func (s *AttemptService) owned(ctx context.Context, attemptID, userID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.UserID != userID {
		return nil, ErrNotAttemptOwner
	}
	return a, nil
}

func (s *AttemptService) clearDeadline(ctx context.Context, attemptID uuid.UUID) {
	if s.deadlines == nil {
		return
	}
	if err := s.deadlines.Remove(ctx, attemptID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to clear attempt deadline")
	}
}

func (s *AttemptService) logCompleted(a *model.Attempt, by string) {
	ev := s.log.Info().Str("attempt_id", a.ID.String()).Str("completed_by", by)
	if a.Score != nil && a.MaxScore != nil {
		ev = ev.Int("score", *a.Score).Int("max_score", *a.MaxScore)
	}
	ev.Msg("Attempt completed")
}

func findQuestion(agg *model.QuizAggregate, questionID uuid.UUID) *model.QuestionDetail {
	for i := range agg.Questions {
		if agg.Questions[i].ID == questionID {
			return &agg.Questions[i]
		}
	}
	return nil
}
