package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/repository"
	"github.com/stemsi/quizcraft-backend/internal/response"
)

// QuizService writes and reads quiz aggregates.
type QuizService struct {
	quizzes QuizStore
	cache   QuizCache
	now     func() time.Time
	log     zerolog.Logger
}

// NewQuizService creates a new QuizService. cache may be nil.
func NewQuizService(quizzes QuizStore, cache QuizCache, log zerolog.Logger) *QuizService {
	return &QuizService{
		quizzes: quizzes,
		cache:   cache,
		now:     time.Now,
		log:     log.With().Str("component", "quiz_service").Logger(),
	}
}

// Create validates req and persists the quiz with all of its questions, options and
// answer keys in one transaction. Either the whole aggregate is stored or nothing is.
// Calling it twice with the same input creates two quizzes.
func (s *QuizService) Create(ctx context.Context, creatorID uuid.UUID, req *model.CreateQuizRequest) (*model.QuizAggregate, error) {
	agg, err := buildAggregate(req, creatorID, s.now())
	if err != nil {
		return nil, err
	}

	err = s.quizzes.WriteAggregate(ctx, func(w repository.AggregateWriter) error {
		if err := w.InsertQuiz(ctx, &agg.Quiz); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}

		for i := range agg.Questions {
			q := &agg.Questions[i]
			q.QuizID = agg.ID
			if err := w.InsertQuestion(ctx, &q.Question); err != nil {
				return fmt.Errorf("insert question %d: %w", q.OrderNum, err)
			}

			if q.Type.HasOptions() {
				for j := range q.Options {
					q.Options[j].QuestionID = q.ID
				}
				if err := w.InsertOptions(ctx, q.ID, q.Options); err != nil {
					return fmt.Errorf("insert options of question %d: %w", q.OrderNum, err)
				}
			}

			if err := w.InsertAnswerKey(ctx, q.ID, *q.CorrectAnswer); err != nil {
				return fmt.Errorf("insert answer key of question %d: %w", q.OrderNum, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, &ValidationError{Fields: map[string]string{"subject_id": "subject does not exist"}}
		}
		return nil, fmt.Errorf("write quiz aggregate: %w", err)
	}

	s.log.Info().
		Str("quiz_id", agg.ID.String()).
		Str("creator_id", creatorID.String()).
		Int("questions", len(agg.Questions)).
		Msg("Quiz created")
	return agg, nil
}

// Get loads a quiz aggregate. A failure to load the quiz or its question list is fatal.
// A failure to load the options or key of one question leaves that field empty and marks
// the aggregate Partial.
func (s *QuizService) Get(ctx context.Context, quizID uuid.UUID) (*model.QuizAggregate, error) {
	if s.cache != nil {
		agg, err := s.cache.Get(ctx, quizID)
		if err != nil {
			s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Quiz cache read failed")
		}
		if agg != nil {
			return agg, nil
		}
	}

	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	questions, err := s.quizzes.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	agg := &model.QuizAggregate{Quiz: *quiz, Questions: make([]model.QuestionDetail, 0, len(questions))}
	for _, q := range questions {
		detail, ok := s.loadDetail(ctx, q)
		if !ok {
			agg.Partial = true
		}
		agg.Questions = append(agg.Questions, detail)
	}

	if s.cache != nil && !agg.Partial {
		if err := s.cache.Set(ctx, agg); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to cache quiz")
		}
	}
	return agg, nil
}

// loadDetail enriches one question. It reports false when something was left out.
func (s *QuizService) loadDetail(ctx context.Context, q model.Question) (model.QuestionDetail, bool) {
	detail := model.QuestionDetail{Question: q, Options: []model.Option{}}
	complete := true

	if q.Type.HasOptions() {
		options, err := s.quizzes.ListOptions(ctx, q.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("question_id", q.ID.String()).Msg("Failed to load options")
			complete = false
		} else {
			detail.Options = options
		}
	}

	key, err := s.quizzes.GetAnswerKey(ctx, q.ID, q.Type)
	if err != nil {
		s.log.Warn().Err(err).Str("question_id", q.ID.String()).Msg("Failed to load answer key")
		complete = false
	} else {
		detail.CorrectAnswer = &key
	}
	return detail, complete
}

// GetForLearner returns the quiz without answer keys. Private quizzes are only
// visible to their creator.
func (s *QuizService) GetForLearner(ctx context.Context, quizID, userID uuid.UUID) (*model.QuizPaper, error) {
	agg, err := s.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !agg.VisibleTo(userID) {
		return nil, ErrQuizNotVisible
	}
	return agg.Paper(), nil
}

// GetForCreator returns the full aggregate, keys included, to the quiz creator only.
func (s *QuizService) GetForCreator(ctx context.Context, quizID, userID uuid.UUID) (*model.QuizAggregate, error) {
	agg, err := s.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if agg.CreatorID != userID {
		return nil, ErrNotQuizCreator
	}
	return agg, nil
}

// ListMine returns the quizzes created by userID, newest first.
func (s *QuizService) ListMine(ctx context.Context, userID uuid.UUID) ([]model.Quiz, error) {
	quizzes, err := s.quizzes.ListByCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}
	return quizzes, nil
}

// ListPublic returns one page of public quizzes.
func (s *QuizService) ListPublic(ctx context.Context, page, perPage int) ([]model.Quiz, *response.Pagination, error) {
	pg := response.NewPagination(page, perPage, 0)

	quizzes, total, err := s.quizzes.ListPublic(ctx, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, nil, fmt.Errorf("list public quizzes: %w", err)
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}
	return quizzes, response.NewPagination(pg.Page, pg.PerPage, total), nil
}

// Delete removes a quiz and everything under it. Only the creator may delete.
func (s *QuizService) Delete(ctx context.Context, quizID, userID uuid.UUID) error {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("get quiz: %w", err)
	}
	if quiz.CreatorID != userID {
		return ErrNotQuizCreator
	}

	if err := s.quizzes.Delete(ctx, quizID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("delete quiz: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, quizID); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to invalidate quiz cache")
		}
	}
	s.log.Info().Str("quiz_id", quizID.String()).Msg("Quiz deleted")
	return nil
}
