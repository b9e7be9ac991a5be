package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/quizcraft-backend/internal/model"
)

// AttemptRepository handles quiz attempts and their submitted answers.
type AttemptRepository struct {
	db DBTX
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(db DBTX) *AttemptRepository {
	return &AttemptRepository{db: db}
}

const attemptColumns = `a.id, a.quiz_id, a.user_id, a.start_time, a.end_time, a.score, a.max_score, a.is_complete`

func scanAttempt(row pgx.Row, a *model.Attempt, extra ...any) error {
	dest := append([]any{&a.ID, &a.QuizID, &a.UserID, &a.StartTime, &a.EndTime,
		&a.Score, &a.MaxScore, &a.IsComplete}, extra...)
	return row.Scan(dest...)
}

// Create starts a new attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO quiz_attempts (quiz_id, user_id)
		 VALUES ($1, $2)
		 RETURNING id, start_time, is_complete`,
		a.QuizID, a.UserID,
	).Scan(&a.ID, &a.StartTime, &a.IsComplete)
	if pgErrorCode(err) == pgForeignKeyViolation {
		return ErrInvalidReference
	}
	return err
}

// GetByID retrieves an attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := scanAttempt(r.db.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts a WHERE a.id = $1`, id), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpsertAnswer stores a graded answer. A second answer to the same question replaces the first.
// The attempt row is share-locked for the insert, so a concurrent Complete either waits for this
// answer or wins and makes the insert a no-op. A closed or missing attempt yields pgx.ErrNoRows.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, ans *model.SubmittedAnswer) error {
	raw, err := json.Marshal(ans.UserAnswer)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}

	return r.db.QueryRow(ctx,
		`WITH open_attempt AS (
		     SELECT id FROM quiz_attempts
		     WHERE id = $1 AND is_complete = FALSE
		     FOR SHARE
		 )
		 INSERT INTO user_answers (attempt_id, question_id, user_answer, is_correct, points_earned)
		 SELECT oa.id, $2, $3::jsonb, $4, $5 FROM open_attempt oa
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET user_answer = EXCLUDED.user_answer,
		     is_correct = EXCLUDED.is_correct,
		     points_earned = EXCLUDED.points_earned,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		ans.AttemptID, ans.QuestionID, raw, ans.IsCorrect, ans.PointsEarned,
	).Scan(&ans.ID, &ans.CreatedAt, &ans.UpdatedAt)
}

// Complete closes an open attempt and computes its score.
// The row is locked first so the scoring statement sees every answer committed before it.
// It returns pgx.ErrNoRows when the attempt does not exist or is already complete.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx,
			`SELECT id FROM quiz_attempts WHERE id = $1 AND is_complete = FALSE FOR UPDATE`, id,
		).Scan(&locked); err != nil {
			return err
		}
		return scanAttempt(tx.QueryRow(ctx,
			`UPDATE quiz_attempts AS a
			 SET is_complete = TRUE,
			     end_time = NOW(),
			     score = COALESCE((SELECT SUM(ua.points_earned) FROM user_answers ua WHERE ua.attempt_id = a.id), 0),
			     max_score = COALESCE((SELECT SUM(q.points) FROM questions q WHERE q.quiz_id = a.quiz_id), 0)
			 WHERE a.id = $1 AND a.is_complete = FALSE
			 RETURNING `+attemptColumns, id), a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnswers returns the submitted answers of an attempt in question order.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerReview, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ua.id, ua.attempt_id, ua.question_id, ua.user_answer, ua.is_correct, ua.points_earned,
		        ua.created_at, ua.updated_at, q.text, q.type, q.points, q.order_num
		 FROM user_answers ua
		 JOIN questions q ON q.id = ua.question_id
		 WHERE ua.attempt_id = $1
		 ORDER BY q.order_num ASC`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AnswerReview
	for rows.Next() {
		var a model.AnswerReview
		var raw []byte
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &raw, &a.IsCorrect, &a.PointsEarned,
			&a.CreatedAt, &a.UpdatedAt, &a.QuestionText, &a.QuestionType, &a.Points, &a.OrderNum); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &a.UserAnswer); err != nil {
			return nil, fmt.Errorf("decode answer %s: %w", a.ID, err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ListByQuiz returns the attempts made on a quiz with learner details, newest first.
func (r *AttemptRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.AttemptSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+attemptColumns+`, u.full_name, u.email
		 FROM quiz_attempts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.quiz_id = $1
		 ORDER BY a.start_time DESC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.AttemptSummary
	for rows.Next() {
		var s model.AttemptSummary
		if err := scanAttempt(rows, &s.Attempt, &s.LearnerName, &s.LearnerEmail); err != nil {
			return nil, err
		}
		attempts = append(attempts, s)
	}
	return attempts, rows.Err()
}

// ListByUser returns a learner's attempts with quiz titles, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.LearnerAttempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+attemptColumns+`, qz.title
		 FROM quiz_attempts a
		 JOIN quizzes qz ON qz.id = a.quiz_id
		 WHERE a.user_id = $1
		 ORDER BY a.start_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.LearnerAttempt
	for rows.Next() {
		var la model.LearnerAttempt
		if err := scanAttempt(rows, &la.Attempt, &la.QuizTitle); err != nil {
			return nil, err
		}
		attempts = append(attempts, la)
	}
	return attempts, rows.Err()
}

// ListOpenWithDeadline returns incomplete attempts on timed quizzes together with their deadlines.
// Used to rebuild the deadline queue on startup.
func (r *AttemptRepository) ListOpenWithDeadline(ctx context.Context) ([]model.Attempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+attemptColumns+`, a.start_time + make_interval(mins => qz.time_limit)
		 FROM quiz_attempts a
		 JOIN quizzes qz ON qz.id = a.quiz_id
		 WHERE a.is_complete = FALSE AND qz.time_limit > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := scanAttempt(rows, &a, &a.ExpiresAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
