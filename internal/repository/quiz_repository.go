package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/quizcraft-backend/internal/model"
)

// QuizRepository handles quiz aggregate data access.
type QuizRepository struct {
	db DBTX
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(db DBTX) *QuizRepository {
	return &QuizRepository{db: db}
}

const quizSelect = `
	SELECT q.id, q.title, q.description, q.subject_id, s.name, q.creator_id, u.full_name,
	       q.time_limit, q.due_date, q.is_public, q.created_at, q.updated_at
	FROM quizzes q
	JOIN subjects s ON s.id = q.subject_id
	JOIN users u ON u.id = q.creator_id`

func scanQuiz(row pgx.Row, q *model.Quiz) error {
	return row.Scan(&q.ID, &q.Title, &q.Description, &q.SubjectID, &q.SubjectName,
		&q.CreatorID, &q.CreatorName, &q.TimeLimit, &q.DueDate, &q.IsPublic,
		&q.CreatedAt, &q.UpdatedAt)
}

func collectQuizzes(rows pgx.Rows) ([]model.Quiz, error) {
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := scanQuiz(rows, &q); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// GetByID retrieves a quiz with its subject and creator names.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	if err := scanQuiz(r.db.QueryRow(ctx, quizSelect+` WHERE q.id = $1`, id), q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListByCreator returns the quizzes authored by a user, newest first.
func (r *QuizRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Quiz, error) {
	rows, err := r.db.Query(ctx, quizSelect+` WHERE q.creator_id = $1 ORDER BY q.created_at DESC`, creatorID)
	if err != nil {
		return nil, err
	}
	return collectQuizzes(rows)
}

// ListPublic returns one page of public quizzes, newest first, and the total count.
func (r *QuizRepository) ListPublic(ctx context.Context, limit, offset int) ([]model.Quiz, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quizzes WHERE is_public`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		quizSelect+` WHERE q.is_public ORDER BY q.created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	quizzes, err := collectQuizzes(rows)
	return quizzes, total, err
}

// Delete removes a quiz. Questions, options, keys and attempts cascade.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListQuestions returns the questions of a quiz ordered by position.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, quiz_id, text, type, points, order_num
		 FROM questions WHERE quiz_id = $1
		 ORDER BY order_num ASC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &q.Points, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListOptions returns the options of a question ordered by position.
func (r *QuizRepository) ListOptions(ctx context.Context, questionID uuid.UUID) ([]model.Option, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question_id, option_id, text, order_num
		 FROM options WHERE question_id = $1
		 ORDER BY order_num ASC`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []model.Option{}
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.OptionID, &o.Text, &o.OrderNum); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// GetAnswerKey loads the key rows of a question and shapes them for qType.
// A question without key rows yields pgx.ErrNoRows.
func (r *QuizRepository) GetAnswerKey(ctx context.Context, questionID uuid.UUID, qType model.QuestionType) (model.AnswerKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT option_id, text_answer FROM correct_answers
		 WHERE question_id = $1
		 ORDER BY option_id ASC NULLS LAST`, questionID)
	if err != nil {
		return model.AnswerKey{}, err
	}
	defer rows.Close()

	var optionIDs []string
	var text *string
	for rows.Next() {
		var optionID, textAnswer *string
		if err := rows.Scan(&optionID, &textAnswer); err != nil {
			return model.AnswerKey{}, err
		}
		if optionID != nil {
			optionIDs = append(optionIDs, *optionID)
		}
		if textAnswer != nil && text == nil {
			text = textAnswer
		}
	}
	if err := rows.Err(); err != nil {
		return model.AnswerKey{}, err
	}

	key, ok := answerKeyFromRows(qType, optionIDs, text)
	if !ok {
		return model.AnswerKey{}, pgx.ErrNoRows
	}
	return key, nil
}
