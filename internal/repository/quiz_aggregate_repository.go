package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/quizcraft-backend/internal/model"
)

// AggregateWriter inserts the parts of one quiz aggregate inside a transaction.
type AggregateWriter interface {
	InsertQuiz(ctx context.Context, q *model.Quiz) error
	InsertQuestion(ctx context.Context, q *model.Question) error
	InsertOptions(ctx context.Context, questionID uuid.UUID, options []model.Option) error
	InsertAnswerKey(ctx context.Context, questionID uuid.UUID, key model.AnswerKey) error
}

// WriteAggregate runs fn in a single transaction. Any error returned by fn
// rolls back every row written through the AggregateWriter.
func (r *QuizRepository) WriteAggregate(ctx context.Context, fn func(w AggregateWriter) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&aggregateTx{tx: tx})
	})
}

type aggregateTx struct {
	tx pgx.Tx
}

func (a *aggregateTx) InsertQuiz(ctx context.Context, q *model.Quiz) error {
	err := a.tx.QueryRow(ctx,
		`INSERT INTO quizzes (title, description, subject_id, creator_id, time_limit, due_date, is_public)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		q.Title, q.Description, q.SubjectID, q.CreatorID, q.TimeLimit, q.DueDate, q.IsPublic,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if pgErrorCode(err) == pgForeignKeyViolation {
		return ErrInvalidReference
	}
	return err
}

func (a *aggregateTx) InsertQuestion(ctx context.Context, q *model.Question) error {
	return a.tx.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, text, type, points, order_num)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		q.QuizID, q.Text, q.Type, q.Points, q.OrderNum,
	).Scan(&q.ID)
}

// InsertOptions bulk-inserts the options of one question.
func (a *aggregateTx) InsertOptions(ctx context.Context, questionID uuid.UUID, options []model.Option) error {
	if len(options) == 0 {
		return nil
	}

	ids := make([]string, len(options))
	texts := make([]string, len(options))
	orders := make([]int, len(options))
	for i, o := range options {
		ids[i] = o.OptionID
		texts[i] = o.Text
		orders[i] = o.OrderNum
	}

	tag, err := a.tx.Exec(ctx,
		`INSERT INTO options (question_id, option_id, text, order_num)
		 SELECT $1, u.option_id, u.text, u.order_num
		 FROM UNNEST($2::text[], $3::text[], $4::int[]) AS u (option_id, text, order_num)`,
		questionID, ids, texts, orders)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(options) {
		return fmt.Errorf("inserted %d of %d options", tag.RowsAffected(), len(options))
	}
	return nil
}

// InsertAnswerKey stores one row per key option, or a single text_answer row for text keys.
func (a *aggregateTx) InsertAnswerKey(ctx context.Context, questionID uuid.UUID, key model.AnswerKey) error {
	ids, text, err := answerKeyRows(key)
	if err != nil {
		return fmt.Errorf("question %s: %w", questionID, err)
	}

	if text != nil {
		_, err = a.tx.Exec(ctx,
			`INSERT INTO correct_answers (question_id, text_answer) VALUES ($1, $2)`,
			questionID, *text)
		return err
	}
	_, err = a.tx.Exec(ctx,
		`INSERT INTO correct_answers (question_id, option_id)
		 SELECT $1, u.option_id FROM UNNEST($2::text[]) AS u (option_id)`,
		questionID, ids)
	return err
}
