package model

import (
	"time"

	"github.com/google/uuid"
)

// Quiz represents the quiz row of an aggregate.
type Quiz struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	SubjectID   uuid.UUID  `json:"subject_id"`
	SubjectName string     `json:"subject_name,omitempty"`
	CreatorID   uuid.UUID  `json:"creator_id"`
	CreatorName *string    `json:"creator_name,omitempty"`
	TimeLimit   int        `json:"time_limit"` // minutes, 0 = unlimited
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsPublic    bool       `json:"is_public"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// VisibleTo reports whether userID may read the quiz. Public quizzes are readable by anyone.
func (q *Quiz) VisibleTo(userID uuid.UUID) bool {
	return q.IsPublic || q.CreatorID == userID
}

// QuizAggregate is a quiz together with its ordered questions, options and answer keys.
// Partial is set when options or a key of some question could not be loaded.
type QuizAggregate struct {
	Quiz
	Questions []QuestionDetail `json:"questions"`
	Partial   bool             `json:"partial,omitempty"`
}

// QuestionDetail is a question enriched with its options and answer key.
// CorrectAnswer is nil when the key could not be loaded.
type QuestionDetail struct {
	Question
	Options       []Option   `json:"options"`
	CorrectAnswer *AnswerKey `json:"correct_answer,omitempty"`
}

// QuizPaper is the learner-facing view of a quiz: no answer keys.
type QuizPaper struct {
	Quiz
	Questions []PaperQuestion `json:"questions"`
}

// PaperQuestion is a question as shown while taking a quiz.
type PaperQuestion struct {
	Question
	Options []Option `json:"options"`
}

// Paper strips the answer keys from the aggregate.
func (a *QuizAggregate) Paper() *QuizPaper {
	paper := &QuizPaper{Quiz: a.Quiz, Questions: make([]PaperQuestion, len(a.Questions))}
	for i, q := range a.Questions {
		paper.Questions[i] = PaperQuestion{Question: q.Question, Options: q.Options}
	}
	return paper
}

// MaxScore sums the points of every question.
func (a *QuizAggregate) MaxScore() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// CreateQuizRequest is the payload for creating a quiz with all of its questions.
type CreateQuizRequest struct {
	Title       string        `json:"title" binding:"required,min=3,max=255"`
	Description *string       `json:"description" binding:"omitempty,max=2000"`
	SubjectID   uuid.UUID     `json:"subject_id" binding:"required"`
	TimeLimit   int           `json:"time_limit" binding:"min=0,max=1440"`
	DueDate     string        `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	IsPublic    bool          `json:"is_public"`
	Questions   []NewQuestion `json:"questions" binding:"required,min=1,max=200,dive"`
}
