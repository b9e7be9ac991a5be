package model

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one learner's pass at a quiz. It moves from started to complete and is never reopened.
type Attempt struct {
	ID         uuid.UUID  `json:"id"`
	QuizID     uuid.UUID  `json:"quiz_id"`
	UserID     uuid.UUID  `json:"user_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Score      *int       `json:"score,omitempty"`
	MaxScore   *int       `json:"max_score,omitempty"`
	IsComplete bool       `json:"is_complete"`
	// ExpiresAt is derived from the quiz time limit and not persisted.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Deadline returns when an attempt on a quiz with the given limit runs out.
// Unlimited quizzes (limit 0) have no deadline.
func (a *Attempt) Deadline(timeLimitMinutes int) *time.Time {
	if timeLimitMinutes <= 0 {
		return nil
	}
	d := a.StartTime.Add(time.Duration(timeLimitMinutes) * time.Minute)
	return &d
}

// SubmittedAnswer is a learner's graded answer to one question of an attempt.
type SubmittedAnswer struct {
	ID           uuid.UUID   `json:"id"`
	AttemptID    uuid.UUID   `json:"attempt_id"`
	QuestionID   uuid.UUID   `json:"question_id"`
	UserAnswer   AnswerValue `json:"user_answer"`
	IsCorrect    bool        `json:"is_correct"`
	PointsEarned int         `json:"points_earned"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// AnswerReview is a submitted answer enriched for the results page.
type AnswerReview struct {
	SubmittedAnswer
	QuestionText  string       `json:"question_text"`
	QuestionType  QuestionType `json:"question_type"`
	Points        int          `json:"points"`
	OrderNum      int          `json:"order_num"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer *AnswerKey   `json:"correct_answer,omitempty"`
}

// AttemptResults is the detailed review of one attempt.
type AttemptResults struct {
	Attempt         Attempt        `json:"attempt"`
	QuizTitle       string         `json:"quiz_title"`
	QuizDescription *string        `json:"quiz_description,omitempty"`
	Answers         []AnswerReview `json:"answers"`
	Partial         bool           `json:"partial,omitempty"`
}

// AttemptSummary is an attempt listed for the quiz creator.
type AttemptSummary struct {
	Attempt
	LearnerName  *string `json:"learner_name,omitempty"`
	LearnerEmail string  `json:"learner_email"`
}

// LearnerAttempt is an attempt listed for the learner who made it.
type LearnerAttempt struct {
	Attempt
	QuizTitle string `json:"quiz_title"`
}

// SubmitAnswerRequest is the payload for answering one question.
type SubmitAnswerRequest struct {
	Answer AnswerValue `json:"answer"`
}
