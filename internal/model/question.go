package model

import (
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeCheckbox       QuestionType = "checkbox"
	QuestionTypeText           QuestionType = "text"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeCheckbox, QuestionTypeText:
		return true
	}
	return false
}

// HasOptions reports whether questions of this type carry selectable options.
func (t QuestionType) HasOptions() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeCheckbox
}

// Question represents a single quiz question.
type Question struct {
	ID       uuid.UUID    `json:"id"`
	QuizID   uuid.UUID    `json:"quiz_id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Points   int          `json:"points"`
	OrderNum int          `json:"order_num"`
}

// Option is a selectable choice of a multiple-choice or checkbox question.
// OptionID is unique within its question only.
type Option struct {
	ID         uuid.UUID `json:"-"`
	QuestionID uuid.UUID `json:"-"`
	OptionID   string    `json:"id"`
	Text       string    `json:"text"`
	OrderNum   int       `json:"order_num"`
}

const (
	optionAlphabet     = "abcdefghijklmnopqrstuvwxyz"
	fallbackIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	fallbackIDLength   = 7
)

// NextOptionID returns the first lowercase letter not used by existing.
// Once all 26 letters are taken it returns a random "option_xxxxxxx" token;
// collisions between fallback tokens are possible but very unlikely.
func NextOptionID(existing []string) string {
	for _, r := range optionAlphabet {
		id := string(r)
		if !slices.Contains(existing, id) {
			return id
		}
	}

	b := make([]byte, fallbackIDLength)
	for i := range b {
		b[i] = fallbackIDAlphabet[rand.IntN(len(fallbackIDAlphabet))]
	}
	return "option_" + string(b)
}

// NewQuestion is one question definition of a CreateQuizRequest.
type NewQuestion struct {
	Text          string       `json:"text" binding:"required,max=2000"`
	Type          QuestionType `json:"type" binding:"required,questiontype"`
	Points        int          `json:"points" binding:"required,min=1,max=1000"`
	Options       []NewOption  `json:"options" binding:"omitempty,max=64,dive"`
	CorrectAnswer AnswerValue  `json:"correct_answer"`
}

// NewOption is an option definition. An empty ID is assigned with NextOptionID.
type NewOption struct {
	ID   string `json:"id" binding:"omitempty,max=32"`
	Text string `json:"text" binding:"required,max=500"`
}
