// Package grading decides whether a submitted answer matches a question's key.
package grading

import (
	"slices"
	"strings"

	"github.com/stemsi/quizcraft-backend/internal/model"
)

// Result is the outcome of grading one answer.
type Result struct {
	IsCorrect    bool `json:"is_correct"`
	PointsEarned int  `json:"points_earned"`
}

// Evaluate grades submitted against key. Points are all or nothing.
// It never fails: an unknown type or a missing key or answer is simply incorrect.
func Evaluate(qType model.QuestionType, key model.AnswerKey, submitted model.AnswerValue, points int) Result {
	var correct bool
	switch qType {
	case model.QuestionTypeText:
		correct = matchText(key.Value, submitted)
	case model.QuestionTypeMultipleChoice:
		correct = matchChoice(key.Value, submitted)
	case model.QuestionTypeCheckbox:
		correct = matchSet(key.Value, submitted)
	}

	if !correct {
		return Result{}
	}
	return Result{IsCorrect: true, PointsEarned: max(points, 0)}
}

// matchText compares case-insensitively. Surrounding whitespace is significant.
func matchText(key, submitted model.AnswerValue) bool {
	want, ok := key.Scalar()
	if !ok {
		return false
	}
	got, ok := submitted.Scalar()
	if !ok {
		return false
	}
	return strings.ToLower(got) == strings.ToLower(want)
}

func matchChoice(key, submitted model.AnswerValue) bool {
	want, ok := key.Scalar()
	if !ok || want == "" {
		return false
	}
	got, ok := submitted.Scalar()
	return ok && got == want
}

func matchSet(key, submitted model.AnswerValue) bool {
	want := unique(key.Strings())
	got := unique(submitted.Strings())
	if len(want) == 0 || len(got) != len(want) {
		return false
	}
	for _, id := range got {
		if !slices.Contains(want, id) {
			return false
		}
	}
	return true
}

func unique(items []string) []string {
	out := slices.Clone(items)
	slices.Sort(out)
	return slices.Compact(out)
}
