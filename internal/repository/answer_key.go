package repository

import (
	"fmt"

	"github.com/stemsi/quizcraft-backend/internal/model"
)

// answerKeyRows splits a key into correct_answers rows: one option_id per row,
// or a single text_answer for text keys.
func answerKeyRows(key model.AnswerKey) (optionIDs []string, text *string, err error) {
	if key.Type == model.QuestionTypeText {
		s, ok := key.Value.Scalar()
		if !ok {
			return nil, nil, fmt.Errorf("text key has no value")
		}
		return nil, &s, nil
	}

	ids := key.OptionIDs()
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("%s key has no options", key.Type)
	}
	return ids, nil, nil
}

// answerKeyFromRows rebuilds the key of a qType question from its correct_answers rows.
// It reports false when the rows cannot form a key of that type.
func answerKeyFromRows(qType model.QuestionType, optionIDs []string, text *string) (model.AnswerKey, bool) {
	switch qType {
	case model.QuestionTypeText:
		if text != nil {
			return model.TextKey(*text), true
		}
	case model.QuestionTypeMultipleChoice:
		if len(optionIDs) > 0 {
			return model.MultipleChoiceKey(optionIDs[0]), true
		}
	case model.QuestionTypeCheckbox:
		if len(optionIDs) > 0 {
			return model.CheckboxKey(optionIDs...), true
		}
	}
	return model.AnswerKey{}, false
}
