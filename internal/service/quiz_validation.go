package service

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizcraft-backend/internal/model"
)

const (
	minChoiceOptions = 2
	dueDateLayout    = "2006-01-02"
)

// buildAggregate validates a creation request and turns it into an unsaved aggregate:
// option ids are assigned, keys normalized and positions numbered from 1.
// Nothing is written when it returns an error.
func buildAggregate(req *model.CreateQuizRequest, creatorID uuid.UUID, now time.Time) (*model.QuizAggregate, error) {
	verr := &ValidationError{}

	title := strings.TrimSpace(req.Title)
	if l := len([]rune(title)); l < 3 || l > 255 {
		verr.Add("title", "must be between 3 and 255 characters")
	}
	if req.SubjectID == uuid.Nil {
		verr.Add("subject_id", "is required")
	}
	if creatorID == uuid.Nil {
		verr.Add("creator_id", "is required")
	}
	if req.TimeLimit < 0 {
		verr.Add("time_limit", "must not be negative")
	}

	due := now.UTC().Truncate(24 * time.Hour)
	if req.DueDate != "" {
		parsed, err := time.Parse(dueDateLayout, req.DueDate)
		if err != nil {
			verr.Add("due_date", "must be a date in YYYY-MM-DD format")
		} else {
			due = parsed
		}
	}

	if len(req.Questions) == 0 {
		verr.Add("questions", "at least one question is required")
	}

	agg := &model.QuizAggregate{
		Quiz: model.Quiz{
			Title:       title,
			Description: req.Description,
			SubjectID:   req.SubjectID,
			CreatorID:   creatorID,
			TimeLimit:   req.TimeLimit,
			DueDate:     &due,
			IsPublic:    req.IsPublic,
		},
		Questions: make([]model.QuestionDetail, 0, len(req.Questions)),
	}

	for i, nq := range req.Questions {
		detail := buildQuestion(verr, fmt.Sprintf("questions[%d]", i), nq)
		detail.OrderNum = i + 1
		agg.Questions = append(agg.Questions, detail)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return agg, nil
}

func buildQuestion(verr *ValidationError, prefix string, nq model.NewQuestion) model.QuestionDetail {
	detail := model.QuestionDetail{
		Question: model.Question{
			Text:   strings.TrimSpace(nq.Text),
			Type:   nq.Type,
			Points: nq.Points,
		},
		Options: []model.Option{},
	}

	if detail.Text == "" {
		verr.Add(prefix+".text", "is required")
	}
	if !nq.Type.Valid() {
		verr.Add(prefix+".type", "must be one of multiple-choice, checkbox, text")
		return detail
	}
	if nq.Points < 1 {
		verr.Add(prefix+".points", "must be at least 1")
	}

	if nq.Type.HasOptions() {
		detail.Options = buildOptions(verr, prefix, nq.Options)
	} else if len(nq.Options) > 0 {
		verr.Add(prefix+".options", "text questions cannot have options")
	}

	key, ok := model.NewAnswerKey(nq.Type, nq.CorrectAnswer)
	if !ok {
		switch nq.Type {
		case model.QuestionTypeMultipleChoice:
			verr.Add(prefix+".correct_answer", "must be exactly one option id")
		case model.QuestionTypeCheckbox:
			verr.Add(prefix+".correct_answer", "must select at least one option id")
		default:
			verr.Add(prefix+".correct_answer", "is required")
		}
		return detail
	}

	if nq.Type.HasOptions() {
		ids := make([]string, len(detail.Options))
		for i, o := range detail.Options {
			ids[i] = o.OptionID
		}
		for _, id := range key.OptionIDs() {
			if !slices.Contains(ids, id) {
				verr.Add(prefix+".correct_answer", fmt.Sprintf("references unknown option %q", id))
				break
			}
		}
	}

	detail.CorrectAnswer = &key
	return detail
}

// buildOptions keeps explicit option ids and fills the rest with NextOptionID.
func buildOptions(verr *ValidationError, prefix string, in []model.NewOption) []model.Option {
	if len(in) < minChoiceOptions {
		verr.Add(prefix+".options", fmt.Sprintf("at least %d options are required", minChoiceOptions))
	}

	used := make([]string, 0, len(in))
	for _, o := range in {
		if o.ID == "" {
			continue
		}
		if slices.Contains(used, o.ID) {
			verr.Add(prefix+".options", fmt.Sprintf("duplicate option id %q", o.ID))
		}
		used = append(used, o.ID)
	}

	options := make([]model.Option, len(in))
	for i, o := range in {
		id := o.ID
		if id == "" {
			id = model.NextOptionID(used)
			used = append(used, id)
		}
		text := strings.TrimSpace(o.Text)
		if text == "" {
			verr.Add(fmt.Sprintf("%s.options[%d].text", prefix, i), "is required")
		}
		options[i] = model.Option{OptionID: id, Text: text, OrderNum: i + 1}
	}
	return options
}
