package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizcraft-backend/internal/model"
)

func newTestQuizService() (*QuizService, *fakeQuizStore, *fakeQuizCache) {
	store := newFakeQuizStore()
	cache := newFakeQuizCache()
	svc := NewQuizService(store, cache, testLogger())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC) }
	return svc, store, cache
}

func mixedQuizRequest() *model.CreateQuizRequest {
	return &model.CreateQuizRequest{
		Title:     "General knowledge",
		SubjectID: uuid.New(),
		TimeLimit: 15,
		IsPublic:  true,
		Questions: []model.NewQuestion{
			{
				Text:   "Capital of France?",
				Type:   model.QuestionTypeMultipleChoice,
				Points: 1,
				Options: []model.NewOption{
					{ID: "a", Text: "Rome"},
					{ID: "b", Text: "Paris"},
					{ID: "c", Text: "Madrid"},
				},
				CorrectAnswer: model.SingleValue("b"),
			},
			{
				Text:   "Pick the prime numbers",
				Type:   model.QuestionTypeCheckbox,
				Points: 2,
				Options: []model.NewOption{
					{Text: "2"},
					{Text: "4"},
					{Text: "5"},
				},
				CorrectAnswer: model.SetValue("c", "a"),
			},
			{
				Text:          "Name the largest ocean",
				Type:          model.QuestionTypeText,
				Points:        3,
				CorrectAnswer: model.SingleValue("Pacific"),
			},
		},
	}
}

func TestQuizCreateThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestQuizService()
	creator := uuid.New()

	created, err := svc.Create(ctx, creator, mixedQuizRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if store.quizCount() != 1 || store.questionCount() != 3 {
		t.Fatalf("stored %d quizzes and %d questions", store.quizCount(), store.questionCount())
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Partial {
		t.Fatal("aggregate unexpectedly partial")
	}
	if got.CreatorID != creator || got.Title != "General knowledge" {
		t.Fatalf("unexpected quiz %+v", got.Quiz)
	}
	if len(got.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(got.Questions))
	}

	wantTypes := []model.QuestionType{model.QuestionTypeMultipleChoice, model.QuestionTypeCheckbox, model.QuestionTypeText}
	wantKeys := []model.AnswerKey{model.MultipleChoiceKey("b"), model.CheckboxKey("a", "c"), model.TextKey("Pacific")}
	for i, q := range got.Questions {
		if q.OrderNum != i+1 {
			t.Errorf("question %d has order_num %d", i, q.OrderNum)
		}
		if q.Type != wantTypes[i] {
			t.Errorf("question %d type %s, want %s", i, q.Type, wantTypes[i])
		}
		if q.CorrectAnswer == nil || !q.CorrectAnswer.Equal(wantKeys[i]) {
			t.Errorf("question %d key %+v, want %+v", i, q.CorrectAnswer, wantKeys[i])
		}
	}

	checkbox := got.Questions[1]
	var ids []string
	for j, o := range checkbox.Options {
		ids = append(ids, o.OptionID)
		if o.OrderNum != j+1 {
			t.Errorf("option %d has order_num %d", j, o.OrderNum)
		}
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Errorf("assigned option ids %v, want a,b,c", ids)
	}
	if len(got.Questions[2].Options) != 0 {
		t.Errorf("text question has options %+v", got.Questions[2].Options)
	}
}

func TestQuizCreateDefaultsDueDateToToday(t *testing.T) {
	svc, _, _ := newTestQuizService()
	agg, err := svc.Create(context.Background(), uuid.New(), mixedQuizRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if agg.DueDate == nil || agg.DueDate.Format(dueDateLayout) != "2025-03-01" {
		t.Fatalf("due date %v, want 2025-03-01", agg.DueDate)
	}

	req := mixedQuizRequest()
	req.DueDate = "2025-04-10"
	agg, err = svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if agg.DueDate.Format(dueDateLayout) != "2025-04-10" {
		t.Fatalf("due date %v, want 2025-04-10", agg.DueDate)
	}
}

func TestQuizCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.CreateQuizRequest)
		field  string
	}{
		{"short title", func(r *model.CreateQuizRequest) { r.Title = "ab" }, "title"},
		{"missing subject", func(r *model.CreateQuizRequest) { r.SubjectID = uuid.Nil }, "subject_id"},
		{"negative time limit", func(r *model.CreateQuizRequest) { r.TimeLimit = -1 }, "time_limit"},
		{"bad due date", func(r *model.CreateQuizRequest) { r.DueDate = "10/04/2025" }, "due_date"},
		{"no questions", func(r *model.CreateQuizRequest) { r.Questions = nil }, "questions"},
		{"empty text", func(r *model.CreateQuizRequest) { r.Questions[0].Text = "  " }, "questions[0].text"},
		{"unknown type", func(r *model.CreateQuizRequest) { r.Questions[0].Type = "essay" }, "questions[0].type"},
		{"zero points", func(r *model.CreateQuizRequest) { r.Questions[2].Points = 0 }, "questions[2].points"},
		{"single option", func(r *model.CreateQuizRequest) {
			r.Questions[0].Options = r.Questions[0].Options[:1]
			r.Questions[0].CorrectAnswer = model.SingleValue("a")
		}, "questions[0].options"},
		{"duplicate option ids", func(r *model.CreateQuizRequest) { r.Questions[0].Options[2].ID = "a" }, "questions[0].options"},
		{"empty option text", func(r *model.CreateQuizRequest) { r.Questions[1].Options[1].Text = "" }, "questions[1].options[1].text"},
		{"text with options", func(r *model.CreateQuizRequest) {
			r.Questions[2].Options = []model.NewOption{{Text: "x"}}
		}, "questions[2].options"},
		{"key references unknown option", func(r *model.CreateQuizRequest) {
			r.Questions[0].CorrectAnswer = model.SingleValue("z")
		}, "questions[0].correct_answer"},
		{"multiple choice with two keys", func(r *model.CreateQuizRequest) {
			r.Questions[0].CorrectAnswer = model.SetValue("a", "b")
		}, "questions[0].correct_answer"},
		{"checkbox without key", func(r *model.CreateQuizRequest) {
			r.Questions[1].CorrectAnswer = model.AnswerValue{}
		}, "questions[1].correct_answer"},
		{"text without key", func(r *model.CreateQuizRequest) {
			r.Questions[2].CorrectAnswer = model.SingleValue("")
		}, "questions[2].correct_answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestQuizService()
			req := mixedQuizRequest()
			tt.mutate(req)

			_, err := svc.Create(context.Background(), uuid.New(), req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Fatalf("expected problem on %q, got %v", tt.field, verr.Fields)
			}
			if store.writeCalls != 0 {
				t.Fatalf("store was written %d times", store.writeCalls)
			}
		})
	}
}

func TestQuizCreateFailureLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()

	// Writes are: quiz, then per question: question, options (choice types), key.
	for failAt := 1; failAt <= 9; failAt++ {
		svc, store, _ := newTestQuizService()
		store.failOnWrite = failAt

		if _, err := svc.Create(ctx, uuid.New(), mixedQuizRequest()); !errors.Is(err, errInjected) {
			t.Fatalf("failAt=%d: expected injected error, got %v", failAt, err)
		}
		if store.quizCount() != 0 || store.questionCount() != 0 {
			t.Fatalf("failAt=%d: partial aggregate left behind (%d quizzes, %d questions)",
				failAt, store.quizCount(), store.questionCount())
		}

		store.failOnWrite = 0
		if _, err := svc.Create(ctx, uuid.New(), mixedQuizRequest()); err != nil {
			t.Fatalf("failAt=%d: retry failed: %v", failAt, err)
		}
		if store.quizCount() != 1 || store.questionCount() != 3 {
			t.Fatalf("failAt=%d: retry stored %d quizzes and %d questions", failAt, store.quizCount(), store.questionCount())
		}
	}
}

func TestQuizCreateIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestQuizService()
	creator := uuid.New()

	first, err := svc.Create(ctx, creator, mixedQuizRequest())
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second, err := svc.Create(ctx, creator, mixedQuizRequest())
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	if first.ID == second.ID {
		t.Fatal("resubmission reused the quiz id")
	}
	if store.quizCount() != 2 || store.questionCount() != 6 {
		t.Fatalf("stored %d quizzes and %d questions, want 2 and 6", store.quizCount(), store.questionCount())
	}
}

func TestQuizGetPartialAggregate(t *testing.T) {
	ctx := context.Background()
	svc, store, cache := newTestQuizService()

	created, err := svc.Create(ctx, uuid.New(), mixedQuizRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.failOptions[created.Questions[0].ID] = true
	store.failKeys[created.Questions[2].ID] = true

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Partial {
		t.Fatal("expected partial aggregate")
	}
	if len(got.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(got.Questions))
	}
	if len(got.Questions[0].Options) != 0 {
		t.Errorf("failed options should be empty, got %+v", got.Questions[0].Options)
	}
	if got.Questions[0].CorrectAnswer == nil {
		t.Error("key of question 1 should still load")
	}
	if len(got.Questions[1].Options) != 3 || got.Questions[1].CorrectAnswer == nil {
		t.Error("question 2 should be complete")
	}
	if got.Questions[2].CorrectAnswer != nil {
		t.Error("failed key should be empty")
	}
	if _, ok := cache.entries[created.ID]; ok {
		t.Error("partial aggregate was cached")
	}
}

func TestQuizGetFatalFailures(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestQuizService()

	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}

	created, err := svc.Create(ctx, uuid.New(), mixedQuizRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.failQuestion = true
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, errInjected) {
		t.Fatalf("expected question list failure, got %v", err)
	}
}

func TestQuizGetUsesCache(t *testing.T) {
	ctx := context.Background()
	svc, store, cache := newTestQuizService()

	created, err := svc.Create(ctx, uuid.New(), mixedQuizRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache set %d times, want 1", cache.sets)
	}

	store.failQuestion = true
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	if len(got.Questions) != 3 {
		t.Fatalf("cached aggregate has %d questions", len(got.Questions))
	}
}

func TestQuizGetForLearner(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService()
	creator := uuid.New()

	req := mixedQuizRequest()
	req.IsPublic = false
	created, err := svc.Create(ctx, creator, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.GetForLearner(ctx, created.ID, uuid.New()); !errors.Is(err, ErrQuizNotVisible) {
		t.Fatalf("expected ErrQuizNotVisible, got %v", err)
	}

	paper, err := svc.GetForLearner(ctx, created.ID, creator)
	if err != nil {
		t.Fatalf("GetForLearner: %v", err)
	}
	raw, err := json.Marshal(paper)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "correct_answer") {
		t.Fatalf("paper leaks answer keys: %s", raw)
	}
	if len(paper.Questions) != 3 || len(paper.Questions[0].Options) != 3 {
		t.Fatalf("paper is missing content: %s", raw)
	}
}

func TestQuizGetForCreator(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService()
	creator := uuid.New()

	created, err := svc.Create(ctx, creator, mixedQuizRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.GetForCreator(ctx, created.ID, uuid.New()); !errors.Is(err, ErrNotQuizCreator) {
		t.Fatalf("expected ErrNotQuizCreator, got %v", err)
	}
	if _, err := svc.GetForCreator(ctx, created.ID, creator); err != nil {
		t.Fatalf("GetForCreator: %v", err)
	}
}

func TestQuizDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, cache := newTestQuizService()
	creator := uuid.New()

	created, err := svc.Create(ctx, creator, mixedQuizRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := svc.Delete(ctx, created.ID, uuid.New()); !errors.Is(err, ErrNotQuizCreator) {
		t.Fatalf("expected ErrNotQuizCreator, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID, creator); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.quizCount() != 0 || store.questionCount() != 0 {
		t.Fatal("quiz was not removed")
	}
	if _, ok := cache.entries[created.ID]; ok {
		t.Fatal("cache entry survived deletion")
	}
	if err := svc.Delete(ctx, created.ID, creator); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestQuizListPublicPagination(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService()

	for i := 0; i < 3; i++ {
		req := mixedQuizRequest()
		req.Title = "Quiz " + string(rune('A'+i))
		if _, err := svc.Create(ctx, uuid.New(), req); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	private := mixedQuizRequest()
	private.IsPublic = false
	if _, err := svc.Create(ctx, uuid.New(), private); err != nil {
		t.Fatalf("Create: %v", err)
	}

	quizzes, pg, err := svc.ListPublic(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if pg.TotalItems != 3 || pg.TotalPages != 2 || pg.Page != 2 {
		t.Fatalf("unexpected pagination %+v", pg)
	}
	if len(quizzes) != 1 || quizzes[0].Title != "Quiz C" {
		t.Fatalf("unexpected page %+v", quizzes)
	}

	_, pg, err = svc.ListPublic(ctx, 0, 500)
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if pg.Page != 1 || pg.PerPage != 100 {
		t.Fatalf("pagination not clamped: %+v", pg)
	}
}
