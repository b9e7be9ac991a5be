package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stemsi/quizcraft-backend/internal/model"
)

func TestSubjectCreateAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewSubjectService(&fakeSubjectStore{}, testLogger())

	empty, err := svc.GetAll(ctx)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("GetAll on empty store = %v, %v", empty, err)
	}

	if err := svc.Create(ctx, &model.Subject{Name: "Geography"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Create(ctx, &model.Subject{Name: "Geography"}); !errors.Is(err, ErrSubjectExists) {
		t.Fatalf("expected ErrSubjectExists, got %v", err)
	}

	all, err := svc.GetAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("GetAll = %v, %v", all, err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	verr := &ValidationError{}
	if verr.OrNil() != nil {
		t.Fatal("empty ValidationError should be nil")
	}
	verr.Add("title", "is required")
	verr.Add("title", "second message is ignored")
	verr.Add("questions", "at least one question is required")

	want := "validation failed: questions: at least one question is required; title: is required"
	if verr.Error() != want {
		t.Fatalf("Error() = %q, want %q", verr.Error(), want)
	}
}
