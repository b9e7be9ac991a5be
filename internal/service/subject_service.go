package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/repository"
)

type SubjectService struct {
	subjects SubjectStore
	log      zerolog.Logger
}

func NewSubjectService(subjects SubjectStore, log zerolog.Logger) *SubjectService {
	return &SubjectService{
		subjects: subjects,
		log:      log.With().Str("component", "subject_service").Logger(),
	}
}

func (s *SubjectService) GetAll(ctx context.Context) ([]model.Subject, error) {
	subjects, err := s.subjects.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	if subjects == nil {
		subjects = []model.Subject{}
	}
	return subjects, nil
}

func (s *SubjectService) Create(ctx context.Context, sub *model.Subject) error {
	if err := s.subjects.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubject) {
			return ErrSubjectExists
		}
		return fmt.Errorf("create subject: %w", err)
	}
	s.log.Info().Str("subject_id", sub.ID.String()).Str("name", sub.Name).Msg("Subject created")
	return nil
}
