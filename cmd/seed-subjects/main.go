package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/quizcraft-backend/internal/config"
	"github.com/stemsi/quizcraft-backend/internal/database"
	"github.com/stemsi/quizcraft-backend/internal/logger"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/repository"
	"github.com/stemsi/quizcraft-backend/internal/service"
)

var defaultSubjects = []string{
	"Mathematics", "Physics", "Chemistry", "Biology", "History",
	"Geography", "Literature", "Computer Science", "Economics", "Art",
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	subjectService := service.NewSubjectService(repository.NewSubjectRepository(pool), log)

	names := os.Args[1:]
	if len(names) == 0 {
		names = defaultSubjects
	}

	fmt.Printf("=== Seeding %d Subjects ===\n", len(names))

	created, skipped := 0, 0
	for _, name := range names {
		sub := &model.Subject{Name: name}
		err := subjectService.Create(ctx, sub)
		switch {
		case err == nil:
			created++
			fmt.Printf("Created %s (%s)\n", sub.Name, sub.ID)
		case errors.Is(err, service.ErrSubjectExists):
			skipped++
		default:
			fmt.Printf("Error creating subject %s: %v\n", name, err)
		}
	}

	fmt.Printf("\nSeed completed! Added %d subjects, %d already existed.\n", created, skipped)
}
