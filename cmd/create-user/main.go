package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/quizcraft-backend/internal/config"
	"github.com/stemsi/quizcraft-backend/internal/database"
	"github.com/stemsi/quizcraft-backend/internal/logger"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/repository"
	"github.com/stemsi/quizcraft-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	// Sessions are only touched on login, which this command never does.
	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, userRepo, nil, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")

	// Full name
	fmt.Print("Enter Full Name (optional): ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input

	// ─── Logic ─────────────────────────────────────────────────────────
	req := &model.RegisterRequest{
		Email:    email,
		Password: password,
		Confirm:  password,
	}
	if name != "" {
		req.FullName = &name
	}

	user, err := authService.Register(ctx, req)
	if err == nil {
		fmt.Printf("\nSuccess! User '%s' created with ID: %s\n", user.Email, user.ID)
		return
	}

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		fmt.Printf("Error: %v\n", verr)
		return
	case !errors.Is(err, service.ErrEmailTaken):
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	// Existing account: offer a password reset instead.
	fmt.Print("User already exists. Reset password? [y/N]: ")
	answer, _ := reader.ReadString('\n')
	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		return
	}

	existing, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load user")
	}
	hash, err := authService.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	if err := userRepo.UpdatePassword(ctx, existing.ID, hash); err != nil {
		log.Fatal().Err(err).Msg("Failed to update password")
	}

	fmt.Printf("\nSuccess! Password for '%s' has been reset.\n", existing.Email)
}
