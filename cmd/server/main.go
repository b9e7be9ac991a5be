package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/cache"
	"github.com/stemsi/quizcraft-backend/internal/config"
	"github.com/stemsi/quizcraft-backend/internal/database"
	"github.com/stemsi/quizcraft-backend/internal/handler"
	"github.com/stemsi/quizcraft-backend/internal/logger"
	"github.com/stemsi/quizcraft-backend/internal/middleware"
	"github.com/stemsi/quizcraft-backend/internal/repository"
	"github.com/stemsi/quizcraft-backend/internal/router"
	"github.com/stemsi/quizcraft-backend/internal/service"
	"github.com/stemsi/quizcraft-backend/internal/validator"
	"github.com/stemsi/quizcraft-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting QuizCraft Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	// ─── Initialize Redis Stores ───────────────────────────────────────
	quizCache := cache.NewQuizCache(rdb, cfg.QuizCacheTTL)
	deadlines := cache.NewDeadlineQueue(rdb)
	sessions := cache.NewSessionStore(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, sessions, log)
	subjectService := service.NewSubjectService(subjectRepo, log)
	quizService := service.NewQuizService(quizRepo, quizCache, log)
	attemptService := service.NewAttemptService(attemptRepo, quizService, deadlines, log)
	exportService := service.NewExportService(attemptService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, log),
		Auth:    handler.NewAuthHandler(authService, log),
		Subject: handler.NewSubjectHandler(subjectService, log),
		Quiz:    handler.NewQuizHandler(quizService, log),
		Attempt: handler.NewAttemptHandler(attemptService, exportService, log),
		WS:      handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Restore Attempt Deadlines ────────────────────────────────────
	// Re-queue open timed attempts BEFORE the worker starts polling so that
	// attempts started before a Redis flush still expire.
	if n, err := attemptService.RestoreDeadlines(ctx); err != nil {
		log.Warn().Err(err).Msg("Deadline restore failed")
	} else {
		log.Info().Int("attempts", n).Msg("Attempt deadlines restored")
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	expiryWorker := worker.NewExpiryWorker(deadlines, attemptService, cfg.ExpiryPollInterval, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		expiryWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	authLimiter := middleware.NewRateLimiter(workerCtx, cfg.AuthRatePerMinute, time.Minute)
	r := router.SetupRouter(authService, handlers, authLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the current poll to finish.
	workerCancel()
	<-workerDone

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
