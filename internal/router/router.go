package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizcraft-backend/internal/config"
	"github.com/stemsi/quizcraft-backend/internal/handler"
	"github.com/stemsi/quizcraft-backend/internal/middleware"
	"github.com/stemsi/quizcraft-backend/internal/response"
)

const exportPath = "/api/v1/quizzes/:id/attempts/export"

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Subject *handler.SubjectHandler
	Quiz    *handler.QuizHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
}

// Guard is the token and session checker behind the auth middlewares.
// Implemented by *service.AuthService.
type Guard interface {
	middleware.TokenValidator
	middleware.SessionValidator
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	guard Guard,
	handlers *Handlers,
	authLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// XLSX is already zip-compressed.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		Skipper: func(c *gin.Context) bool {
			return c.FullPath() == exportPath
		},
	}))

	// Health check.
	router.GET("/health", handlers.Health.Health)

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(middleware.CacheControl(60))
	{
		publicAPI.GET("/subjects", handlers.Subject.GetAll)
		publicAPI.GET("/quizzes", handlers.Quiz.ListPublicQuizzes)
	}
	router.GET("/api/v1/health", handlers.Health.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireUserJWT(guard), middleware.CheckActiveSession(guard), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireUserJWT(guard), middleware.CheckActiveSession(guard), handlers.Auth.Me)
	}

	// ─── 2. User Group (JWT + Active Session) ──────────────────────────
	userAPI := router.Group("/api/v1")
	userAPI.Use(
		middleware.RequireUserJWT(guard),
		middleware.CheckActiveSession(guard),
	)
	{
		userAPI.POST("/subjects", handlers.Subject.Create)

		// Quiz authoring
		userAPI.POST("/quizzes", handlers.Quiz.CreateQuiz)
		userAPI.GET("/quizzes/mine", handlers.Quiz.ListMyQuizzes)
		userAPI.GET("/quizzes/:id", handlers.Quiz.GetQuiz)
		userAPI.DELETE("/quizzes/:id", handlers.Quiz.DeleteQuiz)
		userAPI.GET("/quizzes/:id/attempts", handlers.Attempt.ListQuizAttempts)
		userAPI.GET("/quizzes/:id/attempts/export", middleware.NoStore(), handlers.Attempt.ExportQuizAttempts)

		// Quiz taking
		userAPI.GET("/quizzes/:id/take", handlers.Quiz.GetQuizPaper)
		userAPI.POST("/quizzes/:id/attempts", handlers.Attempt.StartAttempt)
		userAPI.GET("/attempts/mine", handlers.Attempt.ListMyAttempts)
		userAPI.PUT("/attempts/:id/answers/:question_id", handlers.Attempt.SubmitAnswer)
		userAPI.POST("/attempts/:id/complete", handlers.Attempt.CompleteAttempt)
		userAPI.GET("/attempts/:id/results", middleware.NoStore(), handlers.Attempt.GetResults)
	}

	// ─── 3. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(guard), middleware.CheckActiveSession(guard))
	{
		ws.GET("/attempts/:id/timer", handlers.WS.AttemptTimerStream)
	}

	return router
}
