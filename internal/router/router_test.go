package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/config"
	"github.com/stemsi/quizcraft-backend/internal/handler"
	"github.com/stemsi/quizcraft-backend/internal/middleware"
	"github.com/stemsi/quizcraft-backend/internal/response"
	"github.com/stemsi/quizcraft-backend/internal/service"
)

type denyGuard struct{}

func (denyGuard) ValidateToken(string) (*service.Claims, error) {
	return nil, errors.New("invalid token")
}

func (denyGuard) ValidateSession(context.Context, uuid.UUID, string) error {
	return service.ErrSessionInvalidated
}

// loggedOutGuard accepts the token signature but reports the session as replaced.
type loggedOutGuard struct{ denyGuard }

func (loggedOutGuard) ValidateToken(string) (*service.Claims, error) {
	return &service.Claims{UserID: uuid.New()}, nil
}

func setup(t *testing.T) *gin.Engine {
	return setupWithGuard(t, denyGuard{})
}

func setupWithGuard(t *testing.T, guard Guard) *gin.Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := zerolog.Nop()
	handlers := &Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": func(context.Context) error { return nil },
		}, log),
		Auth:    handler.NewAuthHandler(nil, log),
		Subject: handler.NewSubjectHandler(nil, log),
		Quiz:    handler.NewQuizHandler(nil, log),
		Attempt: handler.NewAttemptHandler(nil, nil, log),
		WS:      handler.NewWSHandler(nil, log, nil),
	}
	cfg := &config.Config{GinMode: "test"}
	return SetupRouter(guard, handlers, middleware.NewRateLimiter(ctx, 100, time.Minute), cfg)
}

func TestRoutesRegistered(t *testing.T) {
	want := []string{
		"GET /health",
		"GET /api/v1/health",
		"GET /api/v1/public/subjects",
		"GET /api/v1/public/quizzes",
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/logout",
		"GET /api/v1/auth/me",
		"POST /api/v1/subjects",
		"POST /api/v1/quizzes",
		"GET /api/v1/quizzes/mine",
		"GET /api/v1/quizzes/:id",
		"GET /api/v1/quizzes/:id/take",
		"DELETE /api/v1/quizzes/:id",
		"GET /api/v1/quizzes/:id/attempts",
		"GET /api/v1/quizzes/:id/attempts/export",
		"POST /api/v1/quizzes/:id/attempts",
		"GET /api/v1/attempts/mine",
		"PUT /api/v1/attempts/:id/answers/:question_id",
		"POST /api/v1/attempts/:id/complete",
		"GET /api/v1/attempts/:id/results",
		"GET /ws/v1/attempts/:id/timer",
	}

	registered := make(map[string]bool)
	for _, route := range setup(t).Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, route := range want {
		if !registered[route] {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := setup(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/quizzes/mine"},
		{http.MethodPost, "/api/v1/attempts/" + uuid.NewString() + "/complete"},
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/ws/v1/attempts/" + uuid.NewString() + "/timer"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestTimerStreamRequiresActiveSession(t *testing.T) {
	r := setupWithGuard(t, loggedOutGuard{})

	req := httptest.NewRequest(http.MethodGet, "/ws/v1/attempts/"+uuid.NewString()+"/timer?token=stale", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == nil || body.Error.Code != response.ErrSessionInvalidated {
		t.Fatalf("error = %+v, want %s", body.Error, response.ErrSessionInvalidated)
	}
}

func TestHealthIsPublic(t *testing.T) {
	r := setup(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}
