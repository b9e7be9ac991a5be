package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/response"
	"github.com/stemsi/quizcraft-backend/internal/validator"
)

// QuizManager is implemented by *service.QuizService.
type QuizManager interface {
	Create(ctx context.Context, creatorID uuid.UUID, req *model.CreateQuizRequest) (*model.QuizAggregate, error)
	GetForLearner(ctx context.Context, quizID, userID uuid.UUID) (*model.QuizPaper, error)
	GetForCreator(ctx context.Context, quizID, userID uuid.UUID) (*model.QuizAggregate, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]model.Quiz, error)
	ListPublic(ctx context.Context, page, perPage int) ([]model.Quiz, *response.Pagination, error)
	Delete(ctx context.Context, quizID, userID uuid.UUID) error
}

// QuizHandler handles quiz authoring and reading endpoints.
type QuizHandler struct {
	quizzes QuizManager
	log     zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizzes QuizManager, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizzes: quizzes,
		log:     log.With().Str("component", "quiz_handler").Logger(),
	}
}

// CreateQuiz godoc
// POST /api/v1/quizzes
// Creates the quiz with all of its questions, options and answer keys in one transaction.
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	agg, err := h.quizzes.Create(c.Request.Context(), userID, &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": agg})
}

// ListMyQuizzes godoc
// GET /api/v1/quizzes/mine
func (h *QuizHandler) ListMyQuizzes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	quizzes, err := h.quizzes.ListMine(c.Request.Context(), userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// ListPublicQuizzes godoc
// GET /api/v1/public/quizzes?page=1&per_page=10
func (h *QuizHandler) ListPublicQuizzes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	quizzes, pagination, err := h.quizzes.ListPublic(c.Request.Context(), page, perPage)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": quizzes}, pagination)
}

// GetQuiz godoc
// GET /api/v1/quizzes/:id
// Returns the full quiz including answer keys. Creator only.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	agg, err := h.quizzes.GetForCreator(c.Request.Context(), quizID, userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": agg})
}

// GetQuizPaper godoc
// GET /api/v1/quizzes/:id/take
// Returns the quiz without answer keys for a learner.
func (h *QuizHandler) GetQuizPaper(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	paper, err := h.quizzes.GetForLearner(c.Request.Context(), quizID, userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": paper})
}

// DeleteQuiz godoc
// DELETE /api/v1/quizzes/:id
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.quizzes.Delete(c.Request.Context(), quizID, userID); err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "quiz deleted successfully"})
}
