package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/response"
	"github.com/stemsi/quizcraft-backend/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AttemptRunner is implemented by *service.AttemptService.
type AttemptRunner interface {
	Start(ctx context.Context, quizID, userID uuid.UUID) (*model.Attempt, error)
	SubmitAnswer(ctx context.Context, attemptID, userID, questionID uuid.UUID, value model.AnswerValue) (*model.SubmittedAnswer, error)
	Complete(ctx context.Context, attemptID, userID uuid.UUID) (*model.Attempt, error)
	Results(ctx context.Context, attemptID, userID uuid.UUID) (*model.AttemptResults, error)
	ListByQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]model.AttemptSummary, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]model.LearnerAttempt, error)
}

// AttemptExporter is implemented by *service.ExportService.
type AttemptExporter interface {
	WriteAttemptsXLSX(ctx context.Context, quizID, userID uuid.UUID, w io.Writer) error
}

// AttemptHandler handles quiz taking and results endpoints.
type AttemptHandler struct {
	attempts AttemptRunner
	exporter AttemptExporter
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts AttemptRunner, exporter AttemptExporter, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		exporter: exporter,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// StartAttempt godoc
// POST /api/v1/quizzes/:id/attempts
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	attempt, err := h.attempts.Start(c.Request.Context(), quizID, userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// ListMyAttempts godoc
// GET /api/v1/attempts/mine
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	attempts, err := h.attempts.ListMine(c.Request.Context(), userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// SubmitAnswer godoc
// PUT /api/v1/attempts/:id/answers/:question_id
// Grades the answer immediately. Answering the same question again overwrites the previous answer.
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := uuidParam(c, "question_id")
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if req.Answer.IsAbsent() {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"answer": "answer is a required field"})
		return
	}

	answer, err := h.attempts.SubmitAnswer(c.Request.Context(), attemptID, userID, questionID, req.Answer)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// CompleteAttempt godoc
// POST /api/v1/attempts/:id/complete
func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	attempt, err := h.attempts.Complete(c.Request.Context(), attemptID, userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetResults godoc
// GET /api/v1/attempts/:id/results
// Visible to the learner who owns the attempt and to the quiz creator.
func (h *AttemptHandler) GetResults(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	results, err := h.attempts.Results(c.Request.Context(), attemptID, userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ListQuizAttempts godoc
// GET /api/v1/quizzes/:id/attempts
func (h *AttemptHandler) ListQuizAttempts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	attempts, err := h.attempts.ListByQuiz(c.Request.Context(), quizID, userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// ExportQuizAttempts godoc
// GET /api/v1/quizzes/:id/attempts/export
// Streams an XLSX workbook with one row per attempt.
func (h *AttemptHandler) ExportQuizAttempts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.WriteAttemptsXLSX(c.Request.Context(), quizID, userID, &buf); err != nil {
		failService(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"attempts-%s.xlsx\"", quizID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
