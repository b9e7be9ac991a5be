package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/response"
	"github.com/stemsi/quizcraft-backend/internal/validator"
)

// SubjectCatalog is implemented by *service.SubjectService.
type SubjectCatalog interface {
	GetAll(ctx context.Context) ([]model.Subject, error)
	Create(ctx context.Context, sub *model.Subject) error
}

type SubjectHandler struct {
	subjects SubjectCatalog
	log      zerolog.Logger
}

func NewSubjectHandler(subjects SubjectCatalog, log zerolog.Logger) *SubjectHandler {
	return &SubjectHandler{
		subjects: subjects,
		log:      log.With().Str("component", "subject_handler").Logger(),
	}
}

// GetAll godoc
// GET /api/v1/public/subjects
func (h *SubjectHandler) GetAll(c *gin.Context) {
	subjects, err := h.subjects.GetAll(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}

	if subjects == nil {
		subjects = []model.Subject{}
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// Create godoc
// POST /api/v1/subjects
func (h *SubjectHandler) Create(c *gin.Context) {
	var req model.CreateSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub := &model.Subject{Name: req.Name, Description: req.Description}
	if err := h.subjects.Create(c.Request.Context(), sub); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"subject": sub})
}
