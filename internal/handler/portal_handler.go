package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/response"
	"github.com/examportal/backend/internal/service"
	"github.com/examportal/backend/internal/validator"
)

// PortalHandler handles the student-facing endpoints: the access gate and
// the attempt snapshot upsert. Neither endpoint requires a token; the exam
// code plus registered email is the whole credential.
type PortalHandler struct {
	accessService  *service.AccessService
	attemptService *service.AttemptService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(accessService *service.AccessService, attemptService *service.AttemptService) *PortalHandler {
	return &PortalHandler{accessService: accessService, attemptService: attemptService}
}

// Access godoc
// POST /api/v1/exams/access
// Validates exam code + student email and returns the key-stripped exam
// payload plus any prior attempt to resume from.
func (h *PortalHandler) Access(c *gin.Context) {
	var req model.AccessRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.accessService.Validate(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		case errors.Is(err, service.ErrInvalidExamCode):
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidExamCode)
		case errors.Is(err, service.ErrStudentNotEnrolled):
			response.Fail(c, http.StatusForbidden, response.ErrStudentNotEnrolled)
		case errors.Is(err, service.ErrAttemptCompleted):
			response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// UpsertAttempt godoc
// POST /api/v1/exams/:id/answers
// Applies one full-snapshot save. Writes against a completed attempt are
// rejected with ATTEMPT_COMPLETED so stale sessions cannot clobber a
// submitted exam.
func (h *PortalHandler) UpsertAttempt(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AttemptUpsertRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Upsert(c.Request.Context(), examID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		case errors.Is(err, service.ErrAttemptCompleted):
			response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}
