package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docindex/internal/domain"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func respondWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{ErrorCode: code, Message: message})
}

// respondWithEngineError maps the engine's error taxonomy to HTTP statuses.
func (s *Server) respondWithEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondWithError(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		respondWithError(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrDependency):
		respondWithError(c, http.StatusServiceUnavailable, "dependency_unavailable", err.Error())
	default:
		s.logger.Error("unhandled engine error", "error", err, "request_id", c.GetString(requestIDKey))
		respondWithError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// respondWithBindError reports a body that could not be decoded.
func respondWithBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondWithError(c, http.StatusRequestEntityTooLarge, "request_too_large", "request body exceeds maximum size")
		return
	}
	respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
}
