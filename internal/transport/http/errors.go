package http

import (
	"errors"
	"fmt"
	"net/http"

	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/logger"

	"github.com/gin-gonic/gin"
)

const serverErrorMessage = "Server error"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse acknowledges a request that has nothing else to return.
type MessageResponse struct {
	Message string `json:"message"`
}

// statusFor maps a use-case error to a status and a message safe to show the caller.
// Persistence and consistency failures are checked first because they may wrap a not-found sentinel.
func statusFor(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrPersistence), errors.Is(err, domain.ErrInternalConsistency):
		return http.StatusInternalServerError, serverErrorMessage
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound, "Quiz not found"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound, "Question not found"
	case errors.Is(err, domain.ErrCategoryNotFound):
		return http.StatusNotFound, "Category not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound, "Result not found"
	case errors.As(err, &verr):
		return http.StatusBadRequest, fmt.Sprintf("%s %s", verr.Field, verr.Reason)
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusBadRequest, "Already exists"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, domain.ErrStorageDisabled):
		return http.StatusServiceUnavailable, "File uploads are not available"
	}
	return http.StatusInternalServerError, serverErrorMessage
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).WithError(err).Error("request failed")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Message: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: msg})
}
