package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// statusOf maps a service error kind to an HTTP status.
// Conflicts are client errors on the same footing as validation failures.
func statusOf(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// ErrorResponse writes the standard error body
func ErrorResponse(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, middleware.ErrorResponse{Error: msg, Code: code})
}

// HandleServiceError renders err, logging anything unclassified
func HandleServiceError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		middleware.Logger(c).WithError(err).Error("unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	code := svcErr.Code
	if code == "" {
		code = svcErr.Kind.String()
	}
	ErrorResponse(c, statusOf(svcErr.Kind), code, svcErr.Message)
}

// bindError reports a malformed request body
func bindError(c *gin.Context, err error) {
	ErrorResponse(c, http.StatusBadRequest, "invalid_body", err.Error())
}
