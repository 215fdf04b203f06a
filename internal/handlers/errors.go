package handlers

import (
	"context"
	"errors"
	"net/http"

	"consultapp/internal/common"
	"consultapp/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StatusFor maps an error kind to its HTTP status
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrInvalidCredential), errors.Is(err, models.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSlugTaken), errors.Is(err, models.ErrOwnerHasTenant), errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnavailable), errors.Is(err, models.ErrRevocationUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	}
	return "INTERNAL_ERROR"
}

// respondError writes the error envelope. Internal errors never leak their text.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	status := StatusFor(err)

	var validation *models.ValidationError
	if errors.As(err, &validation) {
		return common.SendValidationError(c, validation.Field, validation.Message)
	}

	message := err.Error()
	fields := []zap.Field{
		zap.String("path", c.Path()),
		zap.String("request_id", common.GetRequestIDFromContext(c.Request().Context())),
		zap.Error(err),
	}
	switch status {
	case http.StatusInternalServerError:
		logger.Error("request failed", fields...)
		message = "Internal server error"
	case http.StatusServiceUnavailable:
		logger.Warn("dependency unavailable", fields...)
		message = models.ErrUnavailable.Error()
	}
	return c.JSON(status, common.CreateErrorResponse(errorCode(status), message, nil))
}
