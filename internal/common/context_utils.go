package common

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"consultapp/internal/models"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	SubjectKey   contextKey = "subject"
	RequestIDKey contextKey = "request_id"
)

// EchoSubjectKey is the key under which the guard stores the subject on the echo context
const EchoSubjectKey = "subject"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// ContextWithSubject returns a copy of ctx carrying the resolved subject
func ContextWithSubject(ctx context.Context, subject *models.Subject) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetSubjectFromContext extracts the subject attached by the session guard
func GetSubjectFromContext(ctx context.Context) (*models.Subject, bool) {
	subject, ok := ctx.Value(SubjectKey).(*models.Subject)
	return subject, ok && subject != nil && subject.ID != ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestIDFromContext returns "" when no request id was attached
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// IsUnderPrefix reports whether path equals prefix or lives below it.
// "/admin" matches "/admin" and "/admin/theme" but not "/administrator".
func IsUnderPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// LoginRedirectURL builds the login URL carrying the originally requested path
func LoginRedirectURL(loginPath, param, originalPath string) string {
	if originalPath == "" {
		originalPath = "/"
	}
	q := url.Values{}
	q.Set(param, originalPath)
	return loginPath + "?" + q.Encode()
}
