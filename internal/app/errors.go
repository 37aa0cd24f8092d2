package app

import (
	"fmt"
	"net/http"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/content"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(fields content.FieldErrors) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", map[string]string(fields))
}

func invalidField(field, message string) *DomainError {
	return validationError(content.FieldErrors{field: message})
}

func notFoundError(entity string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", entity+" not found", nil)
}

var (
	errForbidden         = domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	errInvalidCreds      = domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	errSlugTaken         = domainError(http.StatusConflict, "SLUG_TAKEN", "Slug is already in use", nil)
	errMediaUnavailable  = domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage is not configured", nil)
	errExportUnavailable = domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export requires Chromium", nil)
)
