package app

import (
	"errors"
	"fmt"
	"net/http"

	"procure/api/internal/authpw"
	"procure/api/internal/domain"
)

// DomainError is the HTTP-facing envelope for a workflow failure.
type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// toDomainError maps the workflow error taxonomy onto status codes. Every
// failure a handler surfaces goes through here; unrecognized errors come
// back as an opaque 500.
func toDomainError(err error) *DomainError {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return &DomainError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "Document not found"}
	case errors.Is(err, domain.ErrValidation):
		return &DomainError{Status: http.StatusBadRequest, Code: "VALIDATION", Message: "Invalid document fields"}
	case errors.Is(err, domain.ErrForbidden):
		return &DomainError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "Not permitted for this actor"}
	case errors.Is(err, domain.ErrInvalidState):
		return &DomainError{Status: http.StatusBadRequest, Code: "INVALID_STATE", Message: "Action not allowed in the document's current status"}
	case errors.Is(err, domain.ErrInvalidToken):
		return &DomainError{Status: http.StatusBadRequest, Code: "INVALID_TOKEN", Message: "Invalid or expired link"}
	case errors.Is(err, domain.ErrMissingCreator):
		return &DomainError{Status: http.StatusConflict, Code: "MISSING_CREATOR", Message: "Document creator could not be resolved"}
	case errors.Is(err, domain.ErrPipelineFailure):
		return &DomainError{Status: http.StatusBadGateway, Code: "PIPELINE_FAILURE", Message: "Document generation failed"}
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return &DomainError{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	default:
		return &DomainError{Status: http.StatusInternalServerError, Code: "INTERNAL", Message: "Internal error"}
	}
}
