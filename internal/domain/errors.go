package domain

import "errors"

// Workflow error taxonomy. Every failure the workflow surfaces wraps one
// of these sentinels; the HTTP layer maps them to status codes.
var (
	ErrNotFound        = errors.New("document not found")
	ErrValidation      = errors.New("invalid document fields")
	ErrForbidden       = errors.New("actor not permitted")
	ErrInvalidState    = errors.New("invalid status transition")
	ErrInvalidToken    = errors.New("invalid or expired approval link")
	ErrMissingCreator  = errors.New("document creator not resolved")
	ErrPipelineFailure = errors.New("document generation failed")
)
