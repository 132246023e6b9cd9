package domain

import "errors"

// Sentinel errors mapped to HTTP status codes at the httpapi boundary.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation failed")
	ErrNoSystemAgent = errors.New("tenant has no system agent")
)
