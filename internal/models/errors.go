package models

import "errors"

// Sentinel errors for every precondition failure in the core. Handlers map
// each kind to an HTTP status; none of them is fatal to the process.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidURL             = errors.New("invalid URL")
	ErrNotFound               = errors.New("short URL not found")
	ErrForbidden              = errors.New("short URL belongs to another user")
	ErrUnauthenticated        = errors.New("authentication required")
)
