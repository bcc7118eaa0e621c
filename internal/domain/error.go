package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("already processed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrSessionExpired     = errors.New("checkout session expired")
	ErrLocked             = errors.New("resource is locked")
)
