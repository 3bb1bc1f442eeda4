package common

import "errors"

// Callers should match these values with errors.Is; repositories and services
// wrap them with context using fmt.Errorf("...: %w", err).
var (
	// Input errors. The user must correct the request.
	ErrValidation   = errors.New("validation error")
	ErrDuplicateKey = errors.New("duplicate key")

	// Repository-level errors.
	ErrNotFound       = errors.New("not found")
	ErrStorageFailure = errors.New("storage failure")

	// Auth errors. ErrInvalidCredentials is deliberately generic.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// Transcription failures never abort the recording pipeline.
	ErrTranscriptionFailure = errors.New("transcription failure")

	ErrInternal = errors.New("internal error")
)
