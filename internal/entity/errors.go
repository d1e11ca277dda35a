package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Corpus errors
	ErrChapterNotFound   = errors.New("chapter not found")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// Backend errors
	ErrEmptyCompletion = errors.New("generation backend returned no content")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// GenerationError is returned when the generation backend fails to answer.
type GenerationError struct {
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ConnectivityError is returned when a backend cannot be reached.
type ConnectivityError struct {
	Backend string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s backend unreachable: %v", e.Backend, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
