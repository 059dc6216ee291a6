package bracket

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("match state conflict")
	ErrGeneration    = errors.New("bracket generation failed")

	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchCompleted   = errors.New("match has already been completed")
	ErrMatchNotReady    = errors.New("both players must be assigned before reporting a result")
	ErrWinnerNotInMatch = errors.New("winner must be one of the match participants")

	ErrMissingMatch    = errors.New("bracket position has no match record")
	ErrUnexpectedMatch = errors.New("match record does not belong to the bracket layout")
	ErrSlotMismatch    = errors.New("stored player does not match the bracket result")
)

// ValidationError is bad caller input. Nothing has been written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StateConflictError means the stored bracket does not allow the requested
// transition. Retrying the same request will fail the same way.
type StateConflictError struct {
	Key MatchKey
	Err error
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *StateConflictError) Unwrap() error {
	return e.Err
}

func (e *StateConflictError) Is(target error) bool {
	return target == ErrStateConflict
}

type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return "bracket generation failed: " + e.Reason
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}
