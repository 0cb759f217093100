package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions callers branch on. Wrap with %w so
// errors.Is works through fmt.Errorf chains.
var (
	// ErrNotFound: unknown definition, document, or state.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate: registering a definition id that already exists.
	ErrDuplicate = errors.New("already registered")

	// ErrValidation: malformed definition config.
	ErrValidation = errors.New("invalid definition")

	// ErrNoWorkflow: no active definition for the document's type.
	ErrNoWorkflow = errors.New("no workflow configured")

	// ErrInvalidState: transition attempted on a non-active workflow.
	ErrInvalidState = errors.New("workflow not active")

	// ErrNoTransition: no rule matches (current stage, action).
	ErrNoTransition = errors.New("no transition")

	// ErrTransitionRejected: a transition condition did not hold.
	ErrTransitionRejected = errors.New("transition rejected")

	// ErrPermissionDenied: actor lacks a required role.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStageExecution: the interpreter reported a stage failure.
	ErrStageExecution = errors.New("stage execution failed")

	// ErrConflict: optimistic version check failed on a state update.
	ErrConflict = errors.New("state version conflict")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
