package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Ledger errors
	ErrMsgInsufficientResources = "insufficient resources"

	// Tool errors
	ErrMsgToolNotFound       = "tool not found"
	ErrMsgToolAlreadyWorking = "tool is already working"
	ErrMsgToolNotBound       = "tool is not bound to this session"
	ErrMsgToolDamaged        = "tool is damaged"

	// Session errors
	ErrMsgSessionNotFound  = "mining session not found"
	ErrMsgSessionNotActive = "mining session is not active"
	ErrMsgLandUnavailable  = "land is unavailable"

	// Settlement warnings
	ErrMsgGrainInsufficient = "grain insufficient, session paused"

	// Recipe errors
	ErrMsgRecipeNotFound = "recipe not found"

	// Concurrency errors
	ErrMsgBusy = "resource busy, retry later"

	// Validation errors
	ErrMsgInvalidInput = "invalid input"

	// Database/System errors
	ErrMsgDatabaseError = "database error"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// Ledger errors
	ErrInsufficientResources = errors.New(ErrMsgInsufficientResources)

	// Tool errors
	ErrToolNotFound       = errors.New(ErrMsgToolNotFound)
	ErrToolAlreadyWorking = errors.New(ErrMsgToolAlreadyWorking)
	ErrToolNotBound       = errors.New(ErrMsgToolNotBound)
	ErrToolDamaged        = errors.New(ErrMsgToolDamaged)

	// Session errors
	ErrSessionNotFound  = errors.New(ErrMsgSessionNotFound)
	ErrSessionNotActive = errors.New(ErrMsgSessionNotActive)
	ErrLandUnavailable  = errors.New(ErrMsgLandUnavailable)

	// ErrGrainInsufficient is a soft condition: settlement partially applied
	// up to the grain available and the session was force-paused. Callers
	// surface it as a warning, never as a failed operation.
	ErrGrainInsufficient = errors.New(ErrMsgGrainInsufficient)

	// Recipe errors
	ErrRecipeNotFound = errors.New(ErrMsgRecipeNotFound)

	// ErrBusy means a lock could not be acquired within the retry budget.
	// No state changed; the operation is safe to retry.
	ErrBusy = errors.New(ErrMsgBusy)

	// Validation errors
	ErrInvalidInput = errors.New(ErrMsgInvalidInput)

	// Database/System errors
	ErrDatabaseError = errors.New(ErrMsgDatabaseError)
)
