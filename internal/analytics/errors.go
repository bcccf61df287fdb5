package analytics

import "errors"

// Validation failures on write requests, rendered as 400s by callers.
var (
	ErrMissingExercise = errors.New("unknown or missing exercise")
	ErrInvalidReps     = errors.New("reps must be positive")
	ErrInvalidWeight   = errors.New("weight must be positive")
	ErrMissingName     = errors.New("name is required")
)
