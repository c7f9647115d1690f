package models

import "errors"

// Failure kinds. Adapters wrap these with %w so callers can classify with errors.Is.
var (
	ErrFetchFailure       = errors.New("fetch failure")
	ErrComputationFailure = errors.New("computation failure")
	ErrDispatchFailure    = errors.New("dispatch failure")
)

// FailureKind names the class of err for logs and metrics labels.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrFetchFailure):
		return "fetch"
	case errors.Is(err, ErrComputationFailure):
		return "computation"
	case errors.Is(err, ErrDispatchFailure):
		return "dispatch"
	default:
		return "unknown"
	}
}
