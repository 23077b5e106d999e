package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrUnauthenticated = fmt.Errorf("not authenticated")
	ErrTransient       = fmt.Errorf("temporarily unavailable")
	ErrTimeout         = fmt.Errorf("operation timed out")

	// Lookup errors
	ErrNotFound = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// APIError is returned when the catalog API rejects a well-formed request.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog API error: status %d", e.Status)
	}
	return fmt.Sprintf("catalog API error (status %d): %s", e.Status, e.Message)
}

// Is lets a 404 from the catalog match [ErrNotFound].
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Failure is a media resolution or download process error.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("media failure: %s: %v", f.Message, f.Err)
	}
	return "media failure: " + f.Message
}

func (f *Failure) Unwrap() error { return f.Err }

// Exit codes returned by the CLI for each failure class.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitUnauthenticated = 3
	ExitTransient       = 4
	ExitNotFound        = 5
	ExitAPIError        = 6
)

// ExitCode maps an error onto the CLI exit code for its failure class.
func ExitCode(err error) int {
	var apiErr *APIError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUnauthenticated):
		return ExitUnauthenticated
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout):
		return ExitTransient
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.As(err, &apiErr):
		return ExitAPIError
	default:
		return ExitFailure
	}
}
