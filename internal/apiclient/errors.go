package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrTimedOut is returned when an asynchronous job does not complete in time.
	ErrTimedOut = errors.New("timed out waiting for result")
	// ErrNotFound is returned when a provider has no match for the request.
	ErrNotFound = errors.New("no result found")
)

// ResponseCodeError is returned once the retry budget is spent on timeouts or non-2xx responses.
// StatusCode is zero when the final attempt timed out.
type ResponseCodeError struct {
	Provider   string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *ResponseCodeError) Error() string {
	return fmt.Sprintf("%s: no successful response after %d attempts (last status %d): %v", e.Provider, e.Attempts, e.StatusCode, e.Err)
}

func (e *ResponseCodeError) Unwrap() error {
	return e.Err
}

// ResponseError reports a failure signalled inside an otherwise successful response.
type ResponseError struct {
	Provider string
	Message  string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ResourceError reports an exhausted quota or credit balance. Callers should stop
// issuing calls of the same kind for the rest of the run.
type ResourceError struct {
	Provider string
	Message  string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: resource exhausted: %s", e.Provider, e.Message)
}

// IsResourceError reports whether err wraps a ResourceError.
func IsResourceError(err error) bool {
	var target *ResourceError
	return errors.As(err, &target)
}
