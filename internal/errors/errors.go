package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
)

type ErrorCategory string

const (
	CategoryIO       ErrorCategory = "IO"       // Reading downloader output
	CategoryContext  ErrorCategory = "CONTEXT"  // Context cancellation
	CategoryProcess  ErrorCategory = "PROCESS"  // Downloader reported a failure
	CategoryListener ErrorCategory = "LISTENER" // Event listener failed
	CategoryStorage  ErrorCategory = "STORAGE"  // Journal persistence
	CategoryUnknown  ErrorCategory = "UNKNOWN"  // Unclassified errors
)

// TrackError is an error raised around progress tracking, tagged with the
// category and the resource (request or listener id) involved.
type TrackError struct {
	Err       error
	Category  ErrorCategory
	Resource  string
	Timestamp time.Time
	Details   map[string]interface{}
}

// Error implements the error interface
func (e *TrackError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Resource, e.Err)
}

// Unwrap provides the underlying cause for error unwrapping (compatible with errors.As)
func (e *TrackError) Unwrap() error {
	return e.Err
}

func newError(err error, category ErrorCategory, resource string) *TrackError {
	return &TrackError{
		Err:       err,
		Category:  category,
		Resource:  resource,
		Timestamp: time.Now(),
	}
}

// NewIOError creates an I/O related error
func NewIOError(err error, resource string) *TrackError {
	return newError(err, CategoryIO, resource)
}

// NewContextError creates a context cancellation error
func NewContextError(err error, resource string) *TrackError {
	return newError(err, CategoryContext, resource)
}

// NewProcessError creates an error for a failure the downloader reported itself.
func NewProcessError(err error, resource string) *TrackError {
	return newError(err, CategoryProcess, resource)
}

// NewListenerError wraps a listener failure with the listener's id.
func NewListenerError(err error, listenerID string) *TrackError {
	return newError(err, CategoryListener, listenerID)
}

// NewStorageError creates a journal persistence error
func NewStorageError(err error, resource string) *TrackError {
	return newError(err, CategoryStorage, resource)
}

// CategoryOf extracts the category from an error
func CategoryOf(err error) ErrorCategory {
	var trackErr *TrackError
	if As(err, &trackErr) {
		return trackErr.Category
	}

	return CategoryUnknown
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var trackErr *TrackError
	return As(err, &trackErr) && trackErr.Category == category
}

// WithDetails adds additional context to a TrackError
func WithDetails(err error, details map[string]interface{}) error {
	var trackErr *TrackError
	if !As(err, &trackErr) {
		return err
	}

	if trackErr.Details == nil {
		trackErr.Details = make(map[string]interface{})
	}

	for k, v := range details {
		trackErr.Details[k] = v
	}

	return trackErr
}
