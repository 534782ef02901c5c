// Package errhandling provides error types, classification, and retry utilities.
// This file defines the error categories of a cleaning run and the helpers
// used to classify errors at line, record, file, and run granularity.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"

	"github.com/projectyurei/corpus-cleaner-cli/internal/codec"
	"github.com/projectyurei/corpus-cleaner-cli/internal/dedup"
)

// ErrorCategory represents the type/category of an error.
// Categories determine how far an error propagates.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryMalformedRecord is a line that is not valid JSON.
	// Recovered locally: the line is skipped.
	CategoryMalformedRecord ErrorCategory = "malformed_record"

	// CategoryMissingIdentity is a record without an extractable identity.
	// Treated as a drop decision, never surfaced.
	CategoryMissingIdentity ErrorCategory = "missing_identity"

	// CategoryFileIO is a failure to read an input or write an output.
	// Recovered at file granularity.
	CategoryFileIO ErrorCategory = "file_io"

	// CategoryConfiguration is a pre-run failure. Fatal for the run.
	CategoryConfiguration ErrorCategory = "configuration"

	// CategoryNetwork is a failure talking to a report sink.
	// Transient and retryable.
	CategoryNetwork ErrorCategory = "network"

	// CategoryCancelled means the run was interrupted.
	CategoryCancelled ErrorCategory = "cancelled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Retryable indicates whether the error is transient and can be retried.
	Retryable bool

	// Path is the file the error relates to (empty if none).
	Path string

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error (%s): %s", e.Category, e.Path, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned unchanged.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Category: CategoryCancelled, Message: "context canceled", OriginalErr: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ClassifiedError{Category: CategoryNetwork, Retryable: true, Message: "timeout", OriginalErr: err}
	case errors.Is(err, codec.ErrMalformedRecord):
		return &ClassifiedError{Category: CategoryMalformedRecord, Message: err.Error(), OriginalErr: err}
	case errors.Is(err, dedup.ErrMissingIdentity):
		return &ClassifiedError{Category: CategoryMissingIdentity, Message: err.Error(), OriginalErr: err}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &ClassifiedError{
			Category:    CategoryFileIO,
			Path:        pathErr.Path,
			Message:     fmt.Sprintf("%s: %v", pathErr.Op, pathErr.Err),
			OriginalErr: err,
		}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return &ClassifiedError{Category: CategoryNetwork, Retryable: true, Message: err.Error(), OriginalErr: err}
	}

	// Unknown errors are retryable by default (transient more likely than permanent).
	return &ClassifiedError{
		Category:    CategoryUnknown,
		Retryable:   true,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// IsRetryable returns true if the error is classified as retryable.
// Nil errors return false.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Retryable
}

// IsFatal returns true if the error must abort the whole run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return GetErrorCategory(err) == CategoryConfiguration
}

// GetErrorCategory returns the category of err after classification.
// Returns CategoryUnknown for nil errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// NewFileIOError creates a file-level error for path.
func NewFileIOError(path, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryFileIO,
		Path:        path,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewConfigurationError creates a run-level error that prevents processing.
func NewConfigurationError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryConfiguration,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewNetworkError creates a retryable report-sink error.
func NewNetworkError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryNetwork,
		Retryable:   true,
		Message:     message,
		OriginalErr: originalErr,
	}
}
