package engine

import (
	"errors"
	"fmt"
)

// ScrubError represents an error detected during traversal.
//
// Traversal errors include:
//   - Schema mismatch: a classified field's value is not a scalar of
//     the category's declared kind
//   - Max depth exceeded: nesting deeper than the configured bound
//   - Cyclic graph: a container reached through itself
//
// ScrubError includes structured fields for diagnostics.
type ScrubError struct {
	// Code identifies the error category.
	Code ScrubErrorCode

	// Message is a human-readable description.
	Message string

	// Path locates the offending node, e.g. "users[2].email".
	Path string

	// Category is the PII category involved (schema mismatches only).
	Category string

	// Details contains additional context.
	Details map[string]string
}

// ScrubErrorCode categorizes traversal errors.
type ScrubErrorCode string

const (
	// ErrCodeSchemaMismatch indicates a classified field whose actual
	// value does not match the category's declared kind.
	ErrCodeSchemaMismatch ScrubErrorCode = "SCHEMA_MISMATCH"

	// ErrCodeMaxDepthExceeded indicates nesting beyond the depth bound.
	ErrCodeMaxDepthExceeded ScrubErrorCode = "MAX_DEPTH_EXCEEDED"

	// ErrCodeCyclicGraph indicates the input graph contains a cycle.
	ErrCodeCyclicGraph ScrubErrorCode = "CYCLIC_GRAPH"
)

// Error implements the error interface.
func (e *ScrubError) Error() string {
	if e.Path != "" && e.Category != "" {
		return fmt.Sprintf("%s: %s (path=%s, category=%s)", e.Code, e.Message, e.Path, e.Category)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSchemaMismatch reports whether err is a schema mismatch.
// Uses errors.As to handle wrapped errors.
func IsSchemaMismatch(err error) bool {
	var se *ScrubError
	return errors.As(err, &se) && se.Code == ErrCodeSchemaMismatch
}

// IsMaxDepthExceeded reports whether err is a depth-bound violation.
func IsMaxDepthExceeded(err error) bool {
	var se *ScrubError
	return errors.As(err, &se) && se.Code == ErrCodeMaxDepthExceeded
}

// IsCyclicGraph reports whether err is a cycle detection error.
func IsCyclicGraph(err error) bool {
	var se *ScrubError
	return errors.As(err, &se) && se.Code == ErrCodeCyclicGraph
}

// NewSchemaMismatchError creates a ScrubError for a classified field
// whose value has the wrong shape or kind.
func NewSchemaMismatchError(path, category, want, got string) *ScrubError {
	return &ScrubError{
		Code:     ErrCodeSchemaMismatch,
		Message:  fmt.Sprintf("classified field must be a %s scalar, found %s", want, got),
		Path:     path,
		Category: category,
		Details: map[string]string{
			"want": want,
			"got":  got,
		},
	}
}

// NewUnknownRecordError creates a ScrubError for a descriptor
// referencing a record type the schema does not describe.
func NewUnknownRecordError(path, recordType string) *ScrubError {
	return &ScrubError{
		Code:    ErrCodeSchemaMismatch,
		Message: fmt.Sprintf("schema does not describe record type %q", recordType),
		Path:    path,
	}
}

// NewMaxDepthError creates a ScrubError for exceeding the depth bound.
func NewMaxDepthError(path string, maxDepth int) *ScrubError {
	return &ScrubError{
		Code:    ErrCodeMaxDepthExceeded,
		Message: fmt.Sprintf("traversal exceeded max depth (%d)", maxDepth),
		Path:    path,
		Details: map[string]string{
			"max_depth": fmt.Sprintf("%d", maxDepth),
		},
	}
}

// NewCycleError creates a ScrubError for a cyclic input graph.
func NewCycleError(path string) *ScrubError {
	return &ScrubError{
		Code:    ErrCodeCyclicGraph,
		Message: "input graph contains a cycle",
		Path:    path,
	}
}
