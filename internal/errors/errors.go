package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Custom error types for the form extraction pipeline
 *
 * Only fatal conditions are errors. Recognition degradation flows downstream as
 * empty text and validation failures are a normal outcome, so neither has a code here.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"

	// Layout / structure errors
	ErrorStructuralExtraction ErrorCode = "STRUCTURAL_EXTRACTION"

	// Collaborator errors
	ErrorRasterizeFailed       ErrorCode = "RASTERIZE_FAILED"
	ErrorTableExtractionFailed ErrorCode = "TABLE_EXTRACTION_FAILED"

	// Timeouts
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code       ErrorCode
	Message    string
	DocumentID string
	Timestamp  time.Time
	Details    map[string]interface{}
	Cause      error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// WithDocument returns a copy of the error tagged with a document ID.
func (e *ProcessingError) WithDocument(documentID string) *ProcessingError {
	c := *e
	c.DocumentID = documentID
	return &c
}

// Factory functions for common errors

func NewInvalidInputError(path string, reason string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidInput,
		Message:   reason,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

func NewStructuralError(stage string, message string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStructuralExtraction,
		Message:   message,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"stage": stage,
		},
	}
}

// NewMissingLineError reports a layout anchor that the template requires but the page lacks.
func NewMissingLineError(field string, index int, found int) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStructuralExtraction,
		Message:   fmt.Sprintf("anchor line %d required by %q not found (%d lines detected)", index, field, found),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"stage":      "locate",
			"field":      field,
			"line_index": index,
			"lines":      found,
		},
	}
}

func NewRasterizeFailedError(path string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorRasterizeFailed,
		Message:   "Failed to rasterize document",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path": path,
		},
		Cause: cause,
	}
}

func NewTableExtractionFailedError(path string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorTableExtractionFailed,
		Message:   "Failed to extract raw tables",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path": path,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(documentID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:       ErrorProcessingTimeout,
		Message:    fmt.Sprintf("Processing timed out after %v", duration),
		DocumentID: documentID,
		Timestamp:  time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

// CodeOf returns the code of the first ProcessingError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func IsInvalidInput(err error) bool {
	return CodeOf(err) == ErrorInvalidInput
}

func IsStructural(err error) bool {
	return CodeOf(err) == ErrorStructuralExtraction
}

// IsFatalForDocument reports errors that a retry of the same document cannot fix.
func IsFatalForDocument(err error) bool {
	switch CodeOf(err) {
	case ErrorInvalidInput, ErrorStructuralExtraction:
		return true
	}
	return false
}

// ToMap converts error to map for event payloads
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	if e.DocumentID != "" {
		result["document_id"] = e.DocumentID
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
