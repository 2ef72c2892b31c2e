package task

import (
	"fmt"

	"scrapinator/pkg/types"
)

// ResponsePreviewLength is how many runes of a rejected LLM response are
// kept on the error for diagnostics.
const ResponsePreviewLength = 500

// AnalysisError wraps a pipeline stage failure with the stage it occurred
// in. Every stage returns errors that unwrap to one of these, so callers
// can report where a run died without string matching.
type AnalysisError struct {
	// Err is the underlying failure.
	Err error

	// Stage is the pipeline stage that failed.
	Stage types.Stage

	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying failure.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates a stage failure wrapping cause.
func NewAnalysisError(stage types.Stage, message string, cause error) *AnalysisError {
	return &AnalysisError{Stage: stage, Message: message, Err: cause}
}

// InvalidResponseError reports an LLM response that could not be used as
// structured output. It carries a truncated copy of the response so the
// failure is diagnosable from logs without replaying the call.
type InvalidResponseError struct {
	// Err is the parse failure, if any.
	Err error

	// Message describes what was wrong with the response.
	Message string

	// Response is the response text, truncated to ResponsePreviewLength
	// runes.
	Response string

	// ResponseLength is the untruncated response length in runes.
	ResponseLength int

	// ExpectedFormat names the format the response should have had.
	ExpectedFormat string
}

// Error implements the error interface.
func (e *InvalidResponseError) Error() string {
	if e.ExpectedFormat != "" {
		return fmt.Sprintf("%s (expected %s)", e.Message, e.ExpectedFormat)
	}
	return e.Message
}

// Unwrap returns the underlying parse failure.
func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// NewInvalidResponseError creates an invalid-response error, truncating
// the response to the preview length.
func NewInvalidResponseError(message, response, expectedFormat string, cause error) *InvalidResponseError {
	runes := []rune(response)
	preview := response
	if len(runes) > ResponsePreviewLength {
		preview = string(runes[:ResponsePreviewLength])
	}
	return &InvalidResponseError{
		Message:        message,
		Response:       preview,
		ResponseLength: len(runes),
		ExpectedFormat: expectedFormat,
		Err:            cause,
	}
}

// ValidationError reports a model value that violates its invariants.
type ValidationError struct {
	// Message is the full failure description.
	Message string

	// Field names the violating field.
	Field string

	// Value is the rejected value, rendered as a string.
	Value string

	// Expected describes what the field required.
	Expected string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("validation failed for field %q: expected %s", e.Field, e.Expected)
}
