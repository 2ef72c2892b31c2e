package llm

import (
	"errors"
	"fmt"
	"time"
)

// CommunicationError reports a failure to communicate with an LLM API:
// connection failures, timeouts, and non-success HTTP responses.
type CommunicationError struct {
	// Err is the underlying transport error, if any.
	Err error

	// Message describes the failure.
	Message string

	// StatusCode is the HTTP status code of the response, or zero for
	// transport-level failures that never produced a response.
	StatusCode int

	// RetryCount is the number of retries performed before giving up.
	// Zero until a retrier wraps the error.
	RetryCount int
}

// Error implements the error interface.
func (e *CommunicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying transport error.
func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// RateLimitError reports that the LLM API rejected a request due to
// rate limiting (HTTP 429).
type RateLimitError struct {
	// Message describes the failure.
	Message string

	// RetryAfter is the server-suggested delay before retrying. Zero when
	// the server did not provide a Retry-After header.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return "rate limit exceeded"
	}
	return e.Message
}

// ContextLengthError reports that a prompt exceeded the model's context
// window.
type ContextLengthError struct {
	// PromptTokens is the token count of the rejected prompt.
	PromptTokens int

	// MaxTokens is the model's context window size.
	MaxTokens int
}

// Error implements the error interface.
func (e *ContextLengthError) Error() string {
	return fmt.Sprintf("prompt length %d tokens exceeds context window of %d by %d tokens",
		e.PromptTokens, e.MaxTokens, e.Excess())
}

// Excess returns how many tokens over the limit the prompt was.
func (e *ContextLengthError) Excess() int {
	return e.PromptTokens - e.MaxTokens
}

// Retryable reports whether an error is worth retrying.
//
// Rate limits and transient failures (transport errors, HTTP 5xx) are
// retryable. Context length errors and other client errors (HTTP 4xx)
// will fail the same way on every attempt and are not.
func Retryable(err error) bool {
	var rateLimit *RateLimitError
	if errors.As(err, &rateLimit) {
		return true
	}

	var contextLength *ContextLengthError
	if errors.As(err, &contextLength) {
		return false
	}

	var comm *CommunicationError
	if errors.As(err, &comm) {
		return comm.StatusCode == 0 || comm.StatusCode >= 500
	}

	return false
}

// RetryAfterHint extracts a server-suggested retry delay from an error.
// Returns zero when the error carries no hint.
func RetryAfterHint(err error) time.Duration {
	var rateLimit *RateLimitError
	if errors.As(err, &rateLimit) {
		return rateLimit.RetryAfter
	}
	return 0
}
