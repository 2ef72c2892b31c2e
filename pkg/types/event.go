package types

import (
	"fmt"
	"time"
)

// Stage identifies a pipeline stage.
type Stage string

const (
	StageAnalyze Stage = "analyze" // StageAnalyze is the task analysis stage.
	StageExplore Stage = "explore" // StageExplore is the web exploration stage.
	StagePlan    Stage = "plan"    // StagePlan is the plan generation stage.
	StageExecute Stage = "execute" // StageExecute is the plan execution stage.
)

// EventType defines the type of event emitted during a pipeline run.
type EventType string

const (
	EventTypeStageStarted   EventType = "stage_started"   // EventTypeStageStarted indicates a pipeline stage has started.
	EventTypeStageCompleted EventType = "stage_completed" // EventTypeStageCompleted indicates a pipeline stage has completed.
	EventTypeStepStarted    EventType = "step_started"    // EventTypeStepStarted indicates a plan step has started executing.
	EventTypeStepCompleted  EventType = "step_completed"  // EventTypeStepCompleted indicates a plan step completed successfully.
	EventTypeStepFailed     EventType = "step_failed"     // EventTypeStepFailed indicates a plan step failed.
	EventTypeStepSkipped    EventType = "step_skipped"    // EventTypeStepSkipped indicates an optional plan step was skipped.
	EventTypeRetry          EventType = "retry"           // EventTypeRetry indicates an operation is being retried after a transient failure.
	EventTypeTokenUsage     EventType = "token_usage"     // EventTypeTokenUsage indicates token usage information from an LLM completion.
	EventTypeCacheHit       EventType = "cache_hit"       // EventTypeCacheHit indicates a page analysis was served from cache.
	EventTypeRunCompleted   EventType = "run_completed"   // EventTypeRunCompleted indicates the pipeline run finished successfully.
	EventTypeRunFailed      EventType = "run_failed"      // EventTypeRunFailed indicates the pipeline run failed.
)

// Event represents an event emitted during a pipeline run. Consumers
// receive events on a channel and use them to render progress, write
// logs, or collect statistics.
type Event struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// Type indicates the kind of event.
	Type EventType

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Stage is the pipeline stage the event belongs to, when applicable.
	Stage Stage

	// Message holds a human-readable description of the event.
	Message string

	// StepIndex is the 1-based index of the step (for step events).
	StepIndex int

	// StepCount is the total number of steps in the plan (for step events).
	StepCount int

	// Attempt is the attempt number (for retry events).
	Attempt int

	// Delay is the backoff delay before the next attempt (for retry events).
	Delay time.Duration

	// TokenUsage contains token usage information (for token usage events).
	TokenUsage *TokenUsage

	// Error contains error information for failure and retry events.
	Error error
}

// NewStageStartedEvent creates an event marking the start of a pipeline stage.
func NewStageStartedEvent(stage Stage) *Event {
	return &Event{
		Type:      EventTypeStageStarted,
		Timestamp: time.Now(),
		Stage:     stage,
	}
}

// NewStageCompletedEvent creates an event marking the completion of a
// pipeline stage with a short result summary.
func NewStageCompletedEvent(stage Stage, message string) *Event {
	return &Event{
		Type:      EventTypeStageCompleted,
		Timestamp: time.Now(),
		Stage:     stage,
		Message:   message,
	}
}

// NewStepStartedEvent creates an event marking the start of a plan step.
func NewStepStartedEvent(index, count int, description string) *Event {
	return &Event{
		Type:      EventTypeStepStarted,
		Timestamp: time.Now(),
		Stage:     StageExecute,
		Message:   description,
		StepIndex: index,
		StepCount: count,
	}
}

// NewStepCompletedEvent creates an event marking a successfully
// completed plan step.
func NewStepCompletedEvent(index, count int, message string) *Event {
	return &Event{
		Type:      EventTypeStepCompleted,
		Timestamp: time.Now(),
		Stage:     StageExecute,
		Message:   message,
		StepIndex: index,
		StepCount: count,
	}
}

// NewStepFailedEvent creates an event marking a failed plan step.
func NewStepFailedEvent(index, count int, err error) *Event {
	return &Event{
		Type:      EventTypeStepFailed,
		Timestamp: time.Now(),
		Stage:     StageExecute,
		StepIndex: index,
		StepCount: count,
		Error:     err,
	}
}

// NewStepSkippedEvent creates an event marking a skipped optional step.
func NewStepSkippedEvent(index, count int, reason string) *Event {
	return &Event{
		Type:      EventTypeStepSkipped,
		Timestamp: time.Now(),
		Stage:     StageExecute,
		Message:   reason,
		StepIndex: index,
		StepCount: count,
	}
}

// NewRetryEvent creates an event reporting that an operation in the
// given stage is being retried, with the delay before the next attempt.
func NewRetryEvent(stage Stage, attempt int, delay time.Duration, err error) *Event {
	return &Event{
		Type:      EventTypeRetry,
		Timestamp: time.Now(),
		Stage:     stage,
		Attempt:   attempt,
		Delay:     delay,
		Error:     err,
	}
}

// NewTokenUsageEvent creates an event reporting token usage from an
// LLM call made during the given stage.
func NewTokenUsageEvent(stage Stage, usage *TokenUsage) *Event {
	return &Event{
		Type:       EventTypeTokenUsage,
		Timestamp:  time.Now(),
		Stage:      stage,
		TokenUsage: usage,
	}
}

// NewCacheHitEvent creates an event indicating the page analysis for
// the given URL was served from cache.
func NewCacheHitEvent(url string) *Event {
	return &Event{
		Type:      EventTypeCacheHit,
		Timestamp: time.Now(),
		Stage:     StageExplore,
		Message:   fmt.Sprintf("using cached analysis for %s", url),
	}
}

// NewRunCompletedEvent creates an event marking the successful end of
// a pipeline run.
func NewRunCompletedEvent(message string) *Event {
	return &Event{
		Type:      EventTypeRunCompleted,
		Timestamp: time.Now(),
		Message:   message,
	}
}

// NewRunFailedEvent creates an event marking a failed pipeline run.
func NewRunFailedEvent(err error) *Event {
	return &Event{
		Type:      EventTypeRunFailed,
		Timestamp: time.Now(),
		Error:     err,
	}
}

// WithMetadata adds a metadata key-value pair to the event and returns
// the event for chaining.
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsStageEvent returns true if the event marks a stage boundary.
func (e *Event) IsStageEvent() bool {
	return e.Type == EventTypeStageStarted || e.Type == EventTypeStageCompleted
}

// IsStepEvent returns true if the event reports plan step progress.
func (e *Event) IsStepEvent() bool {
	switch e.Type {
	case EventTypeStepStarted, EventTypeStepCompleted, EventTypeStepFailed, EventTypeStepSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the event ends the run.
func (e *Event) IsTerminal() bool {
	return e.Type == EventTypeRunCompleted || e.Type == EventTypeRunFailed
}

// IsFailure returns true if the event reports a failure.
func (e *Event) IsFailure() bool {
	return e.Type == EventTypeStepFailed || e.Type == EventTypeRunFailed
}
