package task

import (
	"fmt"
	"strings"
	"time"
)

// Action identifies a kind of browser interaction a plan step performs.
type Action string

const (
	ActionNavigate Action = "navigate" // ActionNavigate loads a URL.
	ActionClick    Action = "click"    // ActionClick clicks an element.
	ActionFill     Action = "fill"     // ActionFill types a value into an input.
	ActionExtract  Action = "extract"  // ActionExtract reads text from matched elements.
	ActionDownload Action = "download" // ActionDownload triggers and saves a download.
	ActionScroll   Action = "scroll"   // ActionScroll scrolls the page.
	ActionWait     Action = "wait"     // ActionWait waits for a selector or duration.
)

// KnownActions lists every action kind, in the order prompts present them.
func KnownActions() []Action {
	return []Action{
		ActionNavigate,
		ActionClick,
		ActionFill,
		ActionExtract,
		ActionDownload,
		ActionScroll,
		ActionWait,
	}
}

// Valid returns true for a recognized action kind.
func (a Action) Valid() bool {
	switch a {
	case ActionNavigate, ActionClick, ActionFill, ActionExtract,
		ActionDownload, ActionScroll, ActionWait:
		return true
	default:
		return false
	}
}

// RequiresSelector returns true for actions that cannot run without a
// selector.
func (a Action) RequiresSelector() bool {
	switch a {
	case ActionClick, ActionFill, ActionExtract, ActionDownload:
		return true
	default:
		return false
	}
}

// Step is a single action in an execution plan.
type Step struct {
	// Index is the 1-based position of the step in the plan.
	Index int `json:"index"`

	// Action is the kind of interaction to perform.
	Action Action `json:"action"`

	// Selector locates the target element. Required for click, fill,
	// extract, and download.
	Selector string `json:"selector,omitempty"`

	// Value carries the action input: the URL for navigate, the text for
	// fill, the direction or pixel amount for scroll, the duration for a
	// selector-less wait.
	Value string `json:"value,omitempty"`

	// Description says what the step accomplishes, for humans and logs.
	Description string `json:"description,omitempty"`

	// Fallbacks are alternate selectors tried in order when the primary
	// selector fails.
	Fallbacks []string `json:"fallbacks,omitempty"`

	// Timeout overrides the action-class default timeout when non-zero.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Optional marks steps whose failure is recorded as skipped instead
	// of aborting the run.
	Optional bool `json:"optional,omitempty"`
}

// Validate checks the step satisfies its structural invariants.
func (s *Step) Validate() error {
	if !s.Action.Valid() {
		return &ValidationError{
			Field:    "action",
			Value:    string(s.Action),
			Expected: fmt.Sprintf("one of %v", KnownActions()),
			Message:  fmt.Sprintf("step %d has unknown action %q", s.Index, s.Action),
		}
	}
	if s.Action.RequiresSelector() && strings.TrimSpace(s.Selector) == "" {
		return &ValidationError{
			Field:    "selector",
			Expected: "non-empty selector",
			Message:  fmt.Sprintf("step %d (%s) requires a selector", s.Index, s.Action),
		}
	}
	switch s.Action {
	case ActionNavigate, ActionFill:
		if strings.TrimSpace(s.Value) == "" {
			return &ValidationError{
				Field:    "value",
				Expected: "non-empty value",
				Message:  fmt.Sprintf("step %d (%s) requires a value", s.Index, s.Action),
			}
		}
	case ActionWait:
		if strings.TrimSpace(s.Selector) == "" && strings.TrimSpace(s.Value) == "" {
			return &ValidationError{
				Field:    "value",
				Expected: "selector or duration value",
				Message:  fmt.Sprintf("step %d (wait) requires a selector or a duration value", s.Index),
			}
		}
	}
	return nil
}

// ExecutionPlan is an ordered sequence of steps that accomplishes a task
// on a specific page, produced by the plan generator.
type ExecutionPlan struct {
	// TaskID links the plan to the analyzed task it implements.
	TaskID string `json:"task_id"`

	// URL is the page the plan starts on.
	URL string `json:"url,omitempty"`

	// Steps are the ordered actions. At least one is required.
	Steps []Step `json:"steps"`

	// Confidence is the planner's confidence in [0, 1] that the plan
	// accomplishes the task.
	Confidence float64 `json:"confidence"`

	// Rationale is the planner's explanation of the approach.
	Rationale string `json:"rationale,omitempty"`

	// CreatedAt is when the plan was generated.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the plan satisfies its structural invariants.
func (p *ExecutionPlan) Validate() error {
	if p.TaskID == "" {
		return &ValidationError{
			Field:    "task_id",
			Expected: "non-empty string",
			Message:  "execution plan must reference a task",
		}
	}
	if len(p.Steps) == 0 {
		return &ValidationError{
			Field:    "steps",
			Expected: "at least one step",
			Message:  "execution plan must have at least one step",
		}
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return &ValidationError{
			Field:    "confidence",
			Expected: "value in [0, 1]",
			Message:  "execution plan confidence must be in [0, 1]",
		}
	}
	for i := range p.Steps {
		if err := p.Steps[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
