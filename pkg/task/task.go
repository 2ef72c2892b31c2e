// Package task defines the data model of the automation pipeline: the
// structured task produced by analysis, the page analysis produced by
// exploration, the execution plan produced by planning, and the run
// results produced by execution.
package task

import (
	"strings"
	"time"
)

// Task is the structured form of a natural-language automation request,
// produced by the task analyzer.
type Task struct {
	// Context holds additional information relevant to the task.
	Context map[string]interface{} `json:"context,omitempty"`

	// ID uniquely identifies the task. Assigned at analysis time.
	ID string `json:"id"`

	// Description is the original natural-language task description.
	Description string `json:"description"`

	// URL is the target page, when the request named one.
	URL string `json:"url,omitempty"`

	// Objectives are the concrete goals the task must achieve. At least
	// one is required.
	Objectives []string `json:"objectives"`

	// SuccessCriteria describe how to tell the task succeeded. At least
	// one is required.
	SuccessCriteria []string `json:"success_criteria"`

	// Constraints are restrictions on how the task may be performed.
	Constraints []string `json:"constraints"`

	// DataToExtract lists data points to pull from pages, when the task
	// involves extraction. Nil when it does not.
	DataToExtract []string `json:"data_to_extract,omitempty"`

	// ActionsToPerform lists interactions the task requires (clicks,
	// form fills), when known. Nil when it does not.
	ActionsToPerform []string `json:"actions_to_perform,omitempty"`

	// Complex marks tasks that likely need multiple pages or many
	// interactions. Set by the analyzer, recomputed via EstimateComplex
	// when the model omits it.
	Complex bool `json:"complex"`

	// CreatedAt is when the task was analyzed.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the task satisfies its structural invariants.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{
			Field:    "description",
			Expected: "non-empty string",
			Message:  "task description must not be empty",
		}
	}
	if len(t.Objectives) == 0 {
		return &ValidationError{
			Field:    "objectives",
			Expected: "at least one item",
			Message:  "task must have at least one objective",
		}
	}
	for _, objective := range t.Objectives {
		if strings.TrimSpace(objective) == "" {
			return &ValidationError{
				Field:    "objectives",
				Value:    objective,
				Expected: "non-empty string",
				Message:  "objectives must not contain empty entries",
			}
		}
	}
	if len(t.SuccessCriteria) == 0 {
		return &ValidationError{
			Field:    "success_criteria",
			Expected: "at least one item",
			Message:  "task must have at least one success criterion",
		}
	}
	for _, criterion := range t.SuccessCriteria {
		if strings.TrimSpace(criterion) == "" {
			return &ValidationError{
				Field:    "success_criteria",
				Value:    criterion,
				Expected: "non-empty string",
				Message:  "success criteria must not contain empty entries",
			}
		}
	}
	return nil
}

// HasDataExtraction returns true if the task involves extracting data.
func (t *Task) HasDataExtraction() bool {
	return len(t.DataToExtract) > 0
}

// HasActions returns true if the task involves performing actions.
func (t *Task) HasActions() bool {
	return len(t.ActionsToPerform) > 0
}

// EstimateComplex applies the complexity heuristic: a task is complex
// when it has more than two objectives or more than three actions.
func (t *Task) EstimateComplex() bool {
	return len(t.Objectives) > 2 || len(t.ActionsToPerform) > 3
}

// ClampConfidence bounds a confidence score to [0, 1]. Model-reported
// scores outside the range are clamped rather than rejected.
func ClampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
