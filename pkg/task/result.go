package task

import "time"

// StepStatus is the outcome of a single step execution.
type StepStatus string

const (
	StepCompleted StepStatus = "completed" // StepCompleted indicates the step succeeded.
	StepFailed    StepStatus = "failed"    // StepFailed indicates the step failed.
	StepSkipped   StepStatus = "skipped"   // StepSkipped indicates an optional step failed and was skipped.
)

// RunStatus is the overall outcome of a plan execution.
type RunStatus string

const (
	RunCompleted RunStatus = "completed" // RunCompleted indicates every required step succeeded.
	RunFailed    RunStatus = "failed"    // RunFailed indicates a required step failed.
)

// StepResult records the outcome of executing one plan step.
type StepResult struct {
	// Index is the step's position in the plan.
	Index int `json:"index"`

	// Action is the step's action kind.
	Action Action `json:"action"`

	// Status is the step outcome.
	Status StepStatus `json:"status"`

	// Attempts is how many operation attempts were made, across the
	// primary selector and any fallbacks.
	Attempts int `json:"attempts"`

	// Duration is how long the step took.
	Duration time.Duration `json:"duration"`

	// Selector is the selector that ultimately succeeded, or the primary
	// selector when none did.
	Selector string `json:"selector,omitempty"`

	// Extracted holds the extracted text for extract steps. Multiple
	// matches are joined with newlines.
	Extracted string `json:"extracted,omitempty"`

	// DownloadPath is where a download step saved its file.
	DownloadPath string `json:"download_path,omitempty"`

	// PageCount is the page count of a verified PDF download.
	PageCount int `json:"page_count,omitempty"`

	// Screenshot is the failure screenshot path, when one was captured.
	Screenshot string `json:"screenshot,omitempty"`

	// Error is the failure message for failed and skipped steps.
	Error string `json:"error,omitempty"`
}

// RunResult records a full plan execution.
type RunResult struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// TaskID links the run to the task it executed.
	TaskID string `json:"task_id"`

	// URL is the page the run started on.
	URL string `json:"url,omitempty"`

	// Plan is the executed plan.
	Plan *ExecutionPlan `json:"plan,omitempty"`

	// Status is the overall outcome.
	Status RunStatus `json:"status"`

	// Steps are the per-step outcomes, in plan order.
	Steps []StepResult `json:"steps"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// ArtifactDir is where the run's artifacts were written.
	ArtifactDir string `json:"artifact_dir,omitempty"`

	// Error is the failure message for failed runs.
	Error string `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Completed returns how many steps completed successfully.
func (r *RunResult) Completed() int {
	count := 0
	for _, step := range r.Steps {
		if step.Status == StepCompleted {
			count++
		}
	}
	return count
}

// Extracted collects the extracted values of completed extract steps, in
// step order.
func (r *RunResult) Extracted() []string {
	var values []string
	for _, step := range r.Steps {
		if step.Action == ActionExtract && step.Status == StepCompleted && step.Extracted != "" {
			values = append(values, step.Extracted)
		}
	}
	return values
}
