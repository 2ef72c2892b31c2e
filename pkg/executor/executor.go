// Package executor implements the plan execution stage of the pipeline.
// It drives a browser session through an execution plan step by step,
// enforcing the run's constraints, recording per-step outcomes, and
// writing run artifacts.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"scrapinator/pkg/browser"
	"scrapinator/pkg/logging"
	"scrapinator/pkg/task"
	"scrapinator/pkg/types"
)

// selectorAttempts is how many times each selector in the cascade is
// tried before moving on to the next fallback. The browser's own
// auto-waiting paces the retries.
const selectorAttempts = 2

// StepBrowser is the slice of the browser session surface that plan
// execution needs. *browser.Session implements it.
type StepBrowser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL() string
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Scroll(ctx context.Context, selector string) error
	ExtractText(ctx context.Context, selector string) (string, error)
	Screenshot(ctx context.Context, path string) error
	Download(ctx context.Context, selector, dir string) (string, error)
}

// RunStore persists finished runs. *store.Store implements it.
type RunStore interface {
	SaveRun(result *task.RunResult) error
}

// Executor drives a browser session through execution plans.
type Executor struct {
	browser      StepBrowser
	constraints  *ConstraintManager
	store        RunStore
	logger       *logging.Logger
	emit         func(*types.Event)
	timeouts     browser.Timeouts
	artifactRoot string
	dryRun       bool
	screenshots  bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithConstraints sets the constraint manager enforced during runs.
func WithConstraints(constraints *ConstraintManager) Option {
	return func(e *Executor) {
		e.constraints = constraints
	}
}

// WithStore sets the store finished runs are persisted to.
func WithStore(store RunStore) Option {
	return func(e *Executor) {
		e.store = store
	}
}

// WithLogger sets the logger used for execution diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithEventSink sets a callback that receives step progress events.
func WithEventSink(emit func(*types.Event)) Option {
	return func(e *Executor) {
		e.emit = emit
	}
}

// WithTimeouts overrides the per-action-class time limits.
func WithTimeouts(timeouts browser.Timeouts) Option {
	return func(e *Executor) {
		e.timeouts = timeouts
	}
}

// WithArtifactRoot sets the directory run artifact directories are
// created under.
func WithArtifactRoot(root string) Option {
	return func(e *Executor) {
		e.artifactRoot = root
	}
}

// WithDryRun makes runs validate constraints and selectors against the
// live page without performing mutating actions. Click, fill, and
// download steps become presence checks.
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// WithScreenshots controls whether a screenshot is captured when a step
// fails. Enabled unless turned off.
func WithScreenshots(enabled bool) Option {
	return func(e *Executor) {
		e.screenshots = enabled
	}
}

// NewExecutor creates an Executor that runs plans against session.
func NewExecutor(session StepBrowser, opts ...Option) (*Executor, error) {
	if session == nil {
		return nil, fmt.Errorf("browser session is required")
	}

	e := &Executor{
		browser:     session,
		timeouts:    browser.DefaultTimeouts(),
		screenshots: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		logger, err := logging.NewLogger("executor")
		if err != nil {
			logger.Warnf("Failed to initialize executor log file, using stderr: %v", err)
		}
		e.logger = logger
	}
	if e.constraints == nil {
		constraints, err := NewConstraintManager(ConstraintConfig{})
		if err != nil {
			return nil, err
		}
		e.constraints = constraints
	}
	if e.artifactRoot == "" {
		root, err := DefaultArtifactRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve artifact root: %w", err)
		}
		e.artifactRoot = root
	}

	return e, nil
}

// Execute runs the plan and records the outcome. The returned RunResult
// is non-nil whenever execution started; on failure it comes back
// together with the error so callers can inspect the partial run.
func (e *Executor) Execute(ctx context.Context, plan *task.ExecutionPlan) (*task.RunResult, error) {
	if plan == nil {
		return nil, task.NewAnalysisError(types.StageExecute, "an execution plan is required", nil)
	}
	if err := plan.Validate(); err != nil {
		return nil, task.NewAnalysisError(types.StageExecute, "refusing to execute an invalid plan", err)
	}

	runID := uuid.New().String()
	artifacts, err := NewArtifactWriter(e.artifactRoot, runID)
	if err != nil {
		return nil, task.NewAnalysisError(types.StageExecute, "failed to prepare the artifact directory", err)
	}

	result := &task.RunResult{
		RunID:       runID,
		TaskID:      plan.TaskID,
		URL:         plan.URL,
		Plan:        plan,
		Status:      task.RunCompleted,
		StartedAt:   time.Now().UTC(),
		ArtifactDir: artifacts.Dir(),
	}

	mode := ""
	if e.dryRun {
		mode = " (dry run)"
	}
	e.logger.Infof("Starting run %s for task %s: %d steps%s", runID, plan.TaskID, len(plan.Steps), mode)

	runErr := e.runSteps(ctx, plan, result, artifacts)

	result.FinishedAt = time.Now().UTC()
	if runErr != nil {
		result.Status = task.RunFailed
		if result.Error == "" {
			result.Error = runErr.Error()
		}
	}

	if err := artifacts.WriteAll(result); err != nil {
		e.logger.Warnf("Failed to write artifacts for run %s: %v", runID, err)
	}
	if e.store != nil {
		if err := e.store.SaveRun(result); err != nil {
			e.logger.Warnf("Failed to persist run %s: %v", runID, err)
		}
	}

	if runErr != nil {
		e.logger.Errorf("Run %s failed: %v", runID, runErr)
		return result, runErr
	}
	e.logger.Infof("Run %s completed: %d of %d steps in %s",
		runID, result.Completed(), len(result.Steps), result.Duration().Round(time.Millisecond))
	return result, nil
}

func (e *Executor) runSteps(ctx context.Context, plan *task.ExecutionPlan, result *task.RunResult, artifacts *ArtifactWriter) error {
	count := len(plan.Steps)
	for i := range plan.Steps {
		step := &plan.Steps[i]

		if err := e.constraints.CheckTimeout(); err != nil {
			result.Error = err.Error()
			return task.NewAnalysisError(types.StageExecute, "run aborted by constraints", err)
		}
		if err := e.constraints.RecordStep(); err != nil {
			result.Error = err.Error()
			return task.NewAnalysisError(types.StageExecute, "run aborted by constraints", err)
		}

		e.event(types.NewStepStartedEvent(step.Index, count, step.Description))
		stepResult, stepErr := e.executeStep(ctx, step, artifacts)
		result.Steps = append(result.Steps, stepResult)

		switch stepResult.Status {
		case task.StepCompleted:
			e.event(types.NewStepCompletedEvent(step.Index, count, step.Description))
		case task.StepSkipped:
			e.event(types.NewStepSkippedEvent(step.Index, count, stepResult.Error))
		case task.StepFailed:
			e.event(types.NewStepFailedEvent(step.Index, count, stepErr))
			result.Error = fmt.Sprintf("step %d (%s) failed: %v", step.Index, step.Action, stepErr)
			return task.NewAnalysisError(types.StageExecute,
				fmt.Sprintf("step %d (%s) failed", step.Index, step.Action), stepErr)
		}

		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			return task.NewAnalysisError(types.StageExecute, "run canceled", err)
		}
	}
	return nil
}

// executeStep runs one step and reports its outcome. The returned error
// is non-nil only when the step failed hard; optional steps that fail
// come back as skipped with a nil error.
func (e *Executor) executeStep(ctx context.Context, step *task.Step, artifacts *ArtifactWriter) (task.StepResult, error) {
	stepResult := task.StepResult{
		Index:    step.Index,
		Action:   step.Action,
		Selector: step.Selector,
	}
	e.logger.Infof("Step %d: %s %s", step.Index, step.Action, step.Selector)

	started := time.Now()
	err := e.dispatch(ctx, step, &stepResult, artifacts)
	stepResult.Duration = time.Since(started)

	if err == nil {
		stepResult.Status = task.StepCompleted
		return stepResult, nil
	}
	stepResult.Error = err.Error()

	if e.screenshots {
		shot := artifacts.ScreenshotPath(step.Index)
		if shotErr := e.browser.Screenshot(ctx, shot); shotErr != nil {
			e.logger.Warnf("Failed to capture failure screenshot for step %d: %v", step.Index, shotErr)
		} else {
			stepResult.Screenshot = shot
		}
	}

	if step.Optional {
		stepResult.Status = task.StepSkipped
		e.logger.Warnf("Optional step %d failed, skipping: %v", step.Index, err)
		return stepResult, nil
	}

	stepResult.Status = task.StepFailed
	return stepResult, err
}

func (e *Executor) dispatch(ctx context.Context, step *task.Step, stepResult *task.StepResult, artifacts *ArtifactWriter) error {
	timeout := e.stepTimeout(step)
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch step.Action {
	case task.ActionNavigate:
		return e.navigate(stepCtx, step, stepResult)
	case task.ActionClick:
		return e.cascade(stepCtx, step, stepResult, func(ctx context.Context, selector string) error {
			if e.dryRun {
				return e.browser.WaitFor(ctx, selector, timeout)
			}
			return e.browser.Click(ctx, selector)
		})
	case task.ActionFill:
		return e.cascade(stepCtx, step, stepResult, func(ctx context.Context, selector string) error {
			if e.dryRun {
				return e.browser.WaitFor(ctx, selector, timeout)
			}
			return e.browser.Fill(ctx, selector, step.Value)
		})
	case task.ActionExtract:
		return e.cascade(stepCtx, step, stepResult, func(ctx context.Context, selector string) error {
			text, err := e.browser.ExtractText(ctx, selector)
			if err != nil {
				return err
			}
			stepResult.Extracted = text
			return nil
		})
	case task.ActionDownload:
		return e.cascade(stepCtx, step, stepResult, func(ctx context.Context, selector string) error {
			if e.dryRun {
				return e.browser.WaitFor(ctx, selector, timeout)
			}
			return e.download(ctx, selector, stepResult, artifacts)
		})
	case task.ActionScroll:
		return e.scroll(stepCtx, step, stepResult)
	case task.ActionWait:
		return e.wait(stepCtx, step, stepResult, timeout)
	default:
		return fmt.Errorf("unsupported action %q", step.Action)
	}
}

// navigate loads the step's target URL. Dry runs still navigate; the
// selector checks of later steps need the live page.
func (e *Executor) navigate(ctx context.Context, step *task.Step, stepResult *task.StepResult) error {
	stepResult.Attempts = 1
	if err := e.constraints.ValidateURL(step.Value); err != nil {
		return err
	}
	if err := e.browser.Navigate(ctx, step.Value); err != nil {
		return err
	}
	return e.constraints.ValidateRedirect(step.Value, e.browser.CurrentURL())
}

func (e *Executor) scroll(ctx context.Context, step *task.Step, stepResult *task.StepResult) error {
	stepResult.Attempts = 1
	if step.Selector != "" {
		if err := e.constraints.ValidateSelector(step.Action, step.Selector); err != nil {
			return err
		}
	}
	return e.browser.Scroll(ctx, step.Selector)
}

// wait blocks on a selector becoming visible, or sleeps for the step's
// value in milliseconds when no selector is given.
func (e *Executor) wait(ctx context.Context, step *task.Step, stepResult *task.StepResult, timeout time.Duration) error {
	stepResult.Attempts = 1
	if step.Selector != "" {
		if err := e.constraints.ValidateSelector(step.Action, step.Selector); err != nil {
			return err
		}
		return e.browser.WaitFor(ctx, step.Selector, timeout)
	}

	delay, ok := waitDelay(step.Value)
	if !ok {
		return fmt.Errorf("wait value %q is not a millisecond count", step.Value)
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cascade runs op through the step's selector cascade: the primary
// selector, then each fallback, with up to selectorAttempts tries each.
// The selector that succeeded is recorded on the step result.
func (e *Executor) cascade(ctx context.Context, step *task.Step, stepResult *task.StepResult, op func(ctx context.Context, selector string) error) error {
	selectors := append([]string{step.Selector}, step.Fallbacks...)

	var lastErr error
	for _, selector := range selectors {
		if err := e.constraints.ValidateSelector(step.Action, selector); err != nil {
			return err
		}
		for attempt := 1; attempt <= selectorAttempts; attempt++ {
			stepResult.Attempts++
			err := op(ctx, selector)
			if err == nil {
				stepResult.Selector = selector
				return nil
			}
			lastErr = err
			if ctx.Err() != nil {
				return lastErr
			}
			e.logger.Debugf("Step %d selector %q attempt %d failed: %v", step.Index, selector, attempt, err)
		}
	}
	return fmt.Errorf("all selectors failed after %d attempts: %w", stepResult.Attempts, lastErr)
}

// download saves the file triggered by clicking the selector, then
// verifies PDF payloads before accepting the step.
func (e *Executor) download(ctx context.Context, selector string, stepResult *task.StepResult, artifacts *ArtifactWriter) error {
	dir, err := artifacts.DownloadDir()
	if err != nil {
		return err
	}
	path, err := e.browser.Download(ctx, selector, dir)
	if err != nil {
		return err
	}
	stepResult.DownloadPath = path

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pages, err := verifyPDF(path)
		if err != nil {
			return fmt.Errorf("downloaded PDF %s failed validation: %w", filepath.Base(path), err)
		}
		stepResult.PageCount = pages
	}
	return nil
}

// verifyPDF checks that the file is a well-formed PDF and returns its
// page count.
func verifyPDF(path string) (int, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return 0, err
	}
	return api.PageCountFile(path)
}

// stepTimeout returns the effective time limit for a step: its own
// timeout when set, otherwise the action-class default. Selector-less
// waits longer than the wait default get their delay plus a grace
// second so they are not cut short.
func (e *Executor) stepTimeout(step *task.Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	switch step.Action {
	case task.ActionNavigate:
		return e.timeouts.Navigation
	case task.ActionDownload:
		return e.timeouts.Network
	case task.ActionWait:
		if delay, ok := waitDelay(step.Value); ok && delay >= e.timeouts.Wait {
			return delay + time.Second
		}
		return e.timeouts.Wait
	default:
		return e.timeouts.Action
	}
}

// waitDelay parses a wait step value as a millisecond count.
func waitDelay(value string) (time.Duration, bool) {
	ms, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || ms < 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

func (e *Executor) event(ev *types.Event) {
	if e.emit != nil {
		e.emit(ev)
	}
}
