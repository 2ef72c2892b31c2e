// Package pipeline wires the four stages into complete runs: analyze
// the task description, explore the target page, generate an execution
// plan, and execute it in a browser session. The pipeline owns the
// run-level event stream and the token usage accounting; the stages
// stay independently usable.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scrapinator/pkg/browser"
	"scrapinator/pkg/executor"
	"scrapinator/pkg/explorer"
	"scrapinator/pkg/llm"
	"scrapinator/pkg/logging"
	"scrapinator/pkg/planner"
	"scrapinator/pkg/task"
	"scrapinator/pkg/types"
)

// TaskAnalyzer is the analyze stage surface. *analyzer.Analyzer
// implements it.
type TaskAnalyzer interface {
	Analyze(ctx context.Context, description, url string) (*task.Task, error)
}

// PageExplorer is the explore stage surface. *explorer.Explorer
// implements it.
type PageExplorer interface {
	Explore(ctx context.Context, url string, opts explorer.ExploreOptions) (*task.PageAnalysis, error)
}

// PlanBuilder is the plan stage surface. *planner.Planner implements it.
type PlanBuilder interface {
	BuildPlan(ctx context.Context, t *task.Task, analysis *task.PageAnalysis) (*task.ExecutionPlan, error)
}

// SessionSource lends a browser session to a callback for the duration
// of one plan execution.
type SessionSource interface {
	WithSession(ctx context.Context, fn func(executor.StepBrowser) error) error
}

// PoolSource adapts a *browser.Pool to the SessionSource interface.
type PoolSource struct {
	Pool *browser.Pool
}

// WithSession runs fn with a pooled browser session.
func (p PoolSource) WithSession(ctx context.Context, fn func(executor.StepBrowser) error) error {
	return p.Pool.WithSession(ctx, func(session *browser.Session) error {
		return fn(session)
	})
}

// RunOptions adjust a single pipeline run.
type RunOptions struct {
	// PlanOnly stops after plan generation. No browser execution
	// happens and Outcome.Run stays nil.
	PlanOnly bool

	// DryRun executes the plan without performing mutating actions.
	DryRun bool

	// Force executes plans whose confidence is below the planner's
	// threshold. Without it a low-confidence plan fails the run.
	Force bool

	// Refresh bypasses the page analysis cache.
	Refresh bool
}

// Outcome collects everything a pipeline run produced. Later fields
// stay nil when an earlier stage failed; Run stays nil for plan-only
// runs.
type Outcome struct {
	Task     *task.Task
	Analysis *task.PageAnalysis
	Plan     *task.ExecutionPlan
	Run      *task.RunResult
}

// Pipeline runs tasks end to end through the four stages.
type Pipeline struct {
	analyzer TaskAnalyzer
	explorer PageExplorer
	planner  PlanBuilder
	sessions SessionSource

	store        executor.RunStore
	logger       *logging.Logger
	events       chan<- *types.Event
	usage        *llm.UsageTracker
	constraints  executor.ConstraintConfig
	artifactRoot string
	timeouts     *browser.Timeouts
	screenshots  bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore sets the store runs are persisted to.
func WithStore(store executor.RunStore) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithEvents sets the channel run events are delivered on. Delivery
// never blocks; events a full channel cannot take are dropped.
func WithEvents(events chan<- *types.Event) Option {
	return func(p *Pipeline) {
		p.events = events
	}
}

// WithUsage sets the usage tracker consulted for per-stage token usage
// events. Wrap the provider the stages were built on with the same
// tracker, otherwise there is nothing to report.
func WithUsage(usage *llm.UsageTracker) Option {
	return func(p *Pipeline) {
		p.usage = usage
	}
}

// WithConstraints sets the constraint configuration applied to every
// run. Each run gets its own constraint manager built from it.
func WithConstraints(config executor.ConstraintConfig) Option {
	return func(p *Pipeline) {
		p.constraints = config
	}
}

// WithArtifactRoot sets the directory run artifacts are written under.
func WithArtifactRoot(root string) Option {
	return func(p *Pipeline) {
		p.artifactRoot = root
	}
}

// WithTimeouts sets the per-action timeout classes passed to run
// executors.
func WithTimeouts(timeouts browser.Timeouts) Option {
	return func(p *Pipeline) {
		p.timeouts = &timeouts
	}
}

// WithScreenshots controls whether executors capture a screenshot when
// a step fails. Enabled unless turned off.
func WithScreenshots(enabled bool) Option {
	return func(p *Pipeline) {
		p.screenshots = enabled
	}
}

// NewPipeline creates a Pipeline from the four stage implementations.
func NewPipeline(analyzer TaskAnalyzer, pageExplorer PageExplorer, planBuilder PlanBuilder, sessions SessionSource, opts ...Option) (*Pipeline, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("task analyzer is required")
	}
	if pageExplorer == nil {
		return nil, fmt.Errorf("page explorer is required")
	}
	if planBuilder == nil {
		return nil, fmt.Errorf("plan builder is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session source is required")
	}

	p := &Pipeline{
		analyzer:    analyzer,
		explorer:    pageExplorer,
		planner:     planBuilder,
		sessions:    sessions,
		screenshots: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		logger, err := logging.NewLogger("pipeline")
		if err != nil {
			logger.Warnf("Failed to initialize pipeline log file, using stderr: %v", err)
		}
		p.logger = logger
	}

	return p, nil
}

// Run takes a task from description to executed plan. The returned
// Outcome carries whatever the run produced up to the point of failure,
// so callers can show a generated plan even when execution was refused
// or failed.
//
// A low-confidence plan is returned with an error wrapping
// planner.ErrLowConfidence: for plan-only runs the plan is still the
// deliverable, otherwise execution is refused unless opts.Force is set.
func (p *Pipeline) Run(ctx context.Context, description, url string, opts RunOptions) (*Outcome, error) {
	outcome := &Outcome{}

	t, err := p.analyze(ctx, description, url, outcome)
	if err != nil {
		return outcome, err
	}

	analysis, err := p.explore(ctx, t, opts, outcome)
	if err != nil {
		return outcome, err
	}

	plan, planErr := p.plan(ctx, t, analysis, outcome)
	if planErr != nil && !errors.Is(planErr, planner.ErrLowConfidence) {
		return outcome, planErr
	}

	if opts.PlanOnly {
		p.emit(types.NewRunCompletedEvent(fmt.Sprintf(
			"plan generated with %d steps, confidence %.2f (not executed)",
			len(plan.Steps), plan.Confidence)))
		return outcome, planErr
	}

	if planErr != nil {
		if !opts.Force {
			err := fmt.Errorf("refusing to execute the plan: %w", planErr)
			p.emit(types.NewRunFailedEvent(err))
			return outcome, err
		}
		p.logger.Warnf("Executing low-confidence plan for task %s under force", t.ID)
	}

	if err := p.execute(ctx, plan, opts, outcome); err != nil {
		return outcome, err
	}

	result := outcome.Run
	p.emit(types.NewRunCompletedEvent(fmt.Sprintf(
		"task %s completed: %d of %d steps in %s",
		t.ID, result.Completed(), len(result.Steps),
		result.Duration().Round(time.Millisecond))))
	return outcome, nil
}

// analyze runs the task analysis stage.
func (p *Pipeline) analyze(ctx context.Context, description, url string, outcome *Outcome) (*task.Task, error) {
	p.emit(types.NewStageStartedEvent(types.StageAnalyze))
	before := p.usageTotal()
	t, err := p.analyzer.Analyze(ctx, description, url)
	p.emitUsage(types.StageAnalyze, before)
	if err != nil {
		p.emit(types.NewRunFailedEvent(err))
		return nil, err
	}

	outcome.Task = t
	p.emit(types.NewStageCompletedEvent(types.StageAnalyze,
		fmt.Sprintf("task %s with %d objectives", t.ID, len(t.Objectives))))
	return t, nil
}

// explore runs the page exploration stage. Tasks without a target URL
// skip it; the planner works from the task alone.
func (p *Pipeline) explore(ctx context.Context, t *task.Task, opts RunOptions, outcome *Outcome) (*task.PageAnalysis, error) {
	if t.URL == "" {
		p.logger.Infof("Task %s has no target URL, planning blind", t.ID)
		return nil, nil
	}

	p.emit(types.NewStageStartedEvent(types.StageExplore))
	before := p.usageTotal()
	analysis, err := p.explorer.Explore(ctx, t.URL, explorer.ExploreOptions{Refresh: opts.Refresh})
	p.emitUsage(types.StageExplore, before)
	if err != nil {
		p.emit(types.NewRunFailedEvent(err))
		return nil, err
	}

	outcome.Analysis = analysis
	if analysis.FromCache {
		p.emit(types.NewCacheHitEvent(analysis.URL))
	}
	p.emit(types.NewStageCompletedEvent(types.StageExplore,
		fmt.Sprintf("%s page with %d elements", analysis.PageType, len(analysis.Elements))))
	return analysis, nil
}

// plan runs the plan generation stage. A low-confidence error comes
// back together with the plan; any other error comes back alone.
func (p *Pipeline) plan(ctx context.Context, t *task.Task, analysis *task.PageAnalysis, outcome *Outcome) (*task.ExecutionPlan, error) {
	p.emit(types.NewStageStartedEvent(types.StagePlan))
	before := p.usageTotal()
	plan, err := p.planner.BuildPlan(ctx, t, analysis)
	p.emitUsage(types.StagePlan, before)
	if err != nil && !errors.Is(err, planner.ErrLowConfidence) {
		p.emit(types.NewRunFailedEvent(err))
		return nil, err
	}

	outcome.Plan = plan
	p.emit(types.NewStageCompletedEvent(types.StagePlan,
		fmt.Sprintf("%d steps, confidence %.2f", len(plan.Steps), plan.Confidence)))
	return plan, err
}

// execute runs the plan in a borrowed browser session. The run result
// lands in the outcome even when execution fails partway.
func (p *Pipeline) execute(ctx context.Context, plan *task.ExecutionPlan, opts RunOptions, outcome *Outcome) error {
	p.emit(types.NewStageStartedEvent(types.StageExecute))

	err := p.sessions.WithSession(ctx, func(session executor.StepBrowser) error {
		exec, err := p.newExecutor(session, opts)
		if err != nil {
			return err
		}
		var runErr error
		outcome.Run, runErr = exec.Execute(ctx, plan)
		return runErr
	})
	if err != nil {
		p.emit(types.NewRunFailedEvent(err))
		return err
	}

	result := outcome.Run
	p.emit(types.NewStageCompletedEvent(types.StageExecute,
		fmt.Sprintf("%d of %d steps completed", result.Completed(), len(result.Steps))))
	return nil
}

// newExecutor builds the executor for one run. Constraint managers
// hold per-run state, so every run gets a fresh one.
func (p *Pipeline) newExecutor(session executor.StepBrowser, opts RunOptions) (*executor.Executor, error) {
	constraints, err := executor.NewConstraintManager(p.constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to build run constraints: %w", err)
	}

	eopts := []executor.Option{
		executor.WithConstraints(constraints),
		executor.WithEventSink(p.emit),
		executor.WithDryRun(opts.DryRun),
		executor.WithScreenshots(p.screenshots),
	}
	if p.store != nil {
		eopts = append(eopts, executor.WithStore(p.store))
	}
	if p.artifactRoot != "" {
		eopts = append(eopts, executor.WithArtifactRoot(p.artifactRoot))
	}
	if p.timeouts != nil {
		eopts = append(eopts, executor.WithTimeouts(*p.timeouts))
	}
	return executor.NewExecutor(session, eopts...)
}

// RetryHook returns an OnRetry callback that surfaces a stage's retry
// attempts as pipeline events. Assign it to the retrier shared with
// that stage.
func (p *Pipeline) RetryHook(stage types.Stage) func(attempt int, delay time.Duration, err error) {
	return func(attempt int, delay time.Duration, err error) {
		p.emit(types.NewRetryEvent(stage, attempt, delay, err))
	}
}

// emit delivers an event without blocking. A slow consumer loses
// progress events rather than stalling the run.
func (p *Pipeline) emit(ev *types.Event) {
	if p.events == nil {
		return
	}
	select {
	case p.events <- ev:
	default:
	}
}

// usageTotal snapshots the tracker totals, or zero without a tracker.
func (p *Pipeline) usageTotal() types.TokenUsage {
	if p.usage == nil {
		return types.TokenUsage{}
	}
	return p.usage.Total()
}

// emitUsage reports the token usage a stage consumed as the difference
// between the tracker totals before and after the stage ran.
func (p *Pipeline) emitUsage(stage types.Stage, before types.TokenUsage) {
	if p.usage == nil {
		return
	}
	after := p.usage.Total()
	delta := types.TokenUsage{
		PromptTokens:     after.PromptTokens - before.PromptTokens,
		CompletionTokens: after.CompletionTokens - before.CompletionTokens,
		TotalTokens:      after.TotalTokens - before.TotalTokens,
	}
	if delta.PromptTokens == 0 && delta.CompletionTokens == 0 && delta.TotalTokens == 0 {
		return
	}
	p.emit(types.NewTokenUsageEvent(stage, &delta))
}
