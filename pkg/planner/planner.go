// Package planner implements the plan generation stage of the
// pipeline. It turns an analyzed task and a page analysis into an
// ordered plan of browser actions, validates the action vocabulary, and
// grounds step selectors in the page's element inventory.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"scrapinator/pkg/llm"
	"scrapinator/pkg/llm/parser"
	"scrapinator/pkg/llm/tokenizer"
	"scrapinator/pkg/logging"
	"scrapinator/pkg/prompts"
	"scrapinator/pkg/task"
	"scrapinator/pkg/types"
)

const (
	// planTemperature is the sampling temperature for plan generation.
	// A little freedom helps the model order steps; zero tends to
	// produce degenerate single-step plans on sparse pages.
	planTemperature = 0.3

	// planMaxTokens bounds the completion size. Plans for complex tasks
	// run long.
	planMaxTokens = 4096

	// fallbackContextWindow is assumed when a provider does not report
	// its context window size.
	fallbackContextWindow = 8192

	// planJSONFormat names the reply format for invalid-response errors.
	planJSONFormat = "JSON object with an execution plan"
)

// DefaultConfidenceThreshold is the plan confidence below which
// BuildPlan returns ErrLowConfidence alongside the plan.
const DefaultConfidenceThreshold = 0.4

// ErrLowConfidence marks a generated plan whose confidence is below the
// planner's threshold. The plan is still returned with it; callers
// decide whether to execute anyway.
var ErrLowConfidence = errors.New("plan confidence is below the threshold")

// Planner generates execution plans from analyzed tasks and page
// analyses.
type Planner struct {
	provider  llm.Provider
	logger    *logging.Logger
	retrier   *llm.Retrier
	guard     *tokenizer.Guard
	threshold float64
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for planning diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// WithRetrier sets the retrier used around provider calls.
func WithRetrier(retrier *llm.Retrier) Option {
	return func(p *Planner) {
		p.retrier = retrier
	}
}

// WithGuard sets the token guard used to size prompts. Without this
// option the guard is built from the provider's reported context window.
func WithGuard(guard *tokenizer.Guard) Option {
	return func(p *Planner) {
		p.guard = guard
	}
}

// WithConfidenceThreshold sets the confidence below which plans come
// back wrapped in ErrLowConfidence.
func WithConfidenceThreshold(threshold float64) Option {
	return func(p *Planner) {
		p.threshold = threshold
	}
}

// NewPlanner creates a Planner that generates plans with provider.
func NewPlanner(provider llm.Provider, opts ...Option) (*Planner, error) {
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}

	p := &Planner{
		provider:  provider,
		threshold: DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		logger, err := logging.NewLogger("planner")
		if err != nil {
			logger.Warnf("Failed to initialize planner log file, using stderr: %v", err)
		}
		p.logger = logger
	}
	if p.retrier == nil {
		p.retrier = llm.NewRetrier()
	}
	if p.retrier.OnRetry == nil {
		p.retrier.OnRetry = func(attempt int, delay time.Duration, err error) {
			p.logger.Warnf("Plan generation attempt %d failed, retrying in %s: %v", attempt, delay, err)
		}
	}
	if p.guard == nil {
		window := fallbackContextWindow
		if info := provider.GetModelInfo(); info != nil && info.MaxTokens > 0 {
			window = info.MaxTokens
		}
		guard, err := tokenizer.NewGuard(window)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token guard: %w", err)
		}
		p.guard = guard
	}

	return p, nil
}

// BuildPlan generates an execution plan for the analyzed task against
// the given page analysis. A nil analysis plans blind, from the task
// alone. When the generated plan's confidence is below the threshold
// the plan is returned together with an error wrapping ErrLowConfidence.
// All other failures come back as a *task.AnalysisError for the plan
// stage.
func (p *Planner) BuildPlan(ctx context.Context, t *task.Task, analysis *task.PageAnalysis) (*task.ExecutionPlan, error) {
	if t == nil {
		return nil, task.NewAnalysisError(types.StagePlan, "an analyzed task is required", nil)
	}

	prompt := prompts.PlanGeneration(t, analysis)
	if err := p.guard.Check(prompt); err != nil {
		return nil, task.NewAnalysisError(types.StagePlan, "task and page analysis do not fit the model context window", err)
	}
	p.logger.Debugf("Plan prompt for task %s is %d tokens", t.ID, p.guard.Count(prompt))

	response, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, task.NewAnalysisError(types.StagePlan, "LLM completion failed", err)
	}
	p.logger.Debugf("Plan response received: %d chars", len(response))

	plan, err := p.parsePlan(response, t, analysis)
	if err != nil {
		return nil, task.NewAnalysisError(types.StagePlan, "could not parse plan response", err)
	}

	if err := plan.Validate(); err != nil {
		return nil, task.NewAnalysisError(types.StagePlan, "plan generation produced an invalid plan", err)
	}

	if plan.Confidence < p.threshold {
		p.logger.Warnf("Plan for task %s has confidence %.2f, below the %.2f threshold",
			t.ID, plan.Confidence, p.threshold)
		return plan, fmt.Errorf("plan confidence %.2f is below the %.2f threshold: %w",
			plan.Confidence, p.threshold, ErrLowConfidence)
	}

	p.logger.Infof("Generated plan for task %s: %d steps, confidence %.2f",
		t.ID, len(plan.Steps), plan.Confidence)
	return plan, nil
}

// complete runs the completion through the retrier and strips any
// thinking block from the reply.
func (p *Planner) complete(ctx context.Context, prompt string) (string, error) {
	messages := []*types.Message{types.NewUserMessage(prompt)}

	var reply *types.Message
	err := p.retrier.Do(ctx, func(ctx context.Context) error {
		var completeErr error
		reply, completeErr = p.provider.Complete(ctx, messages,
			llm.WithTemperature(planTemperature),
			llm.WithMaxTokens(planMaxTokens),
		)
		return completeErr
	})
	if err != nil {
		return "", err
	}
	return parser.StripThinking(reply.Content), nil
}

// planWire matches the JSON shape the plan generation prompt requests.
type planWire struct {
	Rationale  string     `json:"rationale"`
	Steps      []stepWire `json:"steps"`
	Confidence float64    `json:"confidence"`
}

type stepWire struct {
	Action      string   `json:"action"`
	Selector    string   `json:"selector"`
	Value       string   `json:"value"`
	Description string   `json:"description"`
	Fallbacks   []string `json:"fallbacks"`
	Index       int      `json:"index"`
	TimeoutMS   int      `json:"timeout_ms"`
	Optional    bool     `json:"optional"`
}

// parsePlan extracts the plan JSON from a model reply and builds the
// execution plan.
func (p *Planner) parsePlan(response string, t *task.Task, analysis *task.PageAnalysis) (*task.ExecutionPlan, error) {
	raw, err := parser.ExtractJSONBytes(response)
	if err != nil {
		return nil, task.NewInvalidResponseError(
			"Plan response did not contain a JSON object", response, planJSONFormat, err)
	}

	var wire planWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		message := fmt.Sprintf("Plan JSON has the wrong shape: %v", err)
		return nil, task.NewInvalidResponseError(message, response, planJSONFormat, err)
	}

	steps := make([]task.Step, 0, len(wire.Steps))
	for i, w := range wire.Steps {
		action := task.Action(strings.ToLower(strings.TrimSpace(w.Action)))
		if !action.Valid() {
			message := fmt.Sprintf("Step %d has unknown action %q. Allowed actions: %s",
				i+1, w.Action, knownActionNames())
			return nil, task.NewInvalidResponseError(message, response, planJSONFormat, nil)
		}

		step := task.Step{
			// Step order is positional; model-reported indexes are not
			// trusted.
			Index:       i + 1,
			Action:      action,
			Selector:    strings.TrimSpace(w.Selector),
			Value:       strings.TrimSpace(w.Value),
			Description: strings.TrimSpace(w.Description),
			Timeout:     time.Duration(w.TimeoutMS) * time.Millisecond,
			Optional:    w.Optional,
		}
		for _, fallback := range w.Fallbacks {
			if trimmed := strings.TrimSpace(fallback); trimmed != "" {
				step.Fallbacks = append(step.Fallbacks, trimmed)
			}
		}
		steps = append(steps, step)
	}

	if analysis != nil {
		p.groundSelectors(steps, analysis)
	}

	url := t.URL
	if url == "" && analysis != nil {
		url = analysis.URL
	}

	return &task.ExecutionPlan{
		TaskID:     t.ID,
		URL:        url,
		Steps:      steps,
		Confidence: task.ClampConfidence(wire.Confidence),
		Rationale:  strings.TrimSpace(wire.Rationale),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// groundSelectors backstops steps whose selectors do not appear in the
// page's element inventory. The model's selector stays primary; the
// closest inventory selector is appended as a fallback.
func (p *Planner) groundSelectors(steps []task.Step, analysis *task.PageAnalysis) {
	known := make(map[string]bool, len(analysis.Elements))
	for _, element := range analysis.Elements {
		if element.Selector != "" {
			known[element.Selector] = true
		}
	}
	if len(known) == 0 {
		return
	}

	for i := range steps {
		step := &steps[i]
		if !step.Action.RequiresSelector() || step.Selector == "" {
			continue
		}
		if known[step.Selector] {
			continue
		}
		closest := closestSelector(step.Selector, analysis.Elements)
		if closest == "" || closest == step.Selector || containsString(step.Fallbacks, closest) {
			continue
		}
		p.logger.Debugf("Step %d selector %q is not in the page inventory, adding %q as a fallback",
			step.Index, step.Selector, closest)
		step.Fallbacks = append(step.Fallbacks, closest)
	}
}

// closestSelector returns the inventory selector with the smallest edit
// distance to the given one. Ties keep the earliest inventory element.
func closestSelector(selector string, elements []task.PageElement) string {
	best := ""
	bestDistance := -1
	for _, element := range elements {
		if element.Selector == "" {
			continue
		}
		distance := levenshtein.ComputeDistance(selector, element.Selector)
		if bestDistance < 0 || distance < bestDistance {
			best = element.Selector
			bestDistance = distance
		}
	}
	return best
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

// knownActionNames renders the action vocabulary for error messages.
func knownActionNames() string {
	actions := task.KnownActions()
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = string(action)
	}
	return strings.Join(names, ", ")
}
