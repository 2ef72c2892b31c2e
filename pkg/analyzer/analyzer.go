// Package analyzer implements the task analysis stage of the pipeline.
// It sends a natural-language task description to an LLM provider and
// parses the reply into the structured task the later stages act on.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"scrapinator/pkg/llm"
	"scrapinator/pkg/llm/parser"
	"scrapinator/pkg/llm/tokenizer"
	"scrapinator/pkg/logging"
	"scrapinator/pkg/prompts"
	"scrapinator/pkg/task"
	"scrapinator/pkg/types"
)

const (
	// analysisTemperature is the sampling temperature for analysis calls.
	// Zero keeps field extraction deterministic.
	analysisTemperature = 0.0

	// analysisMaxTokens bounds the completion size. Analyses are small
	// JSON objects; anything longer is the model rambling.
	analysisMaxTokens = 1000

	// responsePreviewLength is how many runes of a rejected response are
	// quoted in error messages and logs.
	responsePreviewLength = 200

	// fallbackContextWindow is assumed when a provider does not report
	// its context window size.
	fallbackContextWindow = 8192

	// taskJSONFormat names the reply format for invalid-response errors.
	taskJSONFormat = "JSON object with task analysis"
)

// requiredFields are the top-level keys an analysis reply must carry.
var requiredFields = []string{"description", "objectives", "success_criteria"}

// Analyzer converts natural-language task descriptions into structured
// tasks via an LLM provider.
type Analyzer struct {
	provider llm.Provider
	logger   *logging.Logger
	retrier  *llm.Retrier
	guard    *tokenizer.Guard
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for analysis diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithRetrier sets the retrier used around provider calls.
func WithRetrier(retrier *llm.Retrier) Option {
	return func(a *Analyzer) {
		a.retrier = retrier
	}
}

// WithGuard sets the token guard used to size prompts. Without this
// option the guard is built from the provider's reported context window.
func WithGuard(guard *tokenizer.Guard) Option {
	return func(a *Analyzer) {
		a.guard = guard
	}
}

// NewAnalyzer creates an Analyzer backed by the given provider.
func NewAnalyzer(provider llm.Provider, opts ...Option) (*Analyzer, error) {
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}

	a := &Analyzer{provider: provider}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		logger, err := logging.NewLogger("analyzer")
		if err != nil {
			logger.Warnf("Failed to initialize analyzer log file, using stderr: %v", err)
		}
		a.logger = logger
	}
	if a.retrier == nil {
		a.retrier = llm.NewRetrier()
	}
	if a.retrier.OnRetry == nil {
		a.retrier.OnRetry = func(attempt int, delay time.Duration, err error) {
			a.logger.Warnf("Analysis attempt %d failed, retrying in %s: %v", attempt, delay, err)
		}
	}
	if a.guard == nil {
		window := fallbackContextWindow
		if info := provider.GetModelInfo(); info != nil && info.MaxTokens > 0 {
			window = info.MaxTokens
		}
		guard, err := tokenizer.NewGuard(window)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token guard: %w", err)
		}
		a.guard = guard
	}

	return a, nil
}

// Analyze sends the task description to the LLM and returns the
// structured task. The returned task carries a fresh ID, the target
// URL, and a creation timestamp. All failures are returned as a
// *task.AnalysisError for the analyze stage.
func (a *Analyzer) Analyze(ctx context.Context, description, url string) (*task.Task, error) {
	if strings.TrimSpace(description) == "" {
		return nil, task.NewAnalysisError(types.StageAnalyze, "task description must not be empty", nil)
	}

	prompt, err := a.buildPrompt(description, url)
	if err != nil {
		return nil, err
	}
	a.logger.Debugf("Sending analysis prompt (%d tokens) to %s", a.guard.Count(prompt), a.provider.GetModel())

	response, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, task.NewAnalysisError(types.StageAnalyze, "LLM completion failed", err)
	}
	a.logger.Debugf("Received analysis response: %s", preview(response))

	analyzed, err := a.parseResponse(response, url)
	if err != nil {
		return nil, task.NewAnalysisError(types.StageAnalyze, "could not parse analysis response", err)
	}

	if err := analyzed.Validate(); err != nil {
		return nil, task.NewAnalysisError(types.StageAnalyze, "analysis produced an invalid task", err)
	}

	a.logger.Infof("Analyzed task %s: %d objectives, %d success criteria, complex=%t",
		analyzed.ID, len(analyzed.Objectives), len(analyzed.SuccessCriteria), analyzed.Complex)
	return analyzed, nil
}

// buildPrompt renders the analysis prompt, falling back to the compact
// template when the full prompt would not fit the context window.
func (a *Analyzer) buildPrompt(description, url string) (string, error) {
	prompt := prompts.TaskAnalysis(description, url)
	err := a.guard.Check(prompt)
	if err == nil {
		return prompt, nil
	}
	a.logger.Warnf("Full analysis prompt exceeds the context window (%v), using compact prompt", err)

	prompt = prompts.TaskAnalysisCompact(description, url)
	if err := a.guard.Check(prompt); err != nil {
		return "", task.NewAnalysisError(types.StageAnalyze, "task description does not fit the model context window", err)
	}
	return prompt, nil
}

// complete runs the completion through the retrier and strips any
// thinking block from the reply.
func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	messages := []*types.Message{types.NewUserMessage(prompt)}

	var reply *types.Message
	err := a.retrier.Do(ctx, func(ctx context.Context) error {
		var completeErr error
		reply, completeErr = a.provider.Complete(ctx, messages,
			llm.WithTemperature(analysisTemperature),
			llm.WithMaxTokens(analysisMaxTokens),
		)
		return completeErr
	})
	if err != nil {
		return "", err
	}
	return parser.StripThinking(reply.Content), nil
}

// parseResponse extracts the task JSON from a model reply, validates the
// required fields, and decodes it into a Task.
func (a *Analyzer) parseResponse(response, url string) (*task.Task, error) {
	data, err := parser.ExtractJSON(response)
	if err != nil {
		message := fmt.Sprintf(
			"No valid JSON object found in LLM response. Expected a JSON object with task analysis, but received: %s",
			preview(response))
		return nil, task.NewInvalidResponseError(message, response, taskJSONFormat, err)
	}

	if missing := missingFields(data); len(missing) > 0 {
		message := fmt.Sprintf("Missing required fields: %s. Expected all of: %s. Received fields: %s",
			strings.Join(missing, ", "),
			strings.Join(requiredFields, ", "),
			strings.Join(sortedKeys(data), ", "))
		return nil, task.NewInvalidResponseError(message, response, taskJSONFormat, nil)
	}

	for _, field := range []string{"objectives", "success_criteria"} {
		if !hasItems(data[field]) {
			message := fmt.Sprintf("Field '%s' must contain at least one item. Received: %v", field, data[field])
			return nil, task.NewInvalidResponseError(message, response, taskJSONFormat, nil)
		}
	}

	parser.NormalizeOptional(data, "data_to_extract", "actions_to_perform")
	_, hasComplex := data["complex"]

	analyzed, err := decodeTask(data)
	if err != nil {
		message := fmt.Sprintf("Task analysis JSON has the wrong shape: %v", err)
		return nil, task.NewInvalidResponseError(message, response, taskJSONFormat, err)
	}

	analyzed.ID = uuid.New().String()
	analyzed.CreatedAt = time.Now().UTC()
	if url != "" {
		analyzed.URL = url
	}
	if analyzed.Constraints == nil {
		analyzed.Constraints = []string{}
	}
	if analyzed.Context == nil {
		analyzed.Context = map[string]interface{}{}
	}
	if !hasComplex {
		analyzed.Complex = analyzed.EstimateComplex()
	}

	return analyzed, nil
}

// decodeTask converts the normalized response map into a Task through
// the struct's JSON tags.
func decodeTask(data map[string]interface{}) (*task.Task, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var analyzed task.Task
	if err := json.Unmarshal(raw, &analyzed); err != nil {
		return nil, err
	}
	return &analyzed, nil
}

// preview truncates a model response for error messages and logs.
func preview(response string) string {
	runes := []rune(response)
	if len(runes) <= responsePreviewLength {
		return response
	}
	return string(runes[:responsePreviewLength]) + "..."
}

// missingFields returns the required fields absent from data, in the
// order they are required.
func missingFields(data map[string]interface{}) []string {
	var missing []string
	for _, field := range requiredFields {
		if _, ok := data[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// sortedKeys returns data's keys in sorted order so error messages are
// stable.
func sortedKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// hasItems reports whether value is a list with at least one element.
func hasItems(value interface{}) bool {
	items, ok := value.([]interface{})
	return ok && len(items) > 0
}
