// Package explorer implements the page exploration stage of the
// pipeline. It visits a page in a browser session, compacts the HTML,
// discovers the interactive elements, and asks an LLM provider for a
// structured understanding of the page. Fresh analyses are cached so
// repeated runs against the same page skip the browser entirely.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"scrapinator/pkg/browser"
	"scrapinator/pkg/llm"
	"scrapinator/pkg/llm/parser"
	"scrapinator/pkg/llm/tokenizer"
	"scrapinator/pkg/logging"
	"scrapinator/pkg/prompts"
	"scrapinator/pkg/security"
	"scrapinator/pkg/task"
	"scrapinator/pkg/types"
)

const (
	// exploreTemperature is the sampling temperature for page analysis
	// calls. Zero keeps element extraction deterministic.
	exploreTemperature = 0.0

	// exploreMaxTokens bounds the completion size. Element inventories
	// run longer than task analyses.
	exploreMaxTokens = 2000

	// fallbackContextWindow is assumed when a provider does not report
	// its context window size.
	fallbackContextWindow = 8192

	// pageJSONFormat names the reply format for invalid-response errors.
	pageJSONFormat = "JSON object with page analysis"
)

// DefaultCacheTTL is how long a cached page analysis stays servable.
const DefaultCacheTTL = 15 * time.Minute

// PageBrowser is the slice of the browser session surface exploration
// needs. *browser.Session implements it.
type PageBrowser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL() string
	ExtractHTML(ctx context.Context) (string, error)
	DiscoverElements(ctx context.Context) ([]task.PageElement, error)
}

// SessionSource lends a browser session to a callback for the duration
// of one exploration.
type SessionSource interface {
	WithSession(ctx context.Context, fn func(PageBrowser) error) error
}

// PoolSource adapts a *browser.Pool to the SessionSource interface.
type PoolSource struct {
	Pool *browser.Pool
}

// WithSession runs fn with a pooled browser session.
func (p PoolSource) WithSession(ctx context.Context, fn func(PageBrowser) error) error {
	return p.Pool.WithSession(ctx, func(session *browser.Session) error {
		return fn(session)
	})
}

// PageCache is the cache surface the explorer needs. *store.Store
// implements it.
type PageCache interface {
	LookupPage(url string, maxAge time.Duration) (*task.PageAnalysis, error)
	CachePage(analysis *task.PageAnalysis) error
}

// ExploreOptions adjust a single exploration.
type ExploreOptions struct {
	// Refresh bypasses the cache and re-analyzes the live page.
	Refresh bool

	// MaxHTMLBytes overrides the snapshot byte budget. Zero uses
	// browser.DefaultMaxHTMLBytes.
	MaxHTMLBytes int
}

// Explorer produces structured page analyses from live pages.
type Explorer struct {
	sessions SessionSource
	provider llm.Provider
	cache    PageCache
	policy   *security.Policy
	logger   *logging.Logger
	retrier  *llm.Retrier
	guard    *tokenizer.Guard
	cacheTTL time.Duration
	now      func() time.Time
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithCache sets the page analysis cache. Without a cache every
// exploration visits the live page.
func WithCache(cache PageCache) Option {
	return func(e *Explorer) {
		e.cache = cache
	}
}

// WithCacheTTL sets how long cached analyses stay servable.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Explorer) {
		e.cacheTTL = ttl
	}
}

// WithPolicy sets the security policy checked before navigation.
func WithPolicy(policy *security.Policy) Option {
	return func(e *Explorer) {
		e.policy = policy
	}
}

// WithLogger sets the logger used for exploration diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Explorer) {
		e.logger = logger
	}
}

// WithRetrier sets the retrier used around provider calls.
func WithRetrier(retrier *llm.Retrier) Option {
	return func(e *Explorer) {
		e.retrier = retrier
	}
}

// WithGuard sets the token guard used to size prompts. Without this
// option the guard is built from the provider's reported context window.
func WithGuard(guard *tokenizer.Guard) Option {
	return func(e *Explorer) {
		e.guard = guard
	}
}

// NewExplorer creates an Explorer that borrows sessions from source and
// analyzes pages with provider.
func NewExplorer(source SessionSource, provider llm.Provider, opts ...Option) (*Explorer, error) {
	if source == nil {
		return nil, fmt.Errorf("session source is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}

	e := &Explorer{
		sessions: source,
		provider: provider,
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		logger, err := logging.NewLogger("explorer")
		if err != nil {
			logger.Warnf("Failed to initialize explorer log file, using stderr: %v", err)
		}
		e.logger = logger
	}
	if e.retrier == nil {
		e.retrier = llm.NewRetrier()
	}
	if e.retrier.OnRetry == nil {
		e.retrier.OnRetry = func(attempt int, delay time.Duration, err error) {
			e.logger.Warnf("Page analysis attempt %d failed, retrying in %s: %v", attempt, delay, err)
		}
	}
	if e.guard == nil {
		window := fallbackContextWindow
		if info := provider.GetModelInfo(); info != nil && info.MaxTokens > 0 {
			window = info.MaxTokens
		}
		guard, err := tokenizer.NewGuard(window)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token guard: %w", err)
		}
		e.guard = guard
	}

	return e, nil
}

// Explore returns a structured analysis of the page at rawURL, from the
// cache when a fresh entry exists, otherwise from a live browser visit.
// All failures are returned as a *task.AnalysisError for the explore
// stage.
func (e *Explorer) Explore(ctx context.Context, rawURL string, opts ExploreOptions) (*task.PageAnalysis, error) {
	pageURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, task.NewAnalysisError(types.StageExplore, "invalid page URL", err)
	}

	if e.policy != nil {
		if err := e.policy.CheckURL(pageURL); err != nil {
			return nil, task.NewAnalysisError(types.StageExplore, "page URL rejected by security policy", err)
		}
	}

	if e.cache != nil && !opts.Refresh {
		cached, err := e.cache.LookupPage(pageURL, e.cacheTTL)
		if err != nil {
			e.logger.Warnf("Page cache lookup failed for %s: %v", pageURL, err)
		} else if cached != nil {
			e.logger.Infof("Page cache hit for %s", pageURL)
			return cached, nil
		}
	}

	var analysis *task.PageAnalysis
	err = e.sessions.WithSession(ctx, func(session PageBrowser) error {
		var exploreErr error
		analysis, exploreErr = e.explorePage(ctx, session, pageURL, opts)
		return exploreErr
	})
	if err != nil {
		var stageErr *task.AnalysisError
		if errors.As(err, &stageErr) {
			return nil, err
		}
		return nil, task.NewAnalysisError(types.StageExplore, "browser session unavailable", err)
	}

	if e.cache != nil {
		if err := e.cache.CachePage(analysis); err != nil {
			e.logger.Warnf("Failed to cache analysis for %s: %v", pageURL, err)
		}
	}

	e.logger.Infof("Explored %s: type=%s elements=%d confidence=%.2f",
		pageURL, analysis.PageType, len(analysis.Elements), analysis.Confidence)
	return analysis, nil
}

// explorePage visits the page in a live session and runs the analysis.
func (e *Explorer) explorePage(ctx context.Context, session PageBrowser, pageURL string, opts ExploreOptions) (*task.PageAnalysis, error) {
	if err := session.Navigate(ctx, pageURL); err != nil {
		return nil, task.NewAnalysisError(types.StageExplore, fmt.Sprintf("failed to navigate to %s", pageURL), err)
	}
	if e.policy != nil {
		if err := e.policy.CheckRedirect(pageURL, session.CurrentURL()); err != nil {
			return nil, task.NewAnalysisError(types.StageExplore, fmt.Sprintf("navigation to %s was redirected off-policy", pageURL), err)
		}
	}

	rawHTML, err := session.ExtractHTML(ctx)
	if err != nil {
		return nil, task.NewAnalysisError(types.StageExplore, "failed to capture page HTML", err)
	}

	cleaned, err := browser.CleanHTML(rawHTML, opts.MaxHTMLBytes)
	if err != nil {
		return nil, task.NewAnalysisError(types.StageExplore, "failed to clean page HTML", err)
	}

	prompt := prompts.PageAnalysis(pageURL, cleaned.HTML)
	if err := e.guard.Check(prompt); err != nil {
		e.logger.Warnf("Page analysis prompt exceeds the context window (%v), re-cleaning at half budget", err)
		recleaned, cleanErr := browser.CleanHTML(rawHTML, len(cleaned.HTML)/2)
		if cleanErr != nil {
			return nil, task.NewAnalysisError(types.StageExplore, "failed to clean page HTML", cleanErr)
		}
		cleaned = recleaned
		prompt = prompts.PageAnalysis(pageURL, cleaned.HTML)
		if err := e.guard.Check(prompt); err != nil {
			return nil, task.NewAnalysisError(types.StageExplore, "page does not fit the model context window", err)
		}
	}

	domElements, err := session.DiscoverElements(ctx)
	if err != nil {
		// The model's element inventory still covers the page.
		e.logger.Warnf("Element discovery failed for %s: %v", pageURL, err)
		domElements = nil
	}

	response, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, task.NewAnalysisError(types.StageExplore, "LLM completion failed", err)
	}

	analysis, err := parseAnalysis(response)
	if err != nil {
		return nil, task.NewAnalysisError(types.StageExplore, "could not parse page analysis response", err)
	}

	analysis.URL = pageURL
	analysis.Title = cleaned.Title
	analysis.AnalyzedAt = e.now().UTC()
	analysis.Elements = mergeElements(domElements, analysis.Elements)

	if err := analysis.Validate(); err != nil {
		return nil, task.NewAnalysisError(types.StageExplore, "exploration produced an invalid analysis", err)
	}
	return analysis, nil
}

// complete runs the completion through the retrier and strips any
// thinking block from the reply.
func (e *Explorer) complete(ctx context.Context, prompt string) (string, error) {
	messages := []*types.Message{types.NewUserMessage(prompt)}

	var reply *types.Message
	err := e.retrier.Do(ctx, func(ctx context.Context) error {
		var completeErr error
		reply, completeErr = e.provider.Complete(ctx, messages,
			llm.WithTemperature(exploreTemperature),
			llm.WithMaxTokens(exploreMaxTokens),
		)
		return completeErr
	})
	if err != nil {
		return "", err
	}
	return parser.StripThinking(reply.Content), nil
}

// pageAnalysisWire matches the JSON shape the page analysis prompt
// requests.
type pageAnalysisWire struct {
	PageType   string            `json:"page_type"`
	Summary    string            `json:"summary"`
	Elements   []pageElementWire `json:"elements"`
	Insights   []string          `json:"insights"`
	Confidence float64           `json:"confidence"`
}

type pageElementWire struct {
	Type     string `json:"type"`
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Purpose  string `json:"purpose"`
}

// parseAnalysis extracts the analysis JSON from a model reply.
func parseAnalysis(response string) (*task.PageAnalysis, error) {
	raw, err := parser.ExtractJSONBytes(response)
	if err != nil {
		return nil, task.NewInvalidResponseError(
			"Page analysis response did not contain a JSON object", response, pageJSONFormat, err)
	}

	var wire pageAnalysisWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		message := fmt.Sprintf("Page analysis JSON has the wrong shape: %v", err)
		return nil, task.NewInvalidResponseError(message, response, pageJSONFormat, err)
	}

	analysis := &task.PageAnalysis{
		PageType:   strings.TrimSpace(wire.PageType),
		Summary:    strings.TrimSpace(wire.Summary),
		Insights:   wire.Insights,
		Confidence: task.ClampConfidence(wire.Confidence),
	}
	for _, element := range wire.Elements {
		selector := strings.TrimSpace(element.Selector)
		if selector == "" {
			continue
		}
		analysis.Elements = append(analysis.Elements, task.PageElement{
			Selector: selector,
			Type:     element.Type,
			Text:     element.Text,
			Purpose:  element.Purpose,
		})
	}
	return analysis, nil
}

// mergeElements combines DOM-discovered elements with model-reported
// ones. When both name the same selector the DOM element wins, since it
// was synthesized from a live node, but it adopts the model's reading of
// type and purpose where the DOM side has none.
func mergeElements(dom, reported []task.PageElement) []task.PageElement {
	merged := make([]task.PageElement, 0, len(dom)+len(reported))
	position := make(map[string]int, len(dom))

	for _, element := range dom {
		position[element.Selector] = len(merged)
		merged = append(merged, element)
	}
	for _, element := range reported {
		i, ok := position[element.Selector]
		if !ok {
			merged = append(merged, element)
			continue
		}
		if merged[i].Purpose == "" {
			merged[i].Purpose = element.Purpose
		}
		if merged[i].Type == "" {
			merged[i].Type = element.Type
		}
	}
	return merged
}

// normalizeURL canonicalizes a page URL for navigation and cache keys:
// lowercased scheme and host, no fragment, "/" for an empty path.
func normalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("url is empty")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %q must be absolute", trimmed)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String(), nil
}
