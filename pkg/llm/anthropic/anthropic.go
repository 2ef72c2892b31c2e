// Package anthropic provides an Anthropic LLM provider implementation.
//
// The provider speaks the Messages API directly over SSE. System messages
// are lifted into the API's top-level system field, and thinking tags in
// the response are separated from message content the same way the openai
// provider does it.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"scrapinator/pkg/llm"
	"scrapinator/pkg/llm/parser"
	"scrapinator/pkg/types"
)

const (
	// DefaultBaseURL is the default Anthropic API base URL
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "claude-3-7-sonnet-20250219"

	// DefaultContextWindow is the context window size of the default model.
	DefaultContextWindow = 200000

	// DefaultTemperature is the sampling temperature used when no
	// per-call override is given.
	DefaultTemperature = 0.0

	// DefaultMaxTokens is the completion budget used when no per-call
	// override is given. The Messages API requires an explicit value.
	DefaultMaxTokens = 4096

	// apiVersion is the anthropic-version header sent with every request.
	apiVersion = "2023-06-01"
)

// Provider implements the LLM provider interface for the Anthropic API.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	modelInfo  *types.ModelInfo
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL, for proxies or compatible gateways.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// NewProvider creates a new Anthropic provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the ANTHROPIC_API_KEY
// environment variable. If baseURL is not provided via WithBaseURL, the
// ANTHROPIC_BASE_URL environment variable is checked.
//
// The default model is "claude-3-7-sonnet-20250219".
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (provide via parameter or ANTHROPIC_API_KEY environment variable)")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("ANTHROPIC_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.modelInfo = &types.ModelInfo{
		Provider:          "anthropic",
		Name:              p.model,
		SupportsStreaming: true,
		MaxTokens:         DefaultContextWindow,
		Metadata:          make(map[string]interface{}),
	}

	if p.baseURL != DefaultBaseURL {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}

	return p, nil
}

// CloneWithModel returns a shallow copy of p configured to use the given model.
// The clone shares the same HTTP client, API key, and base URL as the original.
// It implements llm.ModelCloner.
func (p *Provider) CloneWithModel(model string) llm.Provider {
	clone := *p
	clone.model = model
	if p.modelInfo != nil {
		mi := *p.modelInfo
		mi.Name = model
		clone.modelInfo = &mi
	}
	return &clone
}

// StreamCompletion sends messages to the Anthropic API and streams back
// response chunks. The channel is closed when streaming completes or an
// error occurs.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (<-chan *llm.StreamChunk, error) {
	resp, err := p.sendStreamRequest(ctx, messages, llm.ApplyCompletionOptions(opts))
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

// anthropicMessage is a single conversation turn in the Messages API format.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// convertMessages splits our message list into the API's top-level system
// prompt and the alternating user/assistant turns. Multiple system
// messages are joined with blank lines.
func convertMessages(messages []*types.Message) (system string, turns []anthropicMessage) {
	var systemParts []string
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case types.RoleAssistant:
			turns = append(turns, anthropicMessage{Role: "assistant", Content: msg.Content})
		default:
			turns = append(turns, anthropicMessage{Role: "user", Content: msg.Content})
		}
	}
	return strings.Join(systemParts, "\n\n"), turns
}

// sendStreamRequest creates and sends the HTTP request for streaming
func (p *Provider) sendStreamRequest(ctx context.Context, messages []*types.Message, options *llm.CompletionOptions) (*http.Response, error) {
	system, turns := convertMessages(messages)

	temperature := DefaultTemperature
	if options.Temperature != nil {
		temperature = *options.Temperature
	}
	maxTokens := DefaultMaxTokens
	if options.MaxTokens != nil {
		maxTokens = *options.MaxTokens
	}

	reqBody := map[string]interface{}{
		"model":       p.model,
		"messages":    turns,
		"stream":      true,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
	if system != "" {
		reqBody["system"] = system
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &llm.CommunicationError{
			Message: "request to Anthropic API failed",
			Err:     err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	return resp, nil
}

// responseError converts a non-success HTTP response into a typed error
// the retry layer can classify. The body is consumed and closed.
func responseError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &llm.RateLimitError{
			Message:    fmt.Sprintf("Anthropic API rate limit exceeded: %s", errorMessage(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	message := fmt.Sprintf("Anthropic API request failed with status %d: %s", resp.StatusCode, errorMessage(body))
	if readErr != nil {
		message = fmt.Sprintf("Anthropic API request failed with status %d (failed to read error body: %v)", resp.StatusCode, readErr)
	}
	return &llm.CommunicationError{
		Message:    message,
		StatusCode: resp.StatusCode,
	}
}

// errorMessage pulls the human-readable message out of an Anthropic error
// body, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// parseRetryAfter reads a Retry-After header value in seconds.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// tokenCounts accumulates the usage fields the Messages API reports
// across stream events. Input tokens arrive on message_start, output
// tokens arrive cumulatively on message_delta.
type tokenCounts struct {
	input  int
	output int
}

// usage converts the counts to a TokenUsage, or nil when the API never
// reported any.
func (c *tokenCounts) usage() *types.TokenUsage {
	if c.input == 0 && c.output == 0 {
		return nil
	}
	return &types.TokenUsage{
		PromptTokens:     c.input,
		CompletionTokens: c.output,
		TotalTokens:      c.input + c.output,
	}
}

// processStreamResponse processes the SSE stream and sends chunks to the channel
func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	thinkingParser := parser.NewThinkingParser()
	counts := &tokenCounts{}

	for scanner.Scan() {
		line := scanner.Text()

		if !p.isValidSSELine(line) {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		done, ok := p.processSSEEvent(ctx, data, thinkingParser, counts, chunks)
		if !ok || done {
			return
		}
	}

	p.flushRemainingContent(ctx, thinkingParser, chunks)

	if err := scanner.Err(); err != nil {
		chunks <- &llm.StreamChunk{Error: &llm.CommunicationError{Message: "stream read error", Err: err}}
	}
}

// isValidSSELine checks if a line is a valid SSE data line. Event name
// lines and SSE comments are skipped.
func (p *Provider) isValidSSELine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data: ")
}

// processSSEEvent processes a single Messages API stream event. It returns
// done=true on message_stop and ok=false when the consumer went away.
func (p *Provider) processSSEEvent(ctx context.Context, data string, thinkingParser *parser.ThinkingParser, counts *tokenCounts, chunks chan<- *llm.StreamChunk) (done, ok bool) {
	var event struct {
		Type    string `json:"type"`
		Message struct {
			Role  string `json:"role"`
			Usage struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		} `json:"message"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
		Usage struct {
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return false, true // Skip malformed events silently
	}

	switch event.Type {
	case "message_start":
		counts.input = event.Message.Usage.InputTokens
		counts.output = event.Message.Usage.OutputTokens
		role := event.Message.Role
		if role == "" {
			role = string(types.RoleAssistant)
		}
		return false, p.sendChunk(ctx, &llm.StreamChunk{Role: role}, chunks)

	case "content_block_delta":
		if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
			return false, true
		}
		return false, p.processContent(ctx, event.Delta.Text, thinkingParser, chunks)

	case "message_delta":
		// Carries the cumulative output token count.
		if event.Usage.OutputTokens > 0 {
			counts.output = event.Usage.OutputTokens
		}
		return false, true

	case "message_stop":
		p.flushRemainingContent(ctx, thinkingParser, chunks)
		p.sendChunk(ctx, &llm.StreamChunk{Finished: true, Usage: counts.usage()}, chunks)
		return true, true

	case "error":
		message := errorMessage([]byte(data))
		chunks <- &llm.StreamChunk{Error: &llm.CommunicationError{Message: "stream error: " + message}}
		return true, true
	}

	// Ignore ping, content_block_start, content_block_stop.
	return false, true
}

// processContent parses and sends content chunks
func (p *Provider) processContent(ctx context.Context, content string, thinkingParser *parser.ThinkingParser, chunks chan<- *llm.StreamChunk) bool {
	thinkingChunk, messageChunk := thinkingParser.Parse(content)

	if thinkingChunk != nil {
		if !p.sendChunk(ctx, thinkingChunk, chunks) {
			return false
		}
	}

	if messageChunk != nil {
		if !p.sendChunk(ctx, messageChunk, chunks) {
			return false
		}
	}

	return true
}

// flushRemainingContent flushes any buffered content from the thinking parser
func (p *Provider) flushRemainingContent(ctx context.Context, thinkingParser *parser.ThinkingParser, chunks chan<- *llm.StreamChunk) {
	thinking, message := thinkingParser.Flush()
	p.sendChunk(ctx, thinking, chunks)
	p.sendChunk(ctx, message, chunks)
}

// sendChunk sends a chunk to the channel if it's not nil
func (p *Provider) sendChunk(ctx context.Context, chunk *llm.StreamChunk, chunks chan<- *llm.StreamChunk) bool {
	if chunk == nil {
		return true
	}
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		chunks <- &llm.StreamChunk{Error: ctx.Err()}
		return false
	}
}

// Complete sends messages to the Anthropic API and returns the full response.
//
// This is a convenience wrapper around StreamCompletion that accumulates
// all chunks into a single message. Thinking content is dropped.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	var content string
	var role string
	var usage *types.TokenUsage

	for chunk := range stream {
		if chunk.IsError() {
			return nil, chunk.Error
		}

		if chunk.Role != "" {
			role = chunk.Role
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}

		if chunk.IsThinking() {
			continue
		}

		content += chunk.Content
	}

	if role == "" {
		role = string(types.RoleAssistant)
	}

	return &types.Message{
		Role:    types.MessageRole(role),
		Content: content,
		Usage:   usage,
	}, nil
}

// GetModelInfo returns information about the Anthropic model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// GetAPIKey returns the API key being used.
func (p *Provider) GetAPIKey() string {
	return p.apiKey
}
