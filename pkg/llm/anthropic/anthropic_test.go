package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapinator/pkg/llm"
	"scrapinator/pkg/types"
)

func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func textDelta(text string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]interface{}{"type": "text_delta", "text": text},
	})
	return "data: " + string(data)
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewProvider("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestNewProviderAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")

	provider, err := NewProvider("")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-from-env", provider.GetAPIKey())
	assert.Equal(t, DefaultModel, provider.GetModel())
}

func TestNewProviderDefaults(t *testing.T) {
	provider, err := NewProvider("sk-ant-test")
	require.NoError(t, err)

	info := provider.GetModelInfo()
	assert.Equal(t, "anthropic", info.Provider)
	assert.Equal(t, DefaultModel, info.Name)
	assert.True(t, info.SupportsStreaming)
	assert.Equal(t, DefaultContextWindow, info.MaxTokens)
}

func TestConvertMessages(t *testing.T) {
	system, turns := convertMessages([]*types.Message{
		types.NewSystemMessage("You analyze web pages."),
		types.NewSystemMessage("Respond with JSON only."),
		types.NewUserMessage("Analyze this form."),
		types.NewAssistantMessage("{}"),
	})

	assert.Equal(t, "You analyze web pages.\n\nRespond with JSON only.", system)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
}

func TestConvertMessagesNoSystem(t *testing.T) {
	system, turns := convertMessages([]*types.Message{
		types.NewUserMessage("hello"),
	})

	assert.Empty(t, system)
	require.Len(t, turns, 1)
}

func TestStreamRequestShape(t *testing.T) {
	var captured map[string]interface{}
	var apiKey, version string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		version = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\": \"message_stop\"}\n\n")
	}))
	t.Cleanup(server.Close)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	stream, err := provider.StreamCompletion(context.Background(),
		[]*types.Message{
			types.NewSystemMessage("Respond with JSON."),
			types.NewUserMessage("analyze"),
		},
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(1000),
	)
	require.NoError(t, err)
	for range stream {
	}

	assert.Equal(t, "sk-ant-test", apiKey)
	assert.Equal(t, apiVersion, version)
	assert.Equal(t, DefaultModel, captured["model"])
	assert.Equal(t, "Respond with JSON.", captured["system"])
	assert.Equal(t, 0.3, captured["temperature"])
	assert.Equal(t, float64(1000), captured["max_tokens"])
	assert.Equal(t, true, captured["stream"])

	turns, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, turns, 1)
}

func TestCompleteAccumulatesStream(t *testing.T) {
	server := sseServer(t,
		`data: {"type": "message_start", "message": {"role": "assistant"}}`,
		textDelta(`{"description": `),
		textDelta(`"find pricing"}`),
		`data: {"type": "message_delta", "delta": {"stop_reason": "end_turn"}}`,
		`data: {"type": "message_stop"}`,
	)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	response, err := provider.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("analyze this task"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssistant, response.Role)
	assert.Equal(t, `{"description": "find pricing"}`, response.Content)
}

func TestCompleteReportsTokenUsage(t *testing.T) {
	server := sseServer(t,
		`data: {"type": "message_start", "message": {"role": "assistant", "usage": {"input_tokens": 900, "output_tokens": 1}}}`,
		textDelta(`{"steps": []}`),
		`data: {"type": "message_delta", "delta": {"stop_reason": "end_turn"}, "usage": {"output_tokens": 210}}`,
		`data: {"type": "message_stop"}`,
	)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	response, err := provider.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("plan"),
	})
	require.NoError(t, err)
	require.NotNil(t, response.Usage)
	assert.Equal(t, 900, response.Usage.PromptTokens)
	assert.Equal(t, 210, response.Usage.CompletionTokens)
	assert.Equal(t, 1110, response.Usage.TotalTokens)
}

func TestCompleteWithoutUsageReported(t *testing.T) {
	server := sseServer(t,
		`data: {"type": "message_start", "message": {"role": "assistant"}}`,
		textDelta("ok"),
		`data: {"type": "message_stop"}`,
	)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	response, err := provider.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("plan"),
	})
	require.NoError(t, err)
	assert.Nil(t, response.Usage)
}

func TestCompleteDropsThinkingContent(t *testing.T) {
	server := sseServer(t,
		`data: {"type": "message_start", "message": {"role": "assistant"}}`,
		textDelta("<thinking>the form has two fields</thinking>"),
		textDelta(`{"confidence": 0.8}`),
		`data: {"type": "message_stop"}`,
	)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	response, err := provider.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("analyze"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"confidence": 0.8}`, response.Content)
}

func TestStreamCompletionSeparatesThinking(t *testing.T) {
	server := sseServer(t,
		`data: {"type": "message_start", "message": {"role": "assistant"}}`,
		textDelta("<thinking>reasoning</thinking>answer"),
		`data: {"type": "message_stop"}`,
	)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	stream, err := provider.StreamCompletion(context.Background(), []*types.Message{
		types.NewUserMessage("go"),
	})
	require.NoError(t, err)

	var thinking, message string
	var finished bool
	for chunk := range stream {
		require.False(t, chunk.IsError(), "unexpected stream error: %v", chunk.Error)
		if chunk.Finished {
			finished = true
		}
		if chunk.IsThinking() {
			thinking += chunk.Content
		} else {
			message += chunk.Content
		}
	}

	assert.Equal(t, "reasoning", thinking)
	assert.Equal(t, "answer", message)
	assert.True(t, finished)
}

func TestStreamCompletionIgnoresPingEvents(t *testing.T) {
	server := sseServer(t,
		`event: ping`,
		`data: {"type": "ping"}`,
		`data: {"type": "message_start", "message": {"role": "assistant"}}`,
		textDelta("ok"),
		`data: {"type": "message_stop"}`,
	)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	response, err := provider.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("go"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Content)
}

func TestStreamCompletionRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "rate_limit_error", "message": "Number of requests exceeds your rate limit"}}`)
	}))
	t.Cleanup(server.Close)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = provider.StreamCompletion(context.Background(),
		[]*types.Message{types.NewUserMessage("analyze")})
	require.Error(t, err)

	var rateLimit *llm.RateLimitError
	require.ErrorAs(t, err, &rateLimit)
	assert.Equal(t, 12*time.Second, rateLimit.RetryAfter)
	assert.True(t, llm.Retryable(err))
}

func TestStreamCompletionOverloadedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`)
	}))
	t.Cleanup(server.Close)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = provider.StreamCompletion(context.Background(),
		[]*types.Message{types.NewUserMessage("analyze")})
	require.Error(t, err)

	var comm *llm.CommunicationError
	require.ErrorAs(t, err, &comm)
	assert.Equal(t, http.StatusServiceUnavailable, comm.StatusCode)
	assert.Contains(t, comm.Error(), "Overloaded")
	assert.True(t, llm.Retryable(err))
}

func TestStreamCompletionAuthErrorNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`)
	}))
	t.Cleanup(server.Close)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = provider.StreamCompletion(context.Background(),
		[]*types.Message{types.NewUserMessage("analyze")})
	require.Error(t, err)
	assert.False(t, llm.Retryable(err))
}

func TestStreamErrorEvent(t *testing.T) {
	server := sseServer(t,
		`data: {"type": "message_start", "message": {"role": "assistant"}}`,
		`data: {"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`,
	)

	provider, err := NewProvider("sk-ant-test", WithBaseURL(server.URL))
	require.NoError(t, err)

	stream, err := provider.StreamCompletion(context.Background(),
		[]*types.Message{types.NewUserMessage("go")})
	require.NoError(t, err)

	var streamErr error
	for chunk := range stream {
		if chunk.IsError() {
			streamErr = chunk.Error
		}
	}
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "Overloaded")
}

func TestCloneWithModel(t *testing.T) {
	provider, err := NewProvider("sk-ant-test")
	require.NoError(t, err)

	clone := provider.CloneWithModel("claude-3-5-haiku-20241022")

	assert.Equal(t, "claude-3-5-haiku-20241022", clone.GetModel())
	assert.Equal(t, "claude-3-5-haiku-20241022", clone.GetModelInfo().Name)
	assert.Equal(t, provider.GetAPIKey(), clone.GetAPIKey())

	assert.Equal(t, DefaultModel, provider.GetModel())
}
