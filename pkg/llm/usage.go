package llm

import (
	"context"
	"sync"

	"scrapinator/pkg/types"
)

// UsageTracker wraps a Provider and accumulates the token usage its
// completions report. Wrap the provider once at wiring time and share
// the tracker with whatever needs run totals; it is safe for
// concurrent use.
type UsageTracker struct {
	provider Provider
	counts   *usageCounts
}

type usageCounts struct {
	mu    sync.Mutex
	total types.TokenUsage
	calls int
}

// NewUsageTracker wraps the given provider.
func NewUsageTracker(provider Provider) *UsageTracker {
	return &UsageTracker{provider: provider, counts: &usageCounts{}}
}

// Total returns the accumulated token usage across all completions the
// tracker has seen.
func (t *UsageTracker) Total() types.TokenUsage {
	t.counts.mu.Lock()
	defer t.counts.mu.Unlock()
	return t.counts.total
}

// Calls returns how many completions reported usage.
func (t *UsageTracker) Calls() int {
	t.counts.mu.Lock()
	defer t.counts.mu.Unlock()
	return t.counts.calls
}

func (t *UsageTracker) record(usage *types.TokenUsage) {
	t.counts.mu.Lock()
	defer t.counts.mu.Unlock()
	t.counts.total.PromptTokens += usage.PromptTokens
	t.counts.total.CompletionTokens += usage.CompletionTokens
	t.counts.total.TotalTokens += usage.TotalTokens
	t.counts.calls++
}

// CloneWithModel returns a tracker around a clone of the wrapped provider
// directed at the given model. The clone shares this tracker's counters,
// so usage from every model variant lands in one total. If the wrapped
// provider does not support cloning the tracker itself is returned.
func (t *UsageTracker) CloneWithModel(model string) Provider {
	cloner, ok := t.provider.(ModelCloner)
	if !ok {
		return t
	}
	return &UsageTracker{provider: cloner.CloneWithModel(model), counts: t.counts}
}

// Complete delegates to the wrapped provider and records any usage the
// response carries.
func (t *UsageTracker) Complete(ctx context.Context, messages []*types.Message, opts ...CompletionOption) (*types.Message, error) {
	reply, err := t.provider.Complete(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if reply.Usage != nil {
		t.record(reply.Usage)
	}
	return reply, nil
}

// StreamCompletion delegates to the wrapped provider and records usage
// from the closing chunk as it passes through.
func (t *UsageTracker) StreamCompletion(ctx context.Context, messages []*types.Message, opts ...CompletionOption) (<-chan *StreamChunk, error) {
	stream, err := t.provider.StreamCompletion(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	out := make(chan *StreamChunk, 10)
	go func() {
		defer close(out)
		for chunk := range stream {
			if chunk.Usage != nil {
				t.record(chunk.Usage)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				// The consumer went away. Keep draining so the provider
				// goroutine can finish and late usage still lands in the
				// totals.
				for chunk := range stream {
					if chunk.Usage != nil {
						t.record(chunk.Usage)
					}
				}
				return
			}
		}
	}()
	return out, nil
}

// GetModelInfo returns the wrapped provider's model information.
func (t *UsageTracker) GetModelInfo() *types.ModelInfo {
	return t.provider.GetModelInfo()
}

// GetModel returns the wrapped provider's model name.
func (t *UsageTracker) GetModel() string {
	return t.provider.GetModel()
}

// GetBaseURL returns the wrapped provider's base URL.
func (t *UsageTracker) GetBaseURL() string {
	return t.provider.GetBaseURL()
}

// GetAPIKey returns the wrapped provider's API key.
func (t *UsageTracker) GetAPIKey() string {
	return t.provider.GetAPIKey()
}
