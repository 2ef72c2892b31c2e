// Package tokenizer estimates prompt token counts so prompts that exceed
// a model's context window are rejected before an API call is spent on them.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"scrapinator/pkg/llm"
)

// encodingName is the BPE encoding shared by the supported models. Counts
// are an approximation for Anthropic models but close enough for window
// checks with a sensible reserve.
const encodingName = "cl100k_base"

// Guard checks prompt sizes against a model's context window.
type Guard struct {
	count     func(text string) int
	maxTokens int
}

// NewGuard creates a Guard for a model with the given context window size.
func NewGuard(maxTokens int) (*Guard, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encodingName, err)
	}
	return NewGuardWithCounter(func(text string) int {
		return len(encoding.Encode(text, nil, nil))
	}, maxTokens), nil
}

// NewGuardWithCounter creates a Guard that uses a custom token counting
// function, for callers that bring their own tokenizer.
func NewGuardWithCounter(count func(text string) int, maxTokens int) *Guard {
	return &Guard{count: count, maxTokens: maxTokens}
}

// Count returns the token count of text.
func (g *Guard) Count(text string) int {
	return g.count(text)
}

// MaxTokens returns the context window size the guard enforces.
func (g *Guard) MaxTokens() int {
	return g.maxTokens
}

// Check returns a ContextLengthError when text does not fit the window.
func (g *Guard) Check(text string) error {
	tokens := g.count(text)
	if tokens > g.maxTokens {
		return &llm.ContextLengthError{
			PromptTokens: tokens,
			MaxTokens:    g.maxTokens,
		}
	}
	return nil
}

// Remaining returns how many tokens of the window text leaves unused.
// Negative when the text already exceeds the window.
func (g *Guard) Remaining(text string) int {
	return g.maxTokens - g.count(text)
}
