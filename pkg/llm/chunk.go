package llm

import "scrapinator/pkg/types"

// ContentType identifies the kind of content carried by a StreamChunk.
type ContentType string

const (
	// ContentTypeMessage is regular response content intended for the caller.
	ContentTypeMessage ContentType = "message"

	// ContentTypeThinking is reasoning content emitted inside thinking tags.
	// Pipeline stages typically discard it when parsing structured output.
	ContentTypeThinking ContentType = "thinking"
)

// StreamChunk is a single increment of a streamed LLM response.
//
// Chunks are intentionally simple: providers emit them, callers accumulate
// or render them. A chunk either carries content, marks the end of the
// stream, or reports an error.
type StreamChunk struct {
	// Content is the text delta carried by this chunk.
	Content string

	// Role is the message role, set on the first chunk of a response.
	Role string

	// Type distinguishes message content from thinking content.
	Type ContentType

	// Finished is true on the final chunk of a successful stream.
	Finished bool

	// Usage carries the token usage reported by the provider. It is set
	// on the closing chunk of the stream when the API reports usage, and
	// nil everywhere else.
	Usage *types.TokenUsage

	// Error is set when the stream failed. No further chunks follow an
	// error chunk.
	Error error
}

// IsError returns true if the chunk reports a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// IsThinking returns true if the chunk carries thinking content.
func (c *StreamChunk) IsThinking() bool {
	return c.Type == ContentTypeThinking
}
