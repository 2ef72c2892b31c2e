// Package parser provides utilities for parsing structured content from LLM
// responses: separating thinking tags from message content and extracting
// JSON objects from free-form text.
package parser

import (
	"strings"

	"scrapinator/pkg/llm"
)

// ThinkingParser separates <thinking> tags from regular content in a
// streamed response. It keeps state across chunks so tags that span chunk
// boundaries are still recognized.
type ThinkingParser struct {
	text     strings.Builder // accumulated non-tag content
	tag      strings.Builder // potential tag content between < and >
	thinking bool
	inTag    bool // saw '<' but not yet '>'
}

// NewThinkingParser creates a new thinking parser.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Parse processes a content chunk and returns separate chunks for thinking
// and message content. Either return value may be nil when the chunk
// produced no content of that kind.
//
// A '<' starts tag buffering; buffered text is only treated as a tag when
// it completes as <thinking> or </thinking>. Anything else is flushed back
// out as ordinary content, so comparison operators and inline markup in
// the response survive intact.
func (p *ThinkingParser) Parse(content string) (thinkingChunk, messageChunk *llm.StreamChunk) {
	if content == "" {
		return nil, nil
	}

	for _, ch := range content {
		if ch == '<' {
			// A second '<' means the buffered text was not a tag.
			if p.inTag {
				thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.flushTag())
			}
			if p.text.Len() > 0 {
				chunk := p.chunk(p.text.String())
				p.text.Reset()
				thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, chunk)
			}
			p.inTag = true
			p.tag.Reset()
			p.tag.WriteRune(ch)
			continue
		}

		if ch == '>' && p.inTag {
			p.tag.WriteRune(ch)
			tag := p.tag.String()
			p.tag.Reset()
			p.inTag = false

			switch tag {
			case "<thinking>":
				p.thinking = true
			case "</thinking>":
				p.thinking = false
			default:
				// Not a thinking tag, emit it as ordinary content.
				thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.chunk(tag))
			}
			continue
		}

		if p.inTag {
			p.tag.WriteRune(ch)
		} else {
			p.text.WriteRune(ch)
		}
	}

	if p.text.Len() > 0 {
		chunk := p.chunk(p.text.String())
		p.text.Reset()
		thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, chunk)
	}

	return
}

// flushTag drains the tag buffer as ordinary content.
func (p *ThinkingParser) flushTag() *llm.StreamChunk {
	if p.tag.Len() == 0 {
		return nil
	}
	text := p.tag.String()
	p.tag.Reset()
	return p.chunk(text)
}

// chunk wraps text in a StreamChunk typed by the current mode.
func (p *ThinkingParser) chunk(text string) *llm.StreamChunk {
	if text == "" {
		return nil
	}
	contentType := llm.ContentTypeMessage
	if p.thinking {
		contentType = llm.ContentTypeThinking
	}
	return &llm.StreamChunk{Content: text, Type: contentType}
}

// merge folds a new chunk into the accumulated thinking or message chunk.
func (p *ThinkingParser) merge(thinkingChunk, messageChunk, next *llm.StreamChunk) (*llm.StreamChunk, *llm.StreamChunk) {
	if next == nil {
		return thinkingChunk, messageChunk
	}
	if next.Type == llm.ContentTypeThinking {
		if thinkingChunk == nil {
			return next, messageChunk
		}
		thinkingChunk.Content += next.Content
		return thinkingChunk, messageChunk
	}
	if messageChunk == nil {
		return thinkingChunk, next
	}
	messageChunk.Content += next.Content
	return thinkingChunk, messageChunk
}

// IsInThinking returns true if currently inside a thinking block.
func (p *ThinkingParser) IsInThinking() bool {
	return p.thinking
}

// Flush returns any buffered content that has not been emitted yet. Call
// at end of stream so a trailing partial tag is not lost.
func (p *ThinkingParser) Flush() (thinkingChunk, messageChunk *llm.StreamChunk) {
	if p.inTag && p.tag.Len() > 0 {
		thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.flushTag())
		p.inTag = false
	}
	if p.text.Len() > 0 {
		text := p.text.String()
		p.text.Reset()
		thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.chunk(text))
	}
	return thinkingChunk, messageChunk
}

// Reset clears the parser state for a new stream.
func (p *ThinkingParser) Reset() {
	p.text.Reset()
	p.tag.Reset()
	p.thinking = false
	p.inTag = false
}

// StripThinking removes thinking blocks from a complete response and
// returns only the message content. Pipeline stages call this before
// extracting structured output from a response.
func StripThinking(content string) string {
	p := NewThinkingParser()
	var out strings.Builder

	_, message := p.Parse(content)
	if message != nil {
		out.WriteString(message.Content)
	}
	_, message = p.Flush()
	if message != nil {
		out.WriteString(message.Content)
	}
	return out.String()
}
