package llm

// CompletionOptions holds per-call overrides for a completion request.
// Nil fields mean "use the provider default", which lets callers request
// an explicit temperature of zero.
type CompletionOptions struct {
	// Temperature overrides the sampling temperature for this call.
	Temperature *float64

	// MaxTokens overrides the maximum number of tokens to generate.
	MaxTokens *int
}

// CompletionOption configures a single completion request.
type CompletionOption func(*CompletionOptions)

// WithTemperature sets the sampling temperature for this call.
func WithTemperature(temperature float64) CompletionOption {
	return func(o *CompletionOptions) {
		o.Temperature = &temperature
	}
}

// WithMaxTokens sets the maximum number of tokens to generate for this call.
func WithMaxTokens(maxTokens int) CompletionOption {
	return func(o *CompletionOptions) {
		o.MaxTokens = &maxTokens
	}
}

// ApplyCompletionOptions collects a set of options into a CompletionOptions
// struct. Providers call this at the top of StreamCompletion.
func ApplyCompletionOptions(opts []CompletionOption) *CompletionOptions {
	options := &CompletionOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
