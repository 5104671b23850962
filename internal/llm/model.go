package llm

import "context"

// Params are the sampling parameters sent with a completion request
type Params struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Model defines the interface for remote text generation
type Model interface {
	// Generate sends prompt to the model and returns the completion. Some
	// providers return the completion in several chunks; callers join them
	// in order.
	Generate(ctx context.Context, prompt string, params Params) ([]string, error)
	// Close closes the model client and releases resources
	Close() error
}
