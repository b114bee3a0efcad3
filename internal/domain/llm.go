package domain

import "context"

// Completer is the shared single-turn LLM contract between layers.
// Complete sends one prompt and returns the model's reply text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (CompletionResult, error)
}

// CompletionResult carries the reply text and token usage through the
// decorator chain.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
