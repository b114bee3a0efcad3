package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrNoRelevantFeatures signals that resolution produced no verified features.
	ErrNoRelevantFeatures = errors.New("no relevant features")
	// ErrSynthesisExhausted signals that every repair attempt for a query failed.
	ErrSynthesisExhausted = errors.New("query synthesis attempts exhausted")
	// ErrLLMProviderError signals an LLM provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrTokenQuotaExceeded signals an exhausted token budget.
	ErrTokenQuotaExceeded = errors.New("token quota exceeded")
	// ErrStoreNotLoaded signals that the attribute store failed to load at startup.
	ErrStoreNotLoaded = errors.New("attribute store not loaded")
)
