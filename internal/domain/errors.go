package domain

import "errors"

// Sentinel errors shared between layers.
var (
	// ErrConfiguration signals a missing or invalid required setting.
	// Raised at construction, never at call time.
	ErrConfiguration = errors.New("configuration error")
	// ErrProvider signals an embedding or LLM provider failure.
	ErrProvider = errors.New("provider error")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrVectorStore signals a vector store transport failure.
	ErrVectorStore = errors.New("vector store error")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrNotRegistered signals a content type with no extraction rule.
	ErrNotRegistered = errors.New("content type not registered")
)
