package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Embedder is the shared text vectorization contract between layers.
// cacheKey is a caller-supplied stable identifier ("{item}_{chunk}" for
// indexing, a question hash for queries); implementations may use it to
// skip the provider call entirely.
type Embedder interface {
	Embed(ctx context.Context, text, cacheKey string) (EmbeddingResult, error)
}

// EmbeddingResult carries the vector and its cache provenance.
type EmbeddingResult struct {
	Vector []float32
	Cached bool
}

// Chatter is the LLM chat contract consumed by the RAG engine.
// Retry policy for transient chat errors belongs to implementations,
// not to callers.
type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// ChatMessage is one prior conversation turn. Any role other than
// "assistant" is treated as "user".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single grounded chat call.
type ChatRequest struct {
	SystemPrompt string
	History      []ChatMessage
	Message      string
}

// ContentHash returns the hex sha256 of text. It is both the cache
// invalidation key and the cross-run deduplication key, so every layer
// must compute it the same way.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
