// Package rag answers natural-language questions over the indexed
// collection: embed the question, retrieve near chunks, assemble a
// grounding context, and call the chat model.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/domain"
)

const (
	defaultSearchLimit    = 5
	defaultScoreThreshold = 0.5

	// Used when retrieval returns nothing. The chat model is still
	// called so the caller always gets a best-effort answer.
	emptyContextPlaceholder = "No specific context was found for this question in the knowledge base."

	defaultSystemPrompt = "You are a helpful assistant. Answer using only the provided context. " +
		"If the context does not contain enough information to answer, say so honestly. " +
		"Do not fabricate facts that are not in the context."
)

// searcher is the retrieval surface the engine needs from the vector store.
type searcher interface {
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float32, languageFilter string) ([]domain.SearchResult, error)
}

// QueryRequest is one question, optionally with prior turns. Zero values
// for Limit and ScoreThreshold select the defaults.
type QueryRequest struct {
	Question       string
	History        []domain.ChatMessage
	Limit          int
	ScoreThreshold float32
	LanguageFilter string
}

// Source is one user-facing citation.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// QueryResult is a completed answer with its citations.
type QueryResult struct {
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	ResultsCount int      `json:"results_count"`
}

// Engine runs the retrieval-augmented query pipeline. It is stateless
// apart from the configurable system prompt.
type Engine struct {
	embedder     domain.Embedder
	store        searcher
	chatter      domain.Chatter
	systemPrompt string
	logger       *zap.Logger
}

// New creates an engine with the default system prompt.
func New(embedder domain.Embedder, store searcher, chatter domain.Chatter, logger *zap.Logger) *Engine {
	return &Engine{
		embedder:     embedder,
		store:        store,
		chatter:      chatter,
		systemPrompt: defaultSystemPrompt,
		logger:       logger,
	}
}

// SetSystemPrompt overrides the default grounding instruction.
func (e *Engine) SetSystemPrompt(prompt string) {
	if strings.TrimSpace(prompt) != "" {
		e.systemPrompt = prompt
	}
}

// Query answers one question. It fails only when embedding the question
// or the chat call fails; retrieval returning nothing is not an error,
// the model is asked anyway with a placeholder context.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrConfiguration)
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	if req.ScoreThreshold <= 0 {
		req.ScoreThreshold = defaultScoreThreshold
	}

	// Identical questions share a cache entry, so repeats skip the
	// provider call.
	cacheKey := "q:" + domain.ContentHash(question)
	emb, err := e.embedder.Embed(ctx, question, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := e.store.Search(ctx, emb.Vector, req.Limit, req.ScoreThreshold, req.LanguageFilter)
	if err != nil {
		// Degrade to an ungrounded answer rather than failing the query.
		e.logger.Warn("Search failed, answering without context", zap.Error(err))
		results = nil
	}

	answer, err := e.chatter.Chat(ctx, domain.ChatRequest{
		SystemPrompt: e.systemPrompt,
		History:      req.History,
		Message:      buildMessage(question, results),
	})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	e.logger.Info("Query answered",
		zap.Int("results", len(results)),
		zap.Int("answer_chars", len(answer)),
	)
	return &QueryResult{
		Answer:       answer,
		Sources:      collectSources(results),
		ResultsCount: len(results),
	}, nil
}

// buildMessage assembles the final user message: retrieved context in
// descending-score order, then the literal question.
func buildMessage(question string, results []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	b.WriteString(buildContext(results))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func buildContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return emptyContextPlaceholder
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if title := strings.TrimSpace(r.Payload.Title); title != "" {
			parts = append(parts, "## "+title+"\n"+r.Payload.Text)
		} else {
			parts = append(parts, r.Payload.Text)
		}
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// collectSources deduplicates citations by (title, url, type), keeping
// first-seen order. Results without a url are not citable and skipped.
func collectSources(results []domain.SearchResult) []Source {
	seen := make(map[Source]bool, len(results))
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		if r.Payload.URL == "" {
			continue
		}
		src := Source{Title: r.Payload.Title, URL: r.Payload.URL, Type: r.Payload.Type}
		if seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	return sources
}
