package rag

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/domain"
)

type mockEmbedder struct {
	vector   []float32
	err      error
	calls    int
	lastKey  string
	lastText string
}

func (m *mockEmbedder) Embed(_ context.Context, text, cacheKey string) (domain.EmbeddingResult, error) {
	m.calls++
	m.lastText = text
	m.lastKey = cacheKey
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Vector: m.vector}, nil
}

type mockSearcher struct {
	results       []domain.SearchResult
	err           error
	lastLimit     int
	lastThreshold float32
	lastLanguage  string
	calls         int
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, limit int, scoreThreshold float32, languageFilter string) ([]domain.SearchResult, error) {
	m.calls++
	m.lastLimit = limit
	m.lastThreshold = scoreThreshold
	m.lastLanguage = languageFilter
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockChatter struct {
	answer  string
	err     error
	calls   int
	lastReq domain.ChatRequest
}

func (m *mockChatter) Chat(_ context.Context, req domain.ChatRequest) (string, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func newTestEngine(t *testing.T, emb *mockEmbedder, store *mockSearcher, chat *mockChatter) *Engine {
	t.Helper()
	return New(emb, store, chat, zap.NewNop())
}

func result(title, url, typ, text string, score float32) domain.SearchResult {
	return domain.SearchResult{
		Score: score,
		Payload: domain.Payload{
			Text:  text,
			Title: title,
			URL:   url,
			Type:  typ,
		},
	}
}
