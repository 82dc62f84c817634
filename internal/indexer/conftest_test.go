package indexer

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/domain"
	"github.com/ragline/ragline/internal/repository/embcache"
)

type mockSource struct {
	items map[string][]domain.ContentItem
	err   error
}

func (m *mockSource) ListItems(_ context.Context, typeName string, _ int) ([]domain.ContentItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items[typeName], nil
}

type mockEmbedder struct {
	vector    []float32
	err       error
	calls     int
	cachedSet map[string]bool // cache keys answered as cached
	stats     embcache.Stats
}

func (m *mockEmbedder) Embed(_ context.Context, _, cacheKey string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if m.cachedSet[cacheKey] {
		m.stats.Cached++
		return domain.EmbeddingResult{Vector: m.vector, Cached: true}, nil
	}
	m.stats.New++
	return domain.EmbeddingResult{Vector: m.vector}, nil
}

func (m *mockEmbedder) ClearCache(_ context.Context) (int, error) { return 0, nil }

func (m *mockEmbedder) Stats() embcache.Stats {
	s := m.stats
	s.Total = s.Cached + s.New
	return s
}

func (m *mockEmbedder) ResetStats() { m.stats = embcache.Stats{} }

type mockStore struct {
	exists      bool
	createCalls []bool // deleteExisting flag per call
	uploads     [][]domain.Point
	uploadErrs  []error // per-call errors, nil-padded
	hashHits    map[string]*domain.Point
	hashLookups int
}

func (m *mockStore) CreateCollection(_ context.Context, deleteExisting bool) error {
	m.createCalls = append(m.createCalls, deleteExisting)
	m.exists = true
	return nil
}

func (m *mockStore) CollectionExists(_ context.Context) (bool, error) {
	return m.exists, nil
}

func (m *mockStore) UpsertPoints(_ context.Context, points []domain.Point) error {
	call := len(m.uploads)
	m.uploads = append(m.uploads, append([]domain.Point(nil), points...))
	if call < len(m.uploadErrs) {
		return m.uploadErrs[call]
	}
	return nil
}

func (m *mockStore) SearchByContentHash(_ context.Context, hash string) (*domain.Point, error) {
	m.hashLookups++
	return m.hashHits[hash], nil
}

func (m *mockStore) uploaded() []domain.Point {
	var all []domain.Point
	for _, batch := range m.uploads {
		all = append(all, batch...)
	}
	return all
}

func newTestIndexer(t *testing.T, src *mockSource, emb *mockEmbedder, store *mockStore, reg *config.Registry, opts Options) *Indexer {
	t.Helper()
	if opts.MinContentLength == 0 {
		opts.MinContentLength = 20
	}
	ix := New(src, emb, store, reg, opts, zap.NewNop())
	ix.sleep = func(time.Duration) {}
	return ix
}
