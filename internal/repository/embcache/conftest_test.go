package embcache

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/db"
)

type mockProvider struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

// memStore is an in-memory db.KVStore for cache tests.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestCachedEmbedder(t *testing.T, p *mockProvider, enabled bool) (*CachedEmbedder, *memStore) {
	t.Helper()
	ms := newMemStore()
	ce := New(p, ms, "test:emb:", enabled, nil, zap.NewNop())
	return ce, ms
}
