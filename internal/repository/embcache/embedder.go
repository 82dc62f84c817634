// Package embcache wraps the embedding provider with a persistent
// content-addressed cache. An entry is valid only while its stored hash
// matches the hash of the text it would be computed for; on mismatch it
// is treated as a miss and overwritten.
package embcache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/db"
	"github.com/ragline/ragline/internal/domain"
)

// hashSuffix marks the companion key holding an entry's content hash.
const hashSuffix = "_hash"

// provider is the consumer interface for the raw embedding transport.
type provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// store is the consumer interface for the cache backend.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Stats accumulates cache effectiveness counters since construction or
// the last Reset.
type Stats struct {
	Cached  int
	New     int
	Total   int
	HitRate float64
}

// CachedEmbedder caches embeddings in a key-value store keyed by a
// caller-supplied stable identifier, validated by content hash.
type CachedEmbedder struct {
	provider   provider
	store      store
	prefix     string
	enabled    bool
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	// Plain counters: the pipeline is single-threaded and one embedder
	// instance is owned by one run.
	cached int
	fresh  int
}

// Compile-time check: CachedEmbedder implements domain.Embedder.
var _ domain.Embedder = (*CachedEmbedder)(nil)

// New creates a caching embedder. store may be nil when enabled is false.
// cacheTotal is a counter vec with label "result" ("hit"/"miss").
func New(
	p provider,
	s store,
	prefix string,
	enabled bool,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		provider:   p,
		store:      s,
		prefix:     prefix,
		enabled:    enabled && s != nil,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns the vector for text. With caching on, a stored entry whose
// hash matches is returned without any network call; otherwise the provider
// is called and the result persisted. A provider failure leaves the cache
// untouched, so a stale-but-valid entry survives a failed refresh.
func (c *CachedEmbedder) Embed(ctx context.Context, text, cacheKey string) (domain.EmbeddingResult, error) {
	if !c.enabled {
		vec, err := c.provider.Embed(ctx, text)
		if err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
		}
		c.fresh++
		return domain.EmbeddingResult{Vector: vec}, nil
	}

	hash := domain.ContentHash(text)

	if vec, ok := c.lookup(ctx, cacheKey, hash); ok {
		c.cached++
		c.incCache("hit")
		return domain.EmbeddingResult{Vector: vec, Cached: true}, nil
	}
	c.incCache("miss")

	vec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.put(ctx, cacheKey, hash, vec)
	c.fresh++
	return domain.EmbeddingResult{Vector: vec}, nil
}

// ClearCache deletes every key under the configured prefix and returns the
// number of keys removed.
func (c *CachedEmbedder) ClearCache(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan cache keys: %w", err)
	}
	deleted := 0
	for _, key := range keys {
		if err := c.store.Del(ctx, key); err != nil {
			c.logger.Warn("Failed to delete cache key", zap.String("key", key), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Stats returns accumulated counters.
func (c *CachedEmbedder) Stats() Stats {
	total := c.cached + c.fresh
	s := Stats{Cached: c.cached, New: c.fresh, Total: total}
	if total > 0 {
		s.HitRate = float64(c.cached) / float64(total) * 100
	}
	return s
}

// ResetStats zeroes accumulated counters.
func (c *CachedEmbedder) ResetStats() {
	c.cached, c.fresh = 0, 0
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) lookup(ctx context.Context, cacheKey, hash string) ([]float32, bool) {
	storedHash, err := c.store.Get(ctx, c.prefix+cacheKey+hashSuffix)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached hash", zap.String("key", cacheKey), zap.Error(err))
		}
		return nil, false
	}
	if strings.TrimSpace(string(storedHash)) != hash {
		return nil, false
	}

	data, err := c.store.Get(ctx, c.prefix+cacheKey)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached embedding", zap.String("key", cacheKey), zap.Error(err))
		}
		return nil, false
	}
	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", cacheKey), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) put(ctx context.Context, cacheKey, hash string, vec []float32) {
	if err := c.store.Set(ctx, c.prefix+cacheKey, vectorToCacheBytes(vec)); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", cacheKey), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, c.prefix+cacheKey+hashSuffix, []byte(hash)); err != nil {
		c.logger.Warn("Failed to cache embedding hash", zap.String("key", cacheKey), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
