// Package indexer orchestrates the bulk pipeline: content source →
// chunker → embedder → vector store.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/chunker"
	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/domain"
	"github.com/ragline/ragline/internal/metrics"
	"github.com/ragline/ragline/internal/repository/embcache"
	"github.com/ragline/ragline/internal/source"
)

// VectorStore is the consumer interface for collection management and
// cache-aware upload.
type VectorStore interface {
	CreateCollection(ctx context.Context, deleteExisting bool) error
	CollectionExists(ctx context.Context) (bool, error)
	UpsertPoints(ctx context.Context, points []domain.Point) error
	SearchByContentHash(ctx context.Context, hash string) (*domain.Point, error)
}

// Embedder is the consumer interface for cached embedding.
type Embedder interface {
	Embed(ctx context.Context, text, cacheKey string) (domain.EmbeddingResult, error)
	ClearCache(ctx context.Context) (int, error)
	Stats() embcache.Stats
	ResetStats()
}

// Options tunes the pipeline.
type Options struct {
	BatchSize        int
	ChunkSize        int
	MinContentLength int
	// EmbedDelay throttles provider calls: applied after every new
	// embedding, never after a cache hit.
	EmbedDelay time.Duration
}

// ItemRecord is the per-item entry of the run log.
type ItemRecord struct {
	ItemID  int
	Title   string
	Type    string
	Indexed bool
	Reason  string
	Chars   int
	Chunks  int
}

// Result summarizes one indexing run. Success stays true even with
// partial failures: skipped chunks and failed batches are counted, not
// fatal.
type Result struct {
	RunID        string
	Success      bool
	ChunkCount   int
	FailedChunks int
	StoreCached  int
	SkippedItems int
	Elapsed      time.Duration
	Stats        embcache.Stats
	Items        []ItemRecord
}

// Indexer repopulates one collection from the content source.
type Indexer struct {
	src      source.ContentSource
	embedder Embedder
	store    VectorStore
	registry *config.Registry
	opts     Options
	logger   *zap.Logger

	sleep func(time.Duration)
}

// New creates an indexer.
func New(
	src source.ContentSource,
	embedder Embedder,
	store VectorStore,
	registry *config.Registry,
	opts Options,
	logger *zap.Logger,
) *Indexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 3000
	}
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = 100
	}
	return &Indexer{
		src:      src,
		embedder: embedder,
		store:    store,
		registry: registry,
		opts:     opts,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Run executes one indexing pass: setup, gather, chunk, embed and upload.
// recreate destroys and recreates the collection; without it, setup is
// idempotent and the vector store's own content-hash cache is consulted
// before every provider call.
func (ix *Indexer) Run(ctx context.Context, recreate bool) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	ix.embedder.ResetStats()

	if err := ix.setup(ctx, recreate); err != nil {
		return nil, fmt.Errorf("setup collection: %w", err)
	}

	items, records := ix.gather(ctx, result)
	chunks := ix.chunk(items, records)
	ix.embedAndUpload(ctx, chunks, recreate, result)

	result.Success = true
	result.Stats = ix.embedder.Stats()
	result.Elapsed = time.Since(start)
	result.Items = records

	ix.logger.Info("Indexing run finished",
		zap.String("run_id", result.RunID),
		zap.Int("chunks", result.ChunkCount),
		zap.Int("failed_chunks", result.FailedChunks),
		zap.Int("skipped_items", result.SkippedItems),
		zap.Int("cached", result.Stats.Cached),
		zap.Int("new", result.Stats.New),
		zap.Int("store_cached", result.StoreCached),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// ClearCache delegates to the embedder's bulk prefix delete.
func (ix *Indexer) ClearCache(ctx context.Context) (int, error) {
	return ix.embedder.ClearCache(ctx)
}

func (ix *Indexer) setup(ctx context.Context, recreate bool) error {
	if recreate {
		return ix.store.CreateCollection(ctx, true)
	}
	exists, err := ix.store.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return ix.store.CreateCollection(ctx, false)
}

// gather pulls all items of every registered type, dropping those whose
// extracted text is too short to be worth indexing.
func (ix *Indexer) gather(ctx context.Context, result *Result) ([]domain.ContentItem, []ItemRecord) {
	var kept []domain.ContentItem
	var records []ItemRecord

	for _, typeName := range ix.registry.Types() {
		items, err := ix.src.ListItems(ctx, typeName, 0)
		if err != nil {
			ix.logger.Warn("Failed to list items",
				zap.String("type", typeName), zap.Error(err))
			continue
		}

		for _, item := range items {
			rec := ItemRecord{
				ItemID: item.ID,
				Title:  item.Metadata.Title,
				Type:   typeName,
				Chars:  len(item.Text),
			}
			if len(item.Text) < ix.opts.MinContentLength {
				rec.Reason = fmt.Sprintf("content too short (%d < %d chars)",
					len(item.Text), ix.opts.MinContentLength)
				result.SkippedItems++
				ix.logger.Info("Skipping item",
					zap.Int("item_id", item.ID),
					zap.String("type", typeName),
					zap.String("reason", rec.Reason))
				records = append(records, rec)
				continue
			}
			rec.Indexed = true
			records = append(records, rec)
			kept = append(kept, item)
		}
	}
	return kept, records
}

// chunk splits every item, carrying its metadata onto each chunk. Chunk
// ids come from a single counter across the whole run, so they are
// globally unique within it.
func (ix *Indexer) chunk(items []domain.ContentItem, records []ItemRecord) []domain.Chunk {
	var chunks []domain.Chunk
	nextID := 0

	recordByItem := make(map[int]*ItemRecord, len(records))
	for i := range records {
		recordByItem[records[i].ItemID] = &records[i]
	}

	for _, item := range items {
		pieces := chunker.Split(item.Text, ix.opts.ChunkSize)
		for _, text := range pieces {
			chunks = append(chunks, domain.Chunk{
				ID:           nextID,
				SourceItemID: item.ID,
				Text:         text,
				Metadata:     item.Metadata,
			})
			nextID++
		}
		if rec, ok := recordByItem[item.ID]; ok {
			rec.Chunks = len(pieces)
		}
	}
	return chunks
}

// embedAndUpload walks chunks in order, resolving each vector from the
// vector store's content-hash cache, the local cache, or the provider,
// and flushes point batches as they fill.
func (ix *Indexer) embedAndUpload(ctx context.Context, chunks []domain.Chunk, recreated bool, result *Result) {
	batch := make([]domain.Point, 0, ix.opts.BatchSize)

	for _, chunk := range chunks {
		hash := domain.ContentHash(chunk.Text)

		vector, outcome := ix.resolveVector(ctx, chunk, hash, recreated)
		if vector == nil {
			result.FailedChunks++
			metrics.IndexChunksTotal.WithLabelValues("failed").Inc()
			continue
		}
		if outcome == "store_cached" {
			result.StoreCached++
		}
		metrics.IndexChunksTotal.WithLabelValues(outcome).Inc()

		batch = append(batch, domain.Point{
			ID:     chunk.ID,
			Vector: vector,
			Payload: domain.Payload{
				Text:        chunk.Text,
				ContentHash: hash,
				SourceID:    chunk.SourceItemID,
				Title:       chunk.Metadata.Title,
				URL:         chunk.Metadata.URL,
				Type:        chunk.Metadata.Type,
				Language:    chunk.Metadata.Language,
				Extra:       chunk.Metadata.Extra,
			},
		})
		result.ChunkCount++

		if len(batch) >= ix.opts.BatchSize {
			ix.flush(ctx, batch, result)
			batch = batch[:0]
		}
	}
	ix.flush(ctx, batch, result)
}

// resolveVector returns the chunk's vector and how it was obtained:
// "store_cached", "cached", or "new". nil means the chunk is skipped.
func (ix *Indexer) resolveVector(ctx context.Context, chunk domain.Chunk, hash string, recreated bool) ([]float32, string) {
	// A freshly recreated collection is known-empty: skip the remote
	// lookup entirely.
	if !recreated {
		point, err := ix.store.SearchByContentHash(ctx, hash)
		if err != nil {
			ix.logger.Warn("Content-hash lookup failed",
				zap.Int("chunk_id", chunk.ID), zap.Error(err))
		} else if point != nil && len(point.Vector) > 0 {
			return point.Vector, "store_cached"
		}
	}

	cacheKey := fmt.Sprintf("%d_%d", chunk.SourceItemID, chunk.ID)
	res, err := ix.embedder.Embed(ctx, chunk.Text, cacheKey)
	if err != nil {
		ix.logger.Warn("Embedding failed, skipping chunk",
			zap.Int("chunk_id", chunk.ID),
			zap.Int("item_id", chunk.SourceItemID),
			zap.Error(err))
		return nil, ""
	}
	if res.Cached {
		return res.Vector, "cached"
	}

	// Stay under provider rate limits; cache hits cost nothing and
	// incur no delay.
	if ix.opts.EmbedDelay > 0 {
		ix.sleep(ix.opts.EmbedDelay)
	}
	return res.Vector, "new"
}

// flush uploads one batch. A failed batch is counted and dropped: points
// in it are never retried within the run.
func (ix *Indexer) flush(ctx context.Context, batch []domain.Point, result *Result) {
	if len(batch) == 0 {
		return
	}
	if err := ix.store.UpsertPoints(ctx, batch); err != nil {
		ix.logger.Error("Batch upload failed",
			zap.Int("points", len(batch)), zap.Error(err))
		result.FailedChunks += len(batch)
		result.ChunkCount -= len(batch)
		metrics.IndexBatchesTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.IndexBatchesTotal.WithLabelValues("ok").Inc()
}
