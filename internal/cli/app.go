package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/db"
	dbRedis "github.com/ragline/ragline/internal/db/redis"
	"github.com/ragline/ragline/internal/indexer"
	logpkg "github.com/ragline/ragline/internal/logger"
	"github.com/ragline/ragline/internal/metrics"
	"github.com/ragline/ragline/internal/rag"
	"github.com/ragline/ragline/internal/repository/embcache"
	"github.com/ragline/ragline/internal/source"
	openaiTransport "github.com/ragline/ragline/internal/transport/openai"
	"github.com/ragline/ragline/internal/vectorstore/qdrant"
)

// App is the composition root shared by every command. Built once per
// invocation from the loaded configuration.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    db.Store // nil when the local cache is disabled
	Embedder *embcache.CachedEmbedder
	Provider *openaiTransport.Embedder
	Chat     *openaiTransport.ChatClient
	Qdrant   *qdrant.Client
	Source   *source.WordPress
	Indexer  *indexer.Indexer
	Engine   *rag.Engine
}

// buildApp loads configuration for env and wires the full pipeline.
func buildApp(env string) (*App, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.Register()

	// Default content types; callers extend the registry before indexing
	// when the site carries custom types.
	registry := cfg.Registry()
	if len(registry.Types()) == 0 {
		registry.Register("posts", nil, nil)
		registry.Register("pages", nil, nil)
	}

	var store db.Store
	if cfg.CacheEnabled() {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(context.Background(), readiness); err != nil {
			redisStore.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		store = redisStore
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	provider := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	embedder := embcache.New(
		provider, store, cfg.Cache.KeyPrefix, cfg.CacheEnabled(),
		metrics.EmbeddingCacheTotal, logger,
	)

	chat := openaiTransport.NewChatClient(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	qdrantClient := qdrant.NewClient(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		VectorSize: cfg.Qdrant.VectorSize,
		Distance:   cfg.Qdrant.Distance,
		Timeout:    time.Duration(cfg.Qdrant.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	wp := source.NewWordPress(source.WordPressConfig{
		BaseURL:  cfg.Source.BaseURL,
		PerPage:  cfg.Source.PerPage,
		Timeout:  time.Duration(cfg.Source.TimeoutSec) * time.Second,
		Registry: registry,
		Logger:   logger,
	})

	ix := indexer.New(wp, embedder, qdrantClient, registry, indexer.Options{
		BatchSize:        cfg.Indexing.BatchSize,
		ChunkSize:        cfg.Indexing.ChunkSize,
		MinContentLength: cfg.Indexing.MinContentLength,
		EmbedDelay:       time.Duration(cfg.Indexing.EmbedDelayMs) * time.Millisecond,
	}, logger)

	engine := rag.New(embedder, qdrantClient, chat, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Embedder: embedder,
		Provider: provider,
		Chat:     chat,
		Qdrant:   qdrantClient,
		Source:   wp,
		Indexer:  ix,
		Engine:   engine,
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
	_ = a.Logger.Sync()
}
