// Package qdrant is a thin REST client managing one named collection in
// the vector database.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/domain"
)

// contentHashField is the payload field carrying the cross-run cache key.
// A keyword index on it makes the hash lookup an indexed query instead of
// a full scan.
const contentHashField = "content_hash"

// Client wraps one named collection.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	vectorSize int
	distance   string
	http       *http.Client
	logger     *zap.Logger
}

// Config holds vector store connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize int
	Distance   string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewClient creates a client for one collection.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		distance:   cfg.Distance,
		http:       &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

// Collection returns the wrapped collection name.
func (c *Client) Collection() string { return c.collection }

// CreateCollection creates the collection with the configured dimensionality
// and metric, plus a keyword payload index on content_hash. With
// deleteExisting, any previous collection is dropped first.
func (c *Client) CreateCollection(ctx context.Context, deleteExisting bool) error {
	if deleteExisting {
		if err := c.DeleteCollection(ctx); err != nil {
			c.logger.Warn("Failed to delete existing collection",
				zap.String("collection", c.collection), zap.Error(err))
		}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": c.distance,
		},
	}
	if err := c.do(ctx, http.MethodPut, c.collectionPath(), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", c.collection, err)
	}

	index := map[string]any{
		"field_name":   contentHashField,
		"field_schema": "keyword",
	}
	if err := c.do(ctx, http.MethodPut, c.collectionPath()+"/index", index, nil); err != nil {
		return fmt.Errorf("create %s index: %w", contentHashField, err)
	}
	return nil
}

// DeleteCollection drops the collection.
func (c *Client) DeleteCollection(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, c.collectionPath(), nil, nil); err != nil {
		return fmt.Errorf("delete collection %s: %w", c.collection, err)
	}
	return nil
}

// CollectionExists reports whether the collection is present.
func (c *Client) CollectionExists(ctx context.Context) (bool, error) {
	status, err := c.doStatus(ctx, http.MethodGet, c.collectionPath(), nil, nil)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", c.collection, err)
	}
	return status == http.StatusOK, nil
}

// CollectionInfo fetches collection metadata.
func (c *Client) CollectionInfo(ctx context.Context) (*domain.CollectionInfo, error) {
	var resp collectionInfoResponse
	if err := c.do(ctx, http.MethodGet, c.collectionPath(), nil, &resp); err != nil {
		return nil, fmt.Errorf("collection info %s: %w", c.collection, err)
	}
	return &domain.CollectionInfo{
		Name:        c.collection,
		PointsCount: resp.Result.PointsCount,
		VectorSize:  resp.Result.Config.Params.Vectors.Size,
		Distance:    resp.Result.Config.Params.Vectors.Distance,
		Status:      resp.Result.Status,
	}, nil
}

// UpsertPoints writes a batch of points, idempotent by point id. A partial
// batch failure is reported as a whole-batch failure.
func (c *Client) UpsertPoints(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": encodePoints(points)}
	if err := c.do(ctx, http.MethodPut, c.collectionPath()+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search runs a similarity query and returns results ordered by descending
// score, each meeting scoreThreshold. languageFilter (if non-empty) adds an
// equality filter on the language payload field.
func (c *Client) Search(
	ctx context.Context, vector []float32, limit int, scoreThreshold float32, languageFilter string,
) ([]domain.SearchResult, error) {
	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}
	if languageFilter != "" {
		req["filter"] = matchFilter("language", languageFilter)
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, c.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			ID:      r.ID,
			Score:   r.Score,
			Payload: r.Payload.toDomain(),
		})
	}
	return results, nil
}

// SearchByContentHash looks up a point whose payload carries the exact
// content hash, requesting the vector back. This is the cross-run cache:
// one indexed remote query instead of an embedding provider call. A miss
// returns (nil, nil).
func (c *Client) SearchByContentHash(ctx context.Context, hash string) (*domain.Point, error) {
	req := map[string]any{
		"filter":       matchFilter(contentHashField, hash),
		"limit":        1,
		"with_payload": true,
		"with_vector":  true,
	}

	var resp scrollResponse
	if err := c.do(ctx, http.MethodPost, c.collectionPath()+"/points/scroll", req, &resp); err != nil {
		return nil, fmt.Errorf("scroll by %s: %w", contentHashField, err)
	}
	if len(resp.Result.Points) == 0 {
		return nil, nil
	}

	p := resp.Result.Points[0]
	return &domain.Point{
		ID:      p.ID,
		Vector:  p.Vector,
		Payload: p.Payload.toDomain(),
	}, nil
}

func (c *Client) collectionPath() string {
	return "/collections/" + c.collection
}

func matchFilter(key, value string) map[string]any {
	return map[string]any{
		"must": []any{
			map[string]any{
				"key":   key,
				"match": map[string]any{"value": value},
			},
		},
	}
}

// do issues a request and decodes the response into out (when non-nil).
// Non-2xx statuses are transport failures.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	status, err := c.doStatus(ctx, method, path, body, out)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: %s %s: status %d", domain.ErrVectorStore, method, path, status)
	}
	return nil
}

// doStatus issues a request and returns the HTTP status without treating
// non-2xx as an error; out is decoded only on 2xx.
func (c *Client) doStatus(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(domain.SanitizeValue(body))
		if err != nil {
			// A payload that cannot be encoded aborts the request; the
			// caller gets an error, never a panic.
			c.logger.Error("Failed to encode request body",
				zap.String("path", path), zap.Error(err))
			return 0, fmt.Errorf("%w: encode body: %w", domain.ErrVectorStore, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", domain.ErrVectorStore, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", domain.ErrVectorStore, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %w", domain.ErrVectorStore, err)
		}
	}
	return resp.StatusCode, nil
}
