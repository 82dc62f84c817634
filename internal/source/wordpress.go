package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/domain"
)

// WordPress reads published items from the WordPress REST API
// (/wp-json/wp/v2/{type}).
type WordPress struct {
	baseURL  string
	perPage  int
	registry *config.Registry
	http     *http.Client
	logger   *zap.Logger
}

// Compile-time check: WordPress implements ContentSource.
var _ ContentSource = (*WordPress)(nil)

// WordPressConfig holds source connection settings.
type WordPressConfig struct {
	BaseURL  string
	PerPage  int
	Timeout  time.Duration
	Registry *config.Registry
	Logger   *zap.Logger
}

// NewWordPress creates a WordPress REST content source.
func NewWordPress(cfg WordPressConfig) *WordPress {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WordPress{
		baseURL:  cfg.BaseURL,
		perPage:  perPage,
		registry: cfg.Registry,
		http:     &http.Client{Timeout: timeout},
		logger:   cfg.Logger,
	}
}

// ListItems pages through all published items of typeName, applying the
// registered extraction rule. limit <= 0 means "all".
func (w *WordPress) ListItems(ctx context.Context, typeName string, limit int) ([]domain.ContentItem, error) {
	rule, err := w.registry.Rule(typeName)
	if err != nil {
		return nil, err
	}

	var items []domain.ContentItem
	for page := 1; ; page++ {
		raws, done, err := w.fetchPage(ctx, typeName, page)
		if err != nil {
			return nil, err
		}

		for _, raw := range raws {
			items = append(items, w.toItem(typeName, rule, raw))
			if limit > 0 && len(items) >= limit {
				return items, nil
			}
		}
		if done {
			return items, nil
		}
	}
}

// fetchPage returns one page of raw items; done means no further pages.
func (w *WordPress) fetchPage(ctx context.Context, typeName string, page int) ([]map[string]any, bool, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(w.perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("status", "publish")

	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/%s?%s", w.baseURL, url.PathEscape(typeName), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, true, fmt.Errorf("build request: %w", err)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch %s page %d: %w", typeName, page, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// WordPress answers 400 rest_post_invalid_page_number past the last page.
	if resp.StatusCode == http.StatusBadRequest && page > 1 {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, true, fmt.Errorf("fetch %s page %d: status %d", typeName, page, resp.StatusCode)
	}

	var raws []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, true, fmt.Errorf("decode %s page %d: %w", typeName, page, err)
	}
	return raws, len(raws) < w.perPage, nil
}

func (w *WordPress) toItem(typeName string, rule config.Rule, raw map[string]any) domain.ContentItem {
	id := 0
	if f, ok := raw["id"].(float64); ok {
		id = int(f)
	}

	meta := domain.Metadata{
		Title: StripHTML(renderedString(raw["title"])),
		Type:  typeName,
	}
	if link, ok := raw["link"].(string); ok {
		meta.URL = link
	}
	if lang, ok := raw["lang"].(string); ok {
		meta.Language = lang
	}

	return domain.ContentItem{
		ID:       id,
		Text:     ExtractText(rule, raw),
		Metadata: meta,
	}
}
