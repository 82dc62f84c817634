// Package openai implements the embedding and chat providers over the
// OpenAI-compatible API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/domain"
	"github.com/ragline/ragline/internal/metrics"
)

// maxEmbedAttempts bounds rate-limit retries: the only retried failure
// class. Everything else is terminal for the call.
const maxEmbedAttempts = 3

// fallbackRateLimitWait is used when the provider message carries no
// parseable wait time.
const fallbackRateLimitWait = 10 * time.Second

// Embedder vectorizes text through the embedding endpoint.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  openai.EmbeddingModel(cfg.Model),
		logger: cfg.Logger,
	}
}

// Embed sends text to the embedding endpoint and returns the vector.
// Input is sanitized first; a rate-limited call is retried up to
// maxEmbedAttempts times with the provider-suggested wait plus one second.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = domain.SanitizeText(text)

	wait := &rateLimitWait{}
	policy := backoff.WithContext(backoff.WithMaxRetries(wait, maxEmbedAttempts-1), ctx)

	var vector []float32
	op := func() error {
		vec, err := e.embedOnce(ctx, text)
		if err == nil {
			vector = vec
			return nil
		}
		if d, ok := rateLimitDelay(err); ok {
			metrics.EmbeddingRateLimitsTotal.Inc()
			wait.next = d + time.Second
			e.logger.Warn("Embedding provider rate limited, backing off",
				zap.Duration("wait", wait.next))
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return vector, nil
}

func (e *Embedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrProvider)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(string(e.model)).Observe(duration.Seconds())

	return resp.Data[0].Embedding, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// rateLimitWait is a backoff policy whose duration is dictated by the
// provider's last error message rather than a fixed schedule.
type rateLimitWait struct {
	next time.Duration
}

func (w *rateLimitWait) NextBackOff() time.Duration {
	if w.next <= 0 {
		return fallbackRateLimitWait + time.Second
	}
	return w.next
}

func (w *rateLimitWait) Reset() { w.next = 0 }

var waitHintRe = regexp.MustCompile(`(?i)try again in\s+(\d+(?:\.\d+)?)\s*(ms|s)`)

// rateLimitDelay reports whether err is a provider rate limit and the wait
// the provider suggested (fallback 10s when the message carries none).
func rateLimitDelay(err error) (time.Duration, bool) {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	if apiErr.HTTPStatusCode != http.StatusTooManyRequests && apiErr.Type != "rate_limit_exceeded" {
		return 0, false
	}

	m := waitHintRe.FindStringSubmatch(apiErr.Message)
	if m == nil {
		return fallbackRateLimitWait, true
	}
	val, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return fallbackRateLimitWait, true
	}
	unit := time.Second
	if m[2] == "ms" {
		unit = time.Millisecond
	}
	return time.Duration(val * float64(unit)), true
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrProvider; rate limits additionally
// carry domain.ErrRateLimited for the retry loop.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("embedding API error %d: %s: %w: %w",
				apiErr.HTTPStatusCode, apiErr.Message, domain.ErrRateLimited, err)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrProvider)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrProvider)
	}

	return fmt.Errorf("embedding request failed: %w: %w", domain.ErrProvider, err)
}
