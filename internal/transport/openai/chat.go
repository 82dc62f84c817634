package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/domain"
	"github.com/ragline/ragline/internal/metrics"
)

// ChatClient sends grounded chat requests to the completion endpoint.
// It does not retry: transient-error policy belongs here, and the choice
// is to surface failures to the caller immediately.
type ChatClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Compile-time check: ChatClient implements domain.Chatter.
var _ domain.Chatter = (*ChatClient)(nil)

// NewChatClient creates an OpenAI-compatible chat provider.
func NewChatClient(cfg *Config) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &ChatClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Chat replays the system prompt and history, appends the final message,
// and returns the first completion choice.
func (c *ChatClient) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    normalizeRole(m.Role),
			Content: domain.SanitizeText(m.Content),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: domain.SanitizeText(req.Message),
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("chat completion: %w: %w", domain.ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("empty chat response: %w", domain.ErrProvider)
	}

	metrics.ChatRequestsTotal.WithLabelValues(c.model, "success").Inc()
	return resp.Choices[0].Message.Content, nil
}

// normalizeRole maps any role other than a recognized assistant value to
// "user", so malformed histories cannot smuggle system turns.
func normalizeRole(role string) string {
	switch role {
	case openai.ChatMessageRoleAssistant, "model":
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
