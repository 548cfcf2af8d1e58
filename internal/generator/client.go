package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"companion-server/internal/domain"
)

const defaultTimeout = 60 * time.Second

// Config - настройки клиента генерации.
type Config struct {
	APIKey  string
	BaseURL string // OpenAI-совместимый endpoint (OpenRouter, DeepSeek и т.п.)
	Model   string
	Timeout time.Duration
}

// Client - клиент внешнего генератора через OpenAI-совместимое API.
// Единственная точка подвеса хода: может занимать секунды, поэтому
// вызывается без удержания каких-либо блокировок по паре.
type Client struct {
	openaiClient *openai.Client
	modelName    string
	timeout      time.Duration
	logger       *zap.Logger
}

// NewClient создает клиент.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generator: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("generator: model name is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		openaiClient: openai.NewClientWithConfig(clientConfig),
		modelName:    cfg.Model,
		timeout:      timeout,
		logger:       logger.Named("GeneratorClient"),
	}, nil
}

// Generate выполняет один вызов генерации: директива уходит системным
// сообщением, история - как есть. Сырой текст возвращается без какой-либо
// валидации - контракт вывода навязать нельзя, этим занимается парсер.
// Любой сбой или таймаут оборачивается в domain.ErrGenerationUnavailable.
func (c *Client) Generate(ctx context.Context, directive string, history []domain.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: directive,
	})
	for _, m := range history {
		role := m.Role
		if role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.modelName,
		Messages: messages,
	})
	if err != nil {
		c.logger.Warn("generation call failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", domain.ErrGenerationUnavailable)
	}

	c.logger.Debug("generation completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
