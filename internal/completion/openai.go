package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

const (
	DefaultModel       = "gpt-4o"
	DefaultTemperature = 0.7
	DefaultTimeout     = 60 * time.Second
)

// OpenAIConfig holds the sampling parameters and transport settings.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// MinInterval spaces consecutive requests; zero disables throttling.
	MinInterval time.Duration
}

// OpenAIClient calls the chat completions endpoint. Failed calls are not
// retried.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
	limiter     *rate.Limiter // nil when MinInterval is zero
}

var _ Completer = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client from cfg, filling unset fields with defaults.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		limiter:     newLimiter(cfg.MinInterval),
	}
}

// Complete sends prompt as a single user message and returns the text of the
// first choice.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for request slot: %w", err)
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion failed with status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// newLimiter allows one request per interval with no burst.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
