// Package llm wraps an OpenAI-compatible chat-completion endpoint (the
// service points it at OpenRouter). Failures are opaque to callers and must
// be treated as recoverable: the chat core decides per call site whether a
// failed completion is fatal or absorbed.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"lisanchat/internal/config"
)

const defaultRequestTimeout = 60 * time.Second

// Client resolves caller-facing model ids and runs completions against the
// configured endpoint. Chat models are constructed lazily and reused per
// (model, max tokens) pair.
type Client struct {
	cfg     config.LLMConfig
	timeout time.Duration

	mu     sync.Mutex
	models map[string]model.BaseChatModel
}

// NewClient builds a client from the LLM section of the app config.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.DefaultModel == "" {
		return nil, errors.New("default model must be configured")
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		cfg:     cfg,
		timeout: timeout,
		models:  make(map[string]model.BaseChatModel),
	}, nil
}

// ResolveModel maps a caller-facing model id to the provider model name.
// Unrecognized or empty ids resolve to the configured default model.
func (c *Client) ResolveModel(modelID string) string {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return c.cfg.DefaultModel
	}
	if name, ok := c.cfg.Models[modelID]; ok && name != "" {
		return name
	}
	return c.cfg.DefaultModel
}

// Complete sends a single prompt (plus optional system instruction) to the
// resolved model and returns the generated text. The call is bounded by the
// configured request timeout.
func (c *Client) Complete(ctx context.Context, modelID, system, prompt string, maxTokens int) (string, error) {
	chatModel, err := c.chatModel(ctx, c.ResolveModel(modelID), maxTokens)
	if err != nil {
		return "", err
	}

	messages := make([]*schema.Message, 0, 2)
	if system != "" {
		messages = append(messages, &schema.Message{Role: schema.System, Content: system})
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: prompt})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return "", errors.New("empty completion response")
	}
	return resp.Content, nil
}

func (c *Client) chatModel(ctx context.Context, modelName string, maxTokens int) (model.BaseChatModel, error) {
	key := fmt.Sprintf("%s|%d", modelName, maxTokens)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cm, ok := c.models[key]; ok {
		return cm, nil
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   c.cfg.BaseURL,
		APIKey:    c.cfg.APIKey,
		Model:     modelName,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model %s: %w", modelName, err)
	}
	c.models[key] = cm
	return cm, nil
}
