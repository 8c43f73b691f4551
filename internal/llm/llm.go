// Package llm abstracts the question-drafting providers behind a single
// completion interface. The OpenAI-compatible backend covers openai, azure,
// anthropic, and ollama; Gemini speaks its own REST API.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Message roles. They follow the chat-completion convention; the Gemini
// backend translates them to its own role names.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a completion conversation.
type Message struct {
	Role    string
	Content string
}

// Usage reports token consumption when the backend provides it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the completion result.
type Response struct {
	Content string
	Usage   Usage
}

// Provider generates a completion for a conversation. Implementations never
// retry; a failed call surfaces to the caller with state unchanged.
type Provider interface {
	GenerateCompletion(ctx context.Context, messages []Message) (*Response, error)
}

// Config selects and parameterizes a provider backend.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// ErrNoAPIKey is returned by New when the selected provider requires a
// credential and none is configured.
var ErrNoAPIKey = errors.New("no API key configured")

var baseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"anthropic": "https://api.anthropic.com/v1",
	"ollama":    "http://localhost:11434/v1",
}

var defaultModels = map[string]string{
	"openai":    "gpt-4",
	"azure":     "gpt-4",
	"anthropic": "claude-3-5-sonnet-20241022",
	"ollama":    "llama3.1",
	"gemini":    "gemini-2.0-flash",
}

// Resolve fills the provider and model defaults New applies, so callers
// can record which backend actually serves a request.
func Resolve(cfg Config) Config {
	if cfg.Provider == "" {
		cfg.Provider = "gemini"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}
	return cfg
}

// New builds the provider named by cfg.Provider. Ollama runs locally and is
// the only backend that works without an API key.
func New(cfg Config) (Provider, error) {
	cfg = Resolve(cfg)
	if cfg.APIKey == "" && cfg.Provider != "ollama" {
		return nil, fmt.Errorf("%w for provider %s", ErrNoAPIKey, cfg.Provider)
	}
	if cfg.Provider == "gemini" {
		return newGemini(cfg), nil
	}
	return newOpenAICompatible(cfg)
}

type openAICompatible struct {
	api   *openai.Client
	model string
}

func newOpenAICompatible(cfg Config) (*openAICompatible, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = baseURLs[cfg.Provider]
	}
	if baseURL == "" {
		return nil, fmt.Errorf("provider %s requires an explicit base URL", cfg.Provider)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "dummy-key-for-local"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = baseURL
	return &openAICompatible{
		api:   openai.NewClientWithConfig(clientCfg),
		model: cfg.Model,
	}, nil
}

func (c *openAICompatible) GenerateCompletion(ctx context.Context, messages []Message) (*Response, error) {
	chatMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: chatMsgs,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
