package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/medaware/medaware/internal/config"
)

const (
	mistralBaseURL = "https://api.mistral.ai/v1/"
	openAIBaseURL  = "https://api.openai.com/v1/"

	defaultMistralModel = "mistral-small-latest"
	defaultOpenAIModel  = "gpt-4o-mini"
	defaultGeminiModel  = "gemini-2.0-flash"

	temperature = 0.3
)

var (
	ErrNotConfigured = errors.New("agent provider is not configured")
	ErrEmptyReply    = errors.New("agent provider returned an empty reply")
)

// Provider sends one system + user prompt pair to a chat model.
type Provider interface {
	Model() string
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewProvider builds the provider selected by AGENT_PROVIDER. A missing API key
// yields a provider that fails every call so the rest of the API still serves.
func NewProvider(ctx context.Context, cfg config.AgentConfig, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Provider {
	case config.AgentMistral, config.AgentOpenAI:
		if cfg.APIKey == "" {
			return unconfigured{model: chatModel(cfg)}, nil
		}

		return NewChatCompletionProvider(cfg, client), nil
	case config.AgentGemini:
		if cfg.APIKey == "" {
			return unconfigured{model: geminiModel(cfg)}, nil
		}

		return NewGeminiProvider(ctx, cfg, client)
	default:
		return nil, fmt.Errorf("unknown agent provider %q", cfg.Provider)
	}
}

type unconfigured struct {
	model string
}

func (p unconfigured) Model() string {
	return p.model
}

func (p unconfigured) CompleteWithSystem(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

// ChatCompletionProvider talks to any OpenAI compatible chat completion API.
// Mistral serves one, so both providers share it.
type ChatCompletionProvider struct {
	client openai.Client
	model  string
}

func NewChatCompletionProvider(cfg config.AgentConfig, httpClient *http.Client) *ChatCompletionProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = mistralBaseURL
		if cfg.Provider == config.AgentOpenAI {
			baseURL = openAIBaseURL
		}
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(1),
	)

	return &ChatCompletionProvider{
		client: client,
		model:  chatModel(cfg),
	}
}

func chatModel(cfg config.AgentConfig) string {
	switch {
	case cfg.Model != "":
		return cfg.Model
	case cfg.Provider == config.AgentOpenAI:
		return defaultOpenAIModel
	default:
		return defaultMistralModel
	}
}

func (p *ChatCompletionProvider) Model() string {
	return p.model
}

func (p *ChatCompletionProvider) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}

	return text, nil
}

// GeminiProvider generates replies with the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, cfg config.AgentConfig, httpClient *http.Client) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}

	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  geminiModel(cfg),
	}, nil
}

func geminiModel(cfg config.AgentConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}

	return defaultGeminiModel
}

func (p *GeminiProvider) Model() string {
	return p.model
}

func (p *GeminiProvider) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	temp := float32(temperature)

	resp, err := p.client.Models.GenerateContent(ctx,
		p.model,
		genai.Text(userPrompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       &temp,
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyReply
	}

	return text, nil
}
