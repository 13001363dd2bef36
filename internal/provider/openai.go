package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4"

	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// ChatProvider talks to any OpenAI-compatible chat completions endpoint.
type ChatProvider struct {
	name   string
	client openai.Client
	model  string
	logger *zap.Logger
}

// NewChatProvider creates a provider for an OpenAI-compatible API.
func NewChatProvider(name string, cfg Config, defaultBaseURL, defaultModel string) *ChatProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	)

	return &ChatProvider{name: name, client: client, model: model, logger: logger}
}

// RegisterOpenAI registers the OpenAI provider.
func RegisterOpenAI(r *Registry) {
	r.Register(OpenAI, func(cfg Config) (CompletionProvider, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", OpenAI, ErrMissingAPIKey)
		}
		return NewChatProvider(OpenAI, cfg, DefaultOpenAIBaseURL, DefaultOpenAIModel), nil
	})
}

// RegisterGroq registers Groq through its OpenAI-compatible endpoint.
func RegisterGroq(r *Registry) {
	r.Register(Groq, func(cfg Config) (CompletionProvider, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", Groq, ErrMissingAPIKey)
		}
		return NewChatProvider(Groq, cfg, DefaultGroqBaseURL, DefaultGroqModel), nil
	})
}

// Name implements CompletionProvider.
func (p *ChatProvider) Name() string { return p.name }

// Complete sends one system+user exchange.
func (p *ChatProvider) Complete(ctx context.Context, req Request) (Response, error) {
	req = req.withDefaults()
	model := req.Model
	if model == "" {
		model = p.model
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		p.logger.Warn("completion request failed",
			zap.String("provider", p.name),
			zap.String("model", model),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return Response{}, fmt.Errorf("%s completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("%s completion: %w", p.name, ErrEmptyResponse)
	}

	p.logger.Debug("completion received",
		zap.String("provider", p.name),
		zap.String("model", resp.Model),
		zap.Int("response_length", len(resp.Choices[0].Message.Content)),
		zap.Duration("latency", latency),
	)

	return Response{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
