// Package provider wraps the completion APIs that turn a prompt into model
// text. Each vendor is one CompletionProvider variant, selected by name
// through a Registry.
package provider

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Provider names.
const (
	OpenAI    = "openai"
	Groq      = "groq"
	Anthropic = "anthropic"
)

// Request defaults.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000
	DefaultTimeout     = 120 * time.Second
)

var (
	// ErrMissingAPIKey is returned by factories when no API key is configured.
	ErrMissingAPIKey = errors.New("API key not configured")

	// ErrEmptyResponse is returned when the API answers without any text.
	ErrEmptyResponse = errors.New("empty response content")
)

// NotFoundError is returned for an unregistered provider name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "completion provider not found: " + e.Name
}

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	Model       string // overrides the provider default when set
	Temperature float64
	MaxTokens   int
}

func (r Request) withDefaults() Request {
	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	return r
}

// Usage is the token accounting reported by the API.
type Usage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// Response is the raw model text plus metadata.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// CompletionProvider turns a request into model text. Implementations do
// not retry.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config carries the settings shared by all factories.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Factory builds a provider from config.
type Factory func(cfg Config) (CompletionProvider, error)

// Registry maps provider names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in provider.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterOpenAI(r)
	RegisterGroq(r)
	RegisterAnthropic(r)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// New builds the provider registered under name.
func (r *Registry) New(name string, cfg Config) (CompletionProvider, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return factory(cfg)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
