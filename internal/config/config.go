/*
Package config handles loading, validating and saving promptstruct
configuration.

Configuration is stored in ~/.promptstruct/config.yaml. Environment
variables override file values; a missing default file is not an error.

Schema:

	provider: openai          # openai | groq | anthropic
	model: gpt-4
	api_key: sk-...
	base_url: ""
	temperature: 0.3
	max_tokens: 2000
	default_schema: openai-function
	storage:
	  backend: sqlite         # sqlite | redis | memory
	  path: ~/.promptstruct/store.db
	  redis_url: redis://localhost:6379/0
	  redis_prefix: "promptstruct:"
	learning:
	  decay_days: 30
	  reinforce_threshold: 4
	  avoid_threshold: 2
	  max_exemplars: 10
	  similarity_threshold: 0.3
	batch:
	  size: 3
	  delay: 1s
	log:
	  level: info
	  json: false
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanglvm/promptstruct/internal/learning"
	"github.com/khanglvm/promptstruct/internal/provider"
	"github.com/khanglvm/promptstruct/internal/storage"
)

// Config is the root configuration.
type Config struct {
	Provider      string  `yaml:"provider" validate:"oneof=openai groq anthropic"`
	Model         string  `yaml:"model,omitempty"`
	APIKey        string  `yaml:"api_key,omitempty"`
	BaseURL       string  `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Temperature   float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens     int     `yaml:"max_tokens" validate:"gte=1"`
	DefaultSchema string  `yaml:"default_schema" validate:"required"`

	Storage  StorageConfig  `yaml:"storage"`
	Learning LearningConfig `yaml:"learning"`
	Batch    BatchConfig    `yaml:"batch"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=sqlite redis memory"`
	Path        string `yaml:"path,omitempty"`
	RedisURL    string `yaml:"redis_url,omitempty" validate:"required_if=Backend redis"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// LearningConfig holds the preference learning constants.
type LearningConfig struct {
	DecayDays           float64 `yaml:"decay_days" validate:"gt=0"`
	ReinforceThreshold  int     `yaml:"reinforce_threshold" validate:"min=1,max=5"`
	AvoidThreshold      int     `yaml:"avoid_threshold" validate:"min=1,max=5,ltfield=ReinforceThreshold"`
	MaxExemplars        int     `yaml:"max_exemplars" validate:"min=1"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"gt=0,lte=1"`
}

// BatchConfig tunes batch conversion.
type BatchConfig struct {
	Size  int           `yaml:"size" validate:"min=1"`
	Delay time.Duration `yaml:"delay" validate:"gte=0"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration of a fresh installation.
func Default() *Config {
	return &Config{
		Provider:      provider.OpenAI,
		Temperature:   provider.DefaultTemperature,
		MaxTokens:     provider.DefaultMaxTokens,
		DefaultSchema: "openai-function",
		Storage: StorageConfig{
			Backend:     storage.BackendSQLite,
			RedisPrefix: storage.DefaultRedisPrefix,
		},
		Learning: LearningConfig{
			DecayDays:           learning.DefaultDecayDays,
			ReinforceThreshold:  learning.DefaultReinforceThreshold,
			AvoidThreshold:      learning.DefaultAvoidThreshold,
			MaxExemplars:        learning.DefaultMaxExemplars,
			SimilarityThreshold: learning.DefaultSimilarityThreshold,
		},
		Batch: BatchConfig{
			Size:  3,
			Delay: time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Dir returns ~/.promptstruct.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".promptstruct"), nil
}

// DefaultPath returns ~/.promptstruct/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LearningParams converts the learning section.
func (c *Config) LearningParams() learning.Params {
	return learning.Params{
		DecayDays:           c.Learning.DecayDays,
		ReinforceThreshold:  c.Learning.ReinforceThreshold,
		AvoidThreshold:      c.Learning.AvoidThreshold,
		MaxExemplars:        c.Learning.MaxExemplars,
		SimilarityThreshold: c.Learning.SimilarityThreshold,
	}
}

// StorageOptions converts the storage section.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:     c.Storage.Backend,
		Path:        c.Storage.Path,
		RedisURL:    c.Storage.RedisURL,
		RedisPrefix: c.Storage.RedisPrefix,
	}
}

// ProviderConfig converts the provider settings.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		APIKey:  c.APIKey,
		Model:   c.Model,
		BaseURL: c.BaseURL,
	}
}
