// Package convert runs the prompt to JSON pipeline: recommendations and
// preferences shape the system prompt, a completion provider answers, and the
// answer is narrowed to its JSON payload.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/promptstruct/internal/extract"
	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/history"
	"github.com/khanglvm/promptstruct/internal/learning"
	"github.com/khanglvm/promptstruct/internal/prompt"
	"github.com/khanglvm/promptstruct/internal/provider"
)

// Batch defaults.
const (
	DefaultBatchSize  = 3
	DefaultBatchDelay = time.Second

	enhanceMaxTokens = 1000
)

var (
	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrNoPrompts is returned by Batch for an empty prompt list.
	ErrNoPrompts = errors.New("no prompts provided for batch processing")
)

// Recommender supplies recommendations for a prompt.
type Recommender interface {
	Recommend(prompt, schema string) []learning.Recommendation
}

// PreferenceSource supplies the learned preferences.
type PreferenceSource interface {
	Preferences() feedback.UserPreferences
}

// HistoryRecorder stores successful conversions.
type HistoryRecorder interface {
	Add(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Options tunes a Converter.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// ApplyRecommendations appends recommendation messages to the user
	// prompt before it is sent.
	ApplyRecommendations bool

	BatchSize  int
	BatchDelay time.Duration
}

// Converter turns natural language prompts into schema JSON.
type Converter struct {
	provider provider.CompletionProvider
	engine   Recommender
	prefs    PreferenceSource
	history  HistoryRecorder
	opts     Options
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a converter. engine, prefs and hist may be nil.
func New(p provider.CompletionProvider, engine Recommender, prefs PreferenceSource, hist HistoryRecorder, opts Options, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	return &Converter{
		provider: p,
		engine:   engine,
		prefs:    prefs,
		history:  hist,
		opts:     opts,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Result is one conversion outcome. Raw is the model text, JSON the
// extracted payload. When Valid is false JSON holds best-effort text.
type Result struct {
	Prompt          string                    `json:"prompt"`
	Schema          string                    `json:"schema"`
	Raw             string                    `json:"raw"`
	JSON            string                    `json:"json"`
	Valid           bool                      `json:"valid"`
	ParseError      string                    `json:"parseError,omitempty"`
	Provider        string                    `json:"provider"`
	Model           string                    `json:"model"`
	Usage           provider.Usage            `json:"usage"`
	Recommendations []learning.Recommendation `json:"recommendations,omitempty"`
}

// Convert converts one prompt and records it in history when the output is
// valid JSON. Malformed output is not an error.
func (c *Converter) Convert(ctx context.Context, userPrompt, schema string) (Result, error) {
	res, err := c.convert(ctx, userPrompt, schema)
	if err != nil {
		return res, err
	}

	if res.Valid && c.history != nil {
		if _, err := c.history.Add(ctx, history.Entry{Prompt: userPrompt, JSON: res.JSON, Schema: schema}); err != nil {
			c.logger.Warn("failed to save prompt history", zap.Error(err))
		}
	}
	return res, nil
}

func (c *Converter) convert(ctx context.Context, userPrompt, schema string) (Result, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return Result{}, ErrEmptyPrompt
	}

	res := Result{Prompt: userPrompt, Schema: schema, Provider: c.provider.Name()}

	system := prompt.SystemPrompt(schema)
	if c.prefs != nil {
		system = prompt.Enhance(system, schema, c.prefs.Preferences())
	}

	sent := userPrompt
	if c.engine != nil {
		res.Recommendations = c.engine.Recommend(userPrompt, schema)
		if c.opts.ApplyRecommendations {
			sent = prompt.WithRecommendations(userPrompt, res.Recommendations)
		}
	}

	resp, err := c.provider.Complete(ctx, provider.Request{
		System:      system,
		Prompt:      sent,
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return res, fmt.Errorf("convert: %w", err)
	}

	res.Raw = resp.Text
	res.Model = resp.Model
	res.Usage = resp.Usage

	res.JSON, err = extract.ExtractValid(resp.Text)
	if err != nil {
		c.logger.Warn("model output is not valid JSON",
			zap.String("schema", schema),
			zap.String("provider", res.Provider),
			zap.Error(err),
		)
		res.ParseError = err.Error()
		return res, nil
	}

	res.Valid = true
	return res, nil
}

// Enhance asks the provider to rewrite userPrompt using the recommendations
// for schema. It returns the rewritten prompt and the recommendations used.
func (c *Converter) Enhance(ctx context.Context, userPrompt, schema string) (string, []learning.Recommendation, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", nil, ErrEmptyPrompt
	}

	var recs []learning.Recommendation
	if c.engine != nil {
		recs = c.engine.Recommend(userPrompt, schema)
	}

	resp, err := c.provider.Complete(ctx, provider.Request{
		Prompt:      prompt.EnhancementPrompt(userPrompt, schema, recs),
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   enhanceMaxTokens,
	})
	if err != nil {
		return "", recs, fmt.Errorf("enhance: %w", err)
	}
	return strings.TrimSpace(resp.Text), recs, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
