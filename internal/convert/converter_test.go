package convert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/history"
	"github.com/khanglvm/promptstruct/internal/learning"
	"github.com/khanglvm/promptstruct/internal/provider"
	"github.com/khanglvm/promptstruct/internal/storage"
)

// fakeProvider answers from a function and records requests.
type fakeProvider struct {
	mu       sync.Mutex
	requests []provider.Request
	answer   func(req provider.Request) (string, error)
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	// Give concurrent calls a chance to overlap.
	time.Sleep(5 * time.Millisecond)

	text, err := f.answer(req)
	if err != nil {
		return provider.Response{}, err
	}
	return provider.Response{Text: text, Model: "fake-1", Usage: provider.Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5}}, nil
}

func constant(text string) func(provider.Request) (string, error) {
	return func(provider.Request) (string, error) { return text, nil }
}

type staticEngine []learning.Recommendation

func (s staticEngine) Recommend(string, string) []learning.Recommendation { return s }

type staticPrefs feedback.UserPreferences

func (s staticPrefs) Preferences() feedback.UserPreferences { return feedback.UserPreferences(s) }

func TestConvertExtractsJSON(t *testing.T) {
	fake := &fakeProvider{answer: constant("Sure! Here's the JSON:\n```json\n{\"name\":\"f\",\"parameters\":{}}\n```\nLet me know.")}
	hist := history.New(storage.NewMemory(), nil)
	c := New(fake, nil, staticPrefs(feedback.DefaultPreferences()), hist, Options{}, nil)

	res, err := c.Convert(context.Background(), "make a function", "openai-function")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if !res.Valid || res.JSON != `{"name":"f","parameters":{}}` {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Provider != "fake" || res.Model != "fake-1" || res.Usage.TotalTokens != 5 {
		t.Errorf("unexpected metadata %+v", res)
	}

	req := fake.requests[0]
	if !strings.Contains(req.System, "OpenAI Function Calling format") {
		t.Errorf("expected schema system prompt, got %q", req.System)
	}
	if !strings.Contains(req.System, "Create a moderately detailed schema") {
		t.Errorf("expected preference guidance in system prompt, got %q", req.System)
	}

	entries, err := hist.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].JSON != res.JSON {
		t.Errorf("expected conversion saved to history, got %+v", entries)
	}
}

func TestConvertMalformedIsNotAnError(t *testing.T) {
	fake := &fakeProvider{answer: constant("I cannot do that")}
	hist := history.New(storage.NewMemory(), nil)
	c := New(fake, nil, nil, hist, Options{}, nil)

	res, err := c.Convert(context.Background(), "p", "s")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Valid || res.ParseError == "" {
		t.Errorf("expected invalid result with parse error, got %+v", res)
	}
	if res.JSON != "I cannot do that" {
		t.Errorf("expected best-effort text, got %q", res.JSON)
	}

	entries, _ := hist.List(context.Background(), 0)
	if len(entries) != 0 {
		t.Errorf("expected invalid output kept out of history, got %d", len(entries))
	}
}

func TestConvertErrors(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeProvider{answer: func(provider.Request) (string, error) { return "", boom }}
	c := New(fake, nil, nil, nil, Options{}, nil)

	if _, err := c.Convert(context.Background(), "  ", "s"); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("expected ErrEmptyPrompt, got %v", err)
	}
	if _, err := c.Convert(context.Background(), "p", "s"); !errors.Is(err, boom) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestConvertAppliesRecommendations(t *testing.T) {
	fake := &fakeProvider{answer: constant("{}")}
	engine := staticEngine{{Type: learning.TypeCodeEnhancement, Message: "add complexity params"}}

	c := New(fake, engine, nil, nil, Options{ApplyRecommendations: true, Model: "m", MaxTokens: 99}, nil)
	res, err := c.Convert(context.Background(), "implement sort", "s")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(res.Recommendations) != 1 {
		t.Errorf("expected recommendations in result, got %+v", res.Recommendations)
	}

	req := fake.requests[0]
	if !strings.Contains(req.Prompt, "- add complexity params") {
		t.Errorf("expected recommendation woven into prompt, got %q", req.Prompt)
	}
	if req.Model != "m" || req.MaxTokens != 99 {
		t.Errorf("expected options forwarded, got %+v", req)
	}

	plain := New(fake, engine, nil, nil, Options{}, nil)
	if _, err := plain.Convert(context.Background(), "implement sort", "s"); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if got := fake.requests[1].Prompt; got != "implement sort" {
		t.Errorf("expected untouched prompt, got %q", got)
	}
}

func TestEnhance(t *testing.T) {
	fake := &fakeProvider{answer: constant("  Better prompt  \n")}
	engine := staticEngine{{Type: learning.TypeComplexityAnalysis, Message: "complexity please"}}
	c := New(fake, engine, nil, nil, Options{}, nil)

	got, recs, err := c.Enhance(context.Background(), "sort numbers", "langchain")
	if err != nil {
		t.Fatalf("Enhance failed: %v", err)
	}
	if got != "Better prompt" || len(recs) != 1 {
		t.Errorf("unexpected enhance result %q %v", got, recs)
	}

	req := fake.requests[0]
	if !strings.Contains(req.Prompt, "Original prompt: \"sort numbers\"") || !strings.Contains(req.Prompt, "- complexity please") {
		t.Errorf("unexpected meta-prompt %q", req.Prompt)
	}
	if req.MaxTokens != enhanceMaxTokens {
		t.Errorf("expected max tokens %d, got %d", enhanceMaxTokens, req.MaxTokens)
	}
}

func TestBatchOrderAndSummary(t *testing.T) {
	fake := &fakeProvider{answer: func(req provider.Request) (string, error) {
		switch req.Prompt {
		case "fail":
			return "", errors.New("rate limited")
		case "prose":
			return "no json here", nil
		}
		return `{"prompt":"` + req.Prompt + `"}`, nil
	}}

	var sleeps []time.Duration
	c := New(fake, nil, nil, nil, Options{BatchSize: 2, BatchDelay: time.Second}, nil)
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	prompts := []string{"a", "fail", "b", "prose", "c"}
	out, err := c.Batch(context.Background(), prompts, "s")
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	if len(out.Results) != len(prompts) {
		t.Fatalf("expected %d results, got %d", len(prompts), len(out.Results))
	}
	for i, item := range out.Results {
		if item.Index != i || item.Prompt != prompts[i] {
			t.Errorf("result %d out of order: %+v", i, item)
		}
	}

	if out.Results[1].Success || !strings.Contains(out.Results[1].Error, "rate limited") {
		t.Errorf("expected provider failure recorded, got %+v", out.Results[1])
	}
	if out.Results[3].Success || out.Results[3].Result == nil {
		t.Errorf("expected malformed output recorded as failure with result, got %+v", out.Results[3])
	}

	s := out.Summary
	if s.Total != 5 || s.Successful != 3 || s.Failed != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Usage.TotalTokens != 20 {
		t.Errorf("expected usage from 4 completed calls, got %+v", s.Usage)
	}

	if len(sleeps) != 2 || sleeps[0] != time.Second {
		t.Errorf("expected 2 pauses of 1s between 3 waves, got %v", sleeps)
	}
	if peak := fake.peak.Load(); peak > 2 {
		t.Errorf("expected at most 2 concurrent calls, got %d", peak)
	}
}

func TestBatchErrors(t *testing.T) {
	c := New(&fakeProvider{answer: constant("{}")}, nil, nil, nil, Options{}, nil)

	if _, err := c.Batch(context.Background(), nil, "s"); !errors.Is(err, ErrNoPrompts) {
		t.Errorf("expected ErrNoPrompts, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	if _, err := c.Batch(ctx, []string{"a", "b", "c", "d"}, "s"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("expected immediate return, got %v", err)
	}
}
