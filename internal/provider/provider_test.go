package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistryUnknownProvider(t *testing.T) {
	_, err := DefaultRegistry().New("gemini", Config{APIKey: "k"})

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Name != "gemini" {
		t.Errorf("expected name gemini, got %q", nf.Name)
	}
}

func TestRegistryMissingAPIKey(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{OpenAI, Groq, Anthropic} {
		if _, err := r.New(name, Config{}); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("%s: expected ErrMissingAPIKey, got %v", name, err)
		}
	}
}

func TestRegistryNames(t *testing.T) {
	got := DefaultRegistry().Names()
	want := []string{Anthropic, Groq, OpenAI}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestChatProviderComplete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama-test",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"name\":\"f\"}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	p, err := DefaultRegistry().New(Groq, Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := p.Complete(context.Background(), Request{System: "sys", Prompt: "user"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Text != `{"name":"f"}` {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Model != "llama-test" || resp.Usage.TotalTokens != 15 {
		t.Errorf("unexpected metadata %+v", resp)
	}
	if got.Model != DefaultGroqModel {
		t.Errorf("expected default groq model, got %q", got.Model)
	}
	if got.Temperature != DefaultTemperature || got.MaxTokens != DefaultMaxTokens {
		t.Errorf("expected default sampling params, got %v/%d", got.Temperature, got.MaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestChatProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewChatProvider(OpenAI, Config{APIKey: "k", BaseURL: srv.URL}, DefaultOpenAIBaseURL, DefaultOpenAIModel)
	if _, err := p.Complete(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing auth headers: %v", r.Header)
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.System != "sys" || len(req.Messages) != 1 || req.Messages[0].Content != "user" {
			t.Errorf("unexpected request %+v", req)
		}
		if req.Model != "claude-test" {
			t.Errorf("expected model override, got %q", req.Model)
		}

		_, _ = w.Write([]byte(`{"model":"claude-test","content":[{"type":"text","text":"[1,2]"}],"usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	p, err := DefaultRegistry().New(Anthropic, Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := p.Complete(context.Background(), Request{System: "sys", Prompt: "user", Model: "claude-test"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != "[1,2]" || resp.Usage.TotalTokens != 7 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAnthropicErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"structured error", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","message":"max_tokens too large"}}`, "max_tokens too large"},
		{"plain error", http.StatusBadGateway, `upstream down`, "upstream down"},
		{"empty content", http.StatusOK, `{"content":[]}`, ErrEmptyResponse.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewAnthropicProvider(Config{APIKey: "k", BaseURL: srv.URL})
			_, err := p.Complete(context.Background(), Request{Prompt: "x"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestUsageAdd(t *testing.T) {
	got := Usage{1, 2, 3}.Add(Usage{10, 20, 30})
	if got != (Usage{11, 22, 33}) {
		t.Errorf("unexpected sum %+v", got)
	}
}
