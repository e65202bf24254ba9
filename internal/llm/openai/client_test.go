package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-matcher/internal/llm"
	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/telemetry"
)

func quietLogs(t *testing.T) {
	t.Helper()
	restore := telemetry.SetOutput(io.Discard)
	t.Cleanup(restore)
}

func matchRequest() llm.CompletionRequest {
	return llm.CompletionRequest{
		Messages:    llm.BuildMatchPrompt("resume", "jd"),
		Model:       llm.DefaultModel,
		Temperature: llm.DefaultTemperature,
		MaxTokens:   llm.DefaultMaxTokens,
		TopP:        llm.DefaultTopP,
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Options{Provider: "groq"})
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Fatalf("expected credential name in error, got %q", err.Error())
	}
}

func TestNewClientProviderDefaults(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{provider: "", want: GroqBaseURL + "/chat/completions"},
		{provider: "OpenAI", want: OpenAIBaseURL + "/chat/completions"},
	}
	for _, tt := range tests {
		c, err := NewClient(Options{Provider: tt.provider, APIKey: "k"})
		if err != nil {
			t.Fatalf("NewClient(%q): %v", tt.provider, err)
		}
		if c.endpoint != tt.want {
			t.Fatalf("endpoint = %q, want %q", c.endpoint, tt.want)
		}
	}
	if _, err := NewClient(Options{Provider: "local", APIKey: "k"}); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected unknown provider without base url to fail, got %v", err)
	}
}

func TestCompleteSendsSamplingParameters(t *testing.T) {
	quietLogs(t)

	var mu sync.Mutex
	var body map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		body = payload
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  1. Key Skills Match: Go  "}}],"usage":{"total_tokens":42}}`))
	}))
	defer server.Close()

	c, err := NewClient(Options{APIKey: "test-key", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := c.Complete(context.Background(), matchRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "1. Key Skills Match: Go" {
		t.Fatalf("unexpected content %q", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if auth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if body["model"] != "llama3-8b-8192" {
		t.Fatalf("unexpected model %v", body["model"])
	}
	if temp, _ := body["temperature"].(float64); temp < 0.69 || temp > 0.71 {
		t.Fatalf("unexpected temperature %v", body["temperature"])
	}
	if body["max_tokens"] != float64(2000) || body["top_p"] != float64(1) {
		t.Fatalf("unexpected sampling params %v %v", body["max_tokens"], body["top_p"])
	}
	if _, ok := body["stop"]; ok {
		t.Fatalf("stop sequence must not be sent")
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
}

func TestCompleteSurfacesProviderError(t *testing.T) {
	quietLogs(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached for model","type":"tokens"}}`))
	}))
	defer server.Close()

	c, _ := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	_, err := c.Complete(context.Background(), matchRequest())
	if !errors.Is(err, apperr.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if want := "groq http status 429: Rate limit reached for model (tokens)"; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestCompleteNonJSONErrorBody(t *testing.T) {
	quietLogs(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable\n"))
	}))
	defer server.Close()

	c, _ := NewClient(Options{Provider: "openai", APIKey: "k", BaseURL: server.URL})
	_, err := c.Complete(context.Background(), matchRequest())
	if err == nil || err.Error() != "openai http status 502: upstream unavailable" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCompleteEmptyResponses(t *testing.T) {
	quietLogs(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "no choices", body: `{"choices":[]}`, want: "missing choices"},
		{name: "blank content", body: `{"choices":[{"message":{"content":"   "}}]}`, want: "empty content"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewClient(Options{APIKey: "k", BaseURL: server.URL})
			_, err := c.Complete(context.Background(), matchRequest())
			if !errors.Is(err, apperr.ErrExternalService) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q external service error, got %v", tt.want, err)
			}
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	quietLogs(t)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c, _ := NewClient(Options{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Complete(context.Background(), matchRequest())
	if !errors.Is(err, apperr.ErrExternalService) || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected timeout external service error, got %v", err)
	}
}
