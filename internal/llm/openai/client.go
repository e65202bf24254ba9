package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-matcher/internal/llm"
	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/telemetry"
)

// Base URLs of the OpenAI-compatible providers this client knows by name.
const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"

	defaultTimeout = 120 * time.Second
	maxErrorBody   = 2048
)

// Options configures a Client. Provider selects the default BaseURL and names the
// credential in error messages.
type Options struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements llm.Client over an OpenAI-compatible chat completions endpoint.
type Client struct {
	provider   string
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewClient validates opts and returns a client. A missing key is a configuration error.
func NewClient(opts Options) (*Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "groq"
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, apperr.Configuration(fmt.Sprintf("%s_API_KEY is required", strings.ToUpper(provider)))
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		switch provider {
		case "groq":
			base = GroqBaseURL
		case "openai":
			base = OpenAIBaseURL
		default:
			return nil, apperr.Configuration(fmt.Sprintf("LLM_BASE_URL is required for provider %q", provider))
		}
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		provider:   provider,
		apiKey:     opts.APIKey,
		endpoint:   base + "/chat/completions",
		httpClient: httpClient,
	}, nil
}

func (c *Client) Provider() string { return c.provider }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	TopP        float32       `json:"top_p"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
	Usage *chatResponseUsage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type chatResponseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Complete sends one chat completion request. It does not retry.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (string, error) {
	if strings.TrimSpace(in.Model) == "" {
		return "", apperr.Configuration("LLM_MODEL is required")
	}
	payload, err := json.Marshal(chatRequest{
		Model:       in.Model,
		Messages:    in.Messages,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
		TopP:        in.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", apperr.ExternalService(c.provider+" request timeout", err)
		}
		return "", apperr.ExternalService(c.provider+" request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.ExternalService(c.provider+" read response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", c.statusError(resp.StatusCode, errors.New(truncate(strings.TrimSpace(string(body)))))
		}
		return "", apperr.ExternalService(c.provider+" response parse", err)
	}
	if parsed.Error != nil {
		return "", c.statusError(resp.StatusCode, fmt.Errorf("%s (%s)", parsed.Error.Message, parsed.Error.Type))
	}
	if resp.StatusCode >= 400 {
		return "", c.statusError(resp.StatusCode, errors.New(truncate(strings.TrimSpace(string(body)))))
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.ExternalService(c.provider+" response missing choices", nil)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", apperr.ExternalService(c.provider+" response empty content", nil)
	}
	logUsage(c.provider, in.Model, parsed.Usage)
	return content, nil
}

func (c *Client) statusError(status int, cause error) error {
	return apperr.ExternalService(fmt.Sprintf("%s http status %d", c.provider, status), cause)
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}

func logUsage(provider, model string, usage *chatResponseUsage) {
	fields := map[string]any{"provider": provider, "model": model}
	if usage != nil {
		fields["promptTokens"] = usage.PromptTokens
		fields["completionTokens"] = usage.CompletionTokens
		fields["totalTokens"] = usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Client = (*Client)(nil)
