package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"resume-matcher/internal/llm"
	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/telemetry"
)

// DefaultModel is used when the provider is gemini and no model is configured.
const DefaultModel = "gemini-2.5-flash"

const defaultTimeout = 120 * time.Second

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client on the Gemini API.
type Client struct {
	models  generator
	timeout time.Duration
}

// Options configures a Client.
type Options struct {
	APIKey  string
	Timeout time.Duration
}

// NewClient builds a Gemini API client. A missing key is a configuration error.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, apperr.Configuration("GOOGLE_API_KEY is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperr.Configuration(fmt.Sprintf("gemini client: %v", err))
	}
	return newClient(gc.Models, opts.Timeout), nil
}

func newClient(models generator, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{models: models, timeout: timeout}
}

func (c *Client) Provider() string { return "gemini" }

// Complete maps system messages to the system instruction and every other turn to a content
// entry, then returns the response text.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (string, error) {
	model := strings.TrimSpace(in.Model)
	if model == "" {
		return "", apperr.Configuration("LLM_MODEL is required")
	}
	contents, system := toContents(in.Messages)
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(in.Temperature),
		TopP:        genai.Ptr(in.TopP),
	}
	if in.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(in.MaxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.models.GenerateContent(callCtx, model, contents, cfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.ExternalService("gemini request timeout", err)
		}
		return "", apperr.ExternalService("gemini request failed", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", apperr.ExternalService("gemini response missing candidates", nil)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", apperr.ExternalService("gemini response empty content", nil)
	}
	fields := map[string]any{"provider": "gemini", "model": model}
	if u := resp.UsageMetadata; u != nil {
		fields["promptTokens"] = u.PromptTokenCount
		fields["completionTokens"] = u.CandidatesTokenCount
		fields["totalTokens"] = u.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)
	return text, nil
}

func toContents(messages []llm.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}

var _ llm.Client = (*Client)(nil)
