package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Message roles accepted by chat-style providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sampling defaults for match analysis.
const (
	DefaultModel       = "llama3-8b-8192"
	DefaultTemperature = float32(0.7)
	DefaultMaxTokens   = 2000
	DefaultTopP        = float32(1)
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single chat completion call. Zero-valued sampling fields are sent as-is.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// Client abstracts the reasoning provider. Implementations return apperr.ExternalService
// errors carrying the provider's own message on failure and never retry.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// PromptString flattens messages into a stable "role: content" form.
func PromptString(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// PromptHash returns the hex sha256 of PromptString(messages).
func PromptHash(messages []Message) string {
	sum := sha256.Sum256([]byte(PromptString(messages)))
	return hex.EncodeToString(sum[:])
}
