// Package llm talks to text-generation providers and turns retrieved
// context into HTML chat answers.
package llm

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-neutral chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is a single non-streaming completion request.
type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32 // negative leaves the provider default
	TopP        float32
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client completes a request.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// promptText flattens a request into a single prompt for plain text
// completion endpoints.
func promptText(req Request) string {
	var parts []string
	for _, s := range req.System {
		if s != "" {
			parts = append(parts, s)
		}
	}
	for _, m := range req.Messages {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
