package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOllamaBaseURL is the OpenAI-compatible endpoint of a local Ollama server.
const DefaultOllamaBaseURL = "http://localhost:11434/v1"

type completionAPI interface {
	CreateCompletion(ctx context.Context, request openai.CompletionRequest) (openai.CompletionResponse, error)
}

// OpenAIClient sends plain text completions with streaming disabled to an
// OpenAI-compatible server such as Ollama.
type OpenAIClient struct {
	api   completionAPI
	model string
}

var _ Client = (*OpenAIClient)(nil)

func NewOpenAIClient(api completionAPI, model string) *OpenAIClient {
	if api == nil {
		panic("llm: completion client cannot be nil")
	}
	if model == "" {
		model = "llama3"
	}
	return &OpenAIClient{api: api, model: model}
}

// NewOpenAIAPI builds a go-openai client for baseURL with a request timeout.
func NewOpenAIAPI(baseURL, apiKey string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	cfg.BaseURL = baseURL
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(cfg)
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	prompt := promptText(req)
	if strings.TrimSpace(prompt) == "" {
		return Response{}, errors.New("llm: empty prompt")
	}

	creq := openai.CompletionRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}
	if req.MaxTokens > 0 {
		creq.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature >= 0 {
		creq.Temperature = req.Temperature
	}
	if req.TopP > 0 {
		creq.TopP = req.TopP
	}

	resp, err := c.api.CreateCompletion(ctx, creq)
	if err != nil {
		return Response{}, fmt.Errorf("llm: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("llm: completion returned no choices")
	}
	return Response{
		Text:       resp.Choices[0].Text,
		StopReason: resp.Choices[0].FinishReason,
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
