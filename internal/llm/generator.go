package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/supportchat/pkg/logging"
)

// ErrUpstreamGeneration marks a failed call to the completion provider.
var ErrUpstreamGeneration = errors.New("llm: upstream generation failed")

const (
	// DefaultPersona is the assistant identity placed at the top of every prompt.
	DefaultPersona = "Bobot AI, a helpful assistant for SourceSelect.ca"
	// AnswerSuffix is appended to every generated answer.
	AnswerSuffix = "<br>Would you like to know more or explore something else?"
)

// Observer receives generation timings. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveGeneration(duration time.Duration, err error)
}

// Generator builds grounded prompts and post-processes completions into
// HTML fragments.
type Generator struct {
	client    Client
	model     string
	persona   string
	maxTokens int32
	timeout   time.Duration
	observer  Observer
	logger    *logging.Logger
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

func WithModel(model string) GeneratorOption {
	return func(g *Generator) { g.model = model }
}

func WithPersona(persona string) GeneratorOption {
	return func(g *Generator) {
		if strings.TrimSpace(persona) != "" {
			g.persona = persona
		}
	}
}

func WithMaxTokens(n int32) GeneratorOption {
	return func(g *Generator) { g.maxTokens = n }
}

// WithTimeout bounds each completion call. Zero leaves the caller's context alone.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

func WithObserver(o Observer) GeneratorOption {
	return func(g *Generator) { g.observer = o }
}

func WithLogger(logger *logging.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGenerator(client Client, opts ...GeneratorOption) *Generator {
	if client == nil {
		panic("llm: client cannot be nil")
	}
	g := &Generator{
		client:  client,
		persona: DefaultPersona,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BuildPrompt assembles the single prompt sent to the completion provider.
func BuildPrompt(persona, passages, userMessage, userName string) string {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	if strings.TrimSpace(userName) == "" {
		userName = "a visitor"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n\n", persona)
	fmt.Fprintf(&b, "You're assisting a user named %s.\n\n", userName)
	b.WriteString("Always respond in raw HTML: use <br> for line breaks, <ul><li></li></ul> for lists.\n")
	b.WriteString("Never include Markdown or JSON formatting.\n\n")
	b.WriteString("Only answer based on the information in 'Relevant Info'.\n\n")
	fmt.Fprintf(&b, "Relevant Info:\n%s\n\nUser: %s\nStaff:", passages, userMessage)
	b.WriteString(" Then, always end with a relevant follow-up question to keep the conversation going.")
	return b.String()
}

// FormatAnswer trims the raw completion and converts newlines to <br>.
func FormatAnswer(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), "\n", "<br>")
}

// Generate answers userMessage from the retrieved passages. Any provider failure is
// returned wrapped in ErrUpstreamGeneration.
func (g *Generator) Generate(ctx context.Context, passages, userMessage, userName string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Complete(ctx, Request{
		Model:       g.model,
		Messages:    []Message{{Role: RoleUser, Content: BuildPrompt(g.persona, passages, userMessage, userName)}},
		MaxTokens:   g.maxTokens,
		Temperature: -1,
	})
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = errors.New("llm: empty completion")
	}
	if g.observer != nil {
		g.observer.ObserveGeneration(time.Since(start), err)
	}
	if err != nil {
		g.logger.Error("llm: generation failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrUpstreamGeneration, err)
	}
	return FormatAnswer(resp.Text) + AnswerSuffix, nil
}
