package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	mu    sync.Mutex
	resp  Response
	err   error
	calls []Request
}

func (s *stubClient) Complete(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return s.resp, s.err
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("", "We build websites.", "Do you build apps?", "")
	assert.True(t, strings.HasPrefix(prompt, "You are Bobot AI, a helpful assistant for SourceSelect.ca.\n\n"))
	assert.Contains(t, prompt, "You're assisting a user named a visitor.")
	assert.Contains(t, prompt, "Never include Markdown or JSON formatting.")
	assert.Contains(t, prompt, "Only answer based on the information in 'Relevant Info'.")
	assert.Contains(t, prompt, "Relevant Info:\nWe build websites.\n\nUser: Do you build apps?\nStaff:")
	assert.True(t, strings.HasSuffix(prompt, "always end with a relevant follow-up question to keep the conversation going."))

	named := BuildPrompt("Ada, a support bot", "ctx", "hi", "Grace")
	assert.Contains(t, named, "You are Ada, a support bot.")
	assert.Contains(t, named, "a user named Grace.")
}

func TestFormatAnswer(t *testing.T) {
	assert.Equal(t, "Line one<br>Line two", FormatAnswer("\n  Line one\nLine two  \n"))
}

type recordingObserver struct {
	calls int
	err   error
}

func (r *recordingObserver) ObserveGeneration(_ time.Duration, err error) {
	r.calls++
	r.err = err
}

func TestGenerator_Success(t *testing.T) {
	client := &stubClient{resp: Response{Text: " We do.\nAsk away! "}}
	obs := &recordingObserver{}
	g := NewGenerator(client, WithModel("llama3"), WithMaxTokens(256), WithObserver(obs), WithTimeout(time.Second))

	out, err := g.Generate(context.Background(), "passages", "Do you build apps?", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "We do.<br>Ask away!"+AnswerSuffix, out)

	require.Len(t, client.calls, 1)
	req := client.calls[0]
	assert.Equal(t, "llama3", req.Model)
	assert.Equal(t, int32(256), req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "a user named Ada")
	assert.Equal(t, 1, obs.calls)
	assert.NoError(t, obs.err)
}

func TestGenerator_FailureIsUpstreamError(t *testing.T) {
	obs := &recordingObserver{}
	g := NewGenerator(&stubClient{err: errors.New("503 from model server")}, WithObserver(obs))

	out, err := g.Generate(context.Background(), "ctx", "q", "")
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrUpstreamGeneration)
	assert.Error(t, obs.err)

	_, err = NewGenerator(&stubClient{resp: Response{Text: "   "}}).Generate(context.Background(), "ctx", "q", "")
	assert.ErrorIs(t, err, ErrUpstreamGeneration)
}

type fakeCompletionAPI struct {
	req  openai.CompletionRequest
	resp openai.CompletionResponse
	err  error
}

func (f *fakeCompletionAPI) CreateCompletion(_ context.Context, req openai.CompletionRequest) (openai.CompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenAIClient(t *testing.T) {
	api := &fakeCompletionAPI{resp: openai.CompletionResponse{
		Choices: []openai.CompletionChoice{{Text: "hello", FinishReason: "stop"}},
		Usage:   openai.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	}}
	c := NewOpenAIClient(api, "")

	resp, err := c.Complete(context.Background(), Request{
		System:      []string{"be brief"},
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, int32(12), resp.Usage.TotalTokens)
	assert.Equal(t, "llama3", api.req.Model)
	assert.False(t, api.req.Stream)
	assert.Equal(t, "be brief\n\nhi", api.req.Prompt)

	_, err = c.Complete(context.Background(), Request{})
	assert.Error(t, err)

	api.resp = openai.CompletionResponse{}
	_, err = c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.ErrorContains(t, err, "no choices")

	api.err = errors.New("connection refused")
	_, err = c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.ErrorContains(t, err, "connection refused")
}

type fakeConverse struct {
	in  *bedrockruntime.ConverseInput
	out *bedrockruntime.ConverseOutput
	err error
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestBedrockClient(t *testing.T) {
	api := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "answer"}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(5), OutputTokens: aws.Int32(1), TotalTokens: aws.Int32(6)},
	}}
	c := NewBedrockClient(api, "anthropic.claude-3-haiku")

	resp, err := c.Complete(context.Background(), Request{
		Messages:    []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		Temperature: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Text)
	assert.Equal(t, int32(6), resp.Usage.TotalTokens)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(api.in.ModelId))
	assert.Len(t, api.in.System, 1)
	assert.Len(t, api.in.Messages, 1)
	assert.Nil(t, api.in.InferenceConfig)

	_, err = c.Complete(context.Background(), Request{Messages: []Message{{Role: "tool", Content: "x"}}})
	assert.Error(t, err)

	_, err = NewBedrockClient(api, "").Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestFallbackClient(t *testing.T) {
	primary := &stubClient{err: errors.New("primary down")}
	fallback := &stubClient{resp: Response{Text: "from fallback"}}

	resp, err := NewFallbackClient(primary, fallback, nil).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Text)

	_, err = NewFallbackClient(primary, nil, nil).Complete(context.Background(), Request{})
	assert.ErrorContains(t, err, "primary down")

	fallback.err = errors.New("fallback down")
	_, err = NewFallbackClient(primary, fallback, nil).Complete(context.Background(), Request{})
	assert.ErrorContains(t, err, "fallback down")
}

func TestGeminiHistory(t *testing.T) {
	history := geminiHistory([]Message{
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "  "},
	})
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "")
	assert.Error(t, err)
}
