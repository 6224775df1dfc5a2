package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/internal/notify"
	"github.com/wolfman30/supportchat/internal/session"
	"github.com/wolfman30/supportchat/pkg/logging"
)

func localConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	return &appconfig.Config{
		Env:                   "test",
		SessionBackend:        "memory",
		SessionTTL:            time.Hour,
		SessionCookie:         "chat_session",
		LLMProvider:           "openai",
		LLMBaseURL:            "http://127.0.0.1:1/v1",
		LLMAPIKey:             "test",
		LLMModel:              "llama3",
		LLMTimeout:            time.Second,
		LLMMaxTokens:          128,
		EmbeddingProvider:     "openai",
		EmbeddingModel:        "nomic-embed-text",
		KnowledgeBackend:      "memory",
		RetrievalK:            3,
		RestrictedTopics:      []string{"politics"},
		LeadEmailProvider:     "stub",
		LeadRecipient:         "sales@example.com",
		LeadNotifyTimeout:     time.Second,
		MemoryCleanupSchedule: "@daily",
		MemoryMaxAge:          time.Hour,
		MemorySnapshotPath:    filepath.Join(t.TempDir(), "memory", "snapshot.json"),
	}
}

func TestNeedsAWS(t *testing.T) {
	assert.False(t, NeedsAWS(nil))
	assert.False(t, NeedsAWS(localConfig(t)))

	cfg := localConfig(t)
	cfg.SessionBackend = "dynamodb"
	assert.True(t, NeedsAWS(cfg))

	cfg = localConfig(t)
	cfg.LeadQueueURL = "https://sqs.us-east-1.amazonaws.com/123/leads"
	assert.True(t, NeedsAWS(cfg))

	cfg = localConfig(t)
	cfg.LLMFallbackProvider = "bedrock"
	assert.True(t, NeedsAWS(cfg))
}

func TestBuildSessionStoreErrors(t *testing.T) {
	cfg := localConfig(t)
	cfg.SessionBackend = "redis"
	_, err := BuildSessionStore(cfg, nil, nil, nil)
	assert.Error(t, err)

	cfg.SessionBackend = "dynamodb"
	_, err = BuildSessionStore(cfg, nil, nil, nil)
	assert.Error(t, err)

	cfg.SessionBackend = "cassandra"
	_, err = BuildSessionStore(cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestBuildLLMClientValidation(t *testing.T) {
	_, _, err := BuildLLMClient(context.Background(), nil, nil, nil)
	assert.Error(t, err)

	cfg := localConfig(t)
	cfg.LLMProvider = "bedrock"
	_, _, err = BuildLLMClient(context.Background(), cfg, nil, nil)
	assert.Error(t, err)

	cfg = localConfig(t)
	cfg.LLMProvider = "gemini"
	_, _, err = BuildLLMClient(context.Background(), cfg, nil, nil)
	assert.Error(t, err, "gemini needs an api key")

	cfg = localConfig(t)
	cfg.LLMFallbackProvider = "openai"
	client, closers, err := BuildLLMClient(context.Background(), cfg, nil, logging.New("error"))
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Empty(t, closers)
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	cfg := localConfig(t)
	cfg.LeadEmailProvider = "sendgrid"
	_, ok := BuildEmailSender(cfg, nil, logging.New("error")).(*notify.StubEmailSender)
	assert.True(t, ok)

	cfg.LeadEmailProvider = "ses"
	_, ok = BuildEmailSender(cfg, nil, logging.New("error")).(*notify.StubEmailSender)
	assert.True(t, ok)

	cfg.LeadEmailProvider = "sendgrid"
	cfg.SendGridAPIKey = "SG.test"
	_, ok = BuildEmailSender(cfg, nil, logging.New("error")).(*notify.SendGridSender)
	assert.True(t, ok)
}

func TestBuildLeadQueueRequiresAWS(t *testing.T) {
	cfg := localConfig(t)
	q, err := BuildLeadQueue(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, q)

	cfg.LeadQueueURL = "https://sqs.example/leads"
	_, err = BuildLeadQueue(cfg, nil)
	assert.Error(t, err)
}

func TestKnowledgeSourcesFromConfig(t *testing.T) {
	cfg := localConfig(t)
	assert.Empty(t, KnowledgeSources(cfg, nil, nil))

	cfg.KnowledgeSeedDir = t.TempDir()
	cfg.KnowledgeS3Bucket = "docs"
	assert.Len(t, KnowledgeSources(cfg, nil, nil), 1, "s3 source needs aws config")
}

func TestBuildServesLocalStack(t *testing.T) {
	cfg := localConfig(t)
	app, err := Build(context.Background(), cfg, nil, prometheus.NewRegistry(), logging.New("error"))
	require.NoError(t, err)
	app.Start()

	srv := httptest.NewServer(app.Handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"initial":true,"name":"Ada"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Response string `json:"response"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "I'm happy to help! Hi Ada! What can I help you with today?", body.Response)

	resp2, err := http.Get(srv.URL + "/analytics_data")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode, "analytics disabled without admin secret")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Close(ctx))

	_, err = os.Stat(cfg.MemorySnapshotPath)
	assert.NoError(t, err)
}

func TestBuildSweepsExpiredMemorySessions(t *testing.T) {
	cfg := localConfig(t)
	cfg.SessionTTL = time.Millisecond
	cfg.SessionSweep = 5 * time.Millisecond
	app, err := Build(context.Background(), cfg, nil, prometheus.NewRegistry(), logging.New("error"))
	require.NoError(t, err)
	require.NotNil(t, app.sessions)
	app.Start()

	for i := 0; i < 50; i++ {
		require.NoError(t, app.sessions.Save(context.Background(), session.New(session.NewID())))
	}
	assert.Eventually(t, func() bool { return app.sessions.Len() == 0 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Close(ctx))
}

func TestBuildRejectsBadSchedule(t *testing.T) {
	cfg := localConfig(t)
	cfg.MemoryCleanupSchedule = "every now and then"
	_, err := Build(context.Background(), cfg, nil, prometheus.NewRegistry(), logging.New("error"))
	assert.Error(t, err)
}
