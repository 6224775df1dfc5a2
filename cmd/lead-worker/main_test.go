package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/pkg/logging"
)

func TestBuildWorkerRequiresQueue(t *testing.T) {
	_, err := buildWorker(context.Background(), &appconfig.Config{}, logging.Default())
	require.ErrorIs(t, err, errNoQueue)
}

func TestBuildWorkerWithQueue(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	cfg := &appconfig.Config{
		AWSRegion:         "us-east-1",
		LeadQueueURL:      "https://sqs.us-east-1.amazonaws.com/123456789012/leads",
		LeadEmailProvider: "stub",
		LeadRecipient:     "sales@example.com",
		LeadWorkerCount:   3,
	}
	worker, err := buildWorker(context.Background(), cfg, logging.Default())
	require.NoError(t, err)
	require.NotNil(t, worker)
}
