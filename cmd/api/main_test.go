package main

import (
	"context"
	"net/http"
	"testing"

	appconfig "github.com/wolfman30/supportchat/internal/config"
)

func TestLoadAWSSkippedForLocalBackends(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "memory", LLMProvider: "openai", EmbeddingProvider: "openai", LeadEmailProvider: "stub"}
	awsCfg, err := loadAWS(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg != nil {
		t.Fatalf("expected no aws config for local backends")
	}
}

func TestLoadAWSForDynamoSessions(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		SessionBackend:     "dynamodb",
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "test",
	}
	awsCfg, err := loadAWS(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg == nil || awsCfg.Region != "us-east-1" {
		t.Fatalf("expected aws config for region us-east-1, got %+v", awsCfg)
	}
}

func TestNewServer(t *testing.T) {
	srv := newServer("9090", http.NotFoundHandler())
	if srv.Addr != ":9090" {
		t.Fatalf("unexpected addr %q", srv.Addr)
	}
	if srv.WriteTimeout != 0 {
		t.Fatalf("expected no write timeout for long generations")
	}
}
