package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMModel != "llama3" {
		t.Fatalf("expected default model llama3, got %s", cfg.LLMModel)
	}
	if cfg.SessionBackend != "memory" {
		t.Fatalf("expected memory sessions by default, got %s", cfg.SessionBackend)
	}
	if cfg.RetrievalK != 3 {
		t.Fatalf("expected k=3, got %d", cfg.RetrievalK)
	}
	if cfg.PhraseVariation {
		t.Fatalf("expected phrase variation disabled by default")
	}
	if cfg.MemoryMaxAge != 30*24*time.Hour {
		t.Fatalf("expected 30 day memory retention, got %s", cfg.MemoryMaxAge)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors default %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("PHRASE_VARIATION", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.SessionBackend != "redis" {
		t.Fatalf("expected lowercased backend, got %s", cfg.SessionBackend)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("expected ttl override, got %s", cfg.SessionTTL)
	}
	if cfg.QdrantPort != 7000 {
		t.Fatalf("expected qdrant port override, got %d", cfg.QdrantPort)
	}
	if !cfg.PhraseVariation {
		t.Fatalf("expected phrase variation enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RETRIEVAL_K", "many")
	t.Setenv("LLM_TIMEOUT", "soon")
	cfg := Load()
	if cfg.RetrievalK != 3 {
		t.Fatalf("expected fallback k, got %d", cfg.RetrievalK)
	}
	if cfg.LLMTimeout != 60*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.LLMTimeout)
	}
}
