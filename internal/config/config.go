package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	LogFormat     string
	DatabaseURL   string

	// Sessions
	SessionBackend string // memory, redis, dynamodb
	SessionTTL     time.Duration
	SessionSweep   time.Duration
	SessionTable   string
	SessionCookie  string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// Routing content
	FAQPath             string
	ClassifierModelPath string
	PersonalitiesPath   string
	PhraseVariation     bool
	RestrictedTopics    []string
	BrandName           string
	AssistantPersona    string

	// Generation
	LLMProvider         string // openai, bedrock, gemini
	LLMFallbackProvider string
	LLMBaseURL          string
	LLMAPIKey           string
	LLMModel            string
	LLMTimeout          time.Duration
	LLMMaxTokens        int
	BedrockModelID      string
	GeminiAPIKey        string
	GeminiModel         string
	EmbeddingProvider   string // openai, bedrock
	EmbeddingModel      string
	BedrockEmbeddingID  string
	KnowledgeBackend    string // qdrant, memory
	QdrantHost          string
	QdrantPort          int
	QdrantCollection    string
	RetrievalK          int
	KnowledgeSeedDir    string
	KnowledgeS3Bucket   string
	KnowledgeS3Prefix   string

	// Lead notification
	LeadEmailProvider string // sendgrid, ses, stub
	LeadRecipient     string
	LeadFromEmail     string
	LeadFromName      string
	LeadQueueURL      string
	LeadNotifyTimeout time.Duration
	LeadWorkerCount   int
	SendGridAPIKey    string

	// Admin / HTTP
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitPerSecond int
	RateLimitBurst     int

	// Memory housekeeping
	MemoryCleanupSchedule string
	MemoryMaxAge          time.Duration
	MemorySnapshotPath    string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 2*time.Hour),
		SessionSweep:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		SessionTable:   getEnv("SESSION_TABLE", "chat_sessions"),
		SessionCookie:  getEnv("SESSION_COOKIE", "chat_session"),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		FAQPath:             getEnv("FAQ_PATH", ""),
		ClassifierModelPath: getEnv("CLASSIFIER_MODEL_PATH", ""),
		PersonalitiesPath:   getEnv("PERSONALITIES_PATH", ""),
		PhraseVariation:     getEnvAsBool("PHRASE_VARIATION", false),
		RestrictedTopics:    getEnvAsList("RESTRICTED_TOPICS", []string{"politics", "religion", "training data"}),
		BrandName:           getEnv("BRAND_NAME", "SourceSelect"),
		AssistantPersona:    getEnv("ASSISTANT_PERSONA", "Bobot AI, a helpful assistant for SourceSelect.ca"),

		LLMProvider:         strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMFallbackProvider: strings.ToLower(getEnv("LLM_FALLBACK_PROVIDER", "")),
		LLMBaseURL:          getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
		LLMAPIKey:           getEnv("LLM_API_KEY", "ollama"),
		LLMModel:            getEnv("LLM_MODEL", "llama3"),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 512),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		EmbeddingProvider:   strings.ToLower(getEnv("EMBEDDING_PROVIDER", "openai")),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		BedrockEmbeddingID:  getEnv("BEDROCK_EMBEDDING_MODEL_ID", "amazon.titan-embed-text-v2:0"),
		KnowledgeBackend:    strings.ToLower(getEnv("KNOWLEDGE_BACKEND", "qdrant")),
		QdrantHost:          getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:          getEnvAsInt("QDRANT_PORT", 6334),
		QdrantCollection:    getEnv("QDRANT_COLLECTION", "support_knowledge"),
		RetrievalK:          getEnvAsInt("RETRIEVAL_K", 3),
		KnowledgeSeedDir:    getEnv("KNOWLEDGE_SEED_DIR", ""),
		KnowledgeS3Bucket:   getEnv("KNOWLEDGE_S3_BUCKET", ""),
		KnowledgeS3Prefix:   getEnv("KNOWLEDGE_S3_PREFIX", ""),

		LeadEmailProvider: strings.ToLower(getEnv("LEAD_EMAIL_PROVIDER", "stub")),
		LeadRecipient:     getEnv("LEAD_RECIPIENT", ""),
		LeadFromEmail:     getEnv("LEAD_FROM_EMAIL", ""),
		LeadFromName:      getEnv("LEAD_FROM_NAME", "Support Chat"),
		LeadQueueURL:      getEnv("LEAD_QUEUE_URL", ""),
		LeadNotifyTimeout: getEnvAsDuration("LEAD_NOTIFY_TIMEOUT", 15*time.Second),
		LeadWorkerCount:   getEnvAsInt("LEAD_WORKER_COUNT", 2),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		MemoryCleanupSchedule: getEnv("MEMORY_CLEANUP_SCHEDULE", "@daily"),
		MemoryMaxAge:          getEnvAsDuration("MEMORY_MAX_AGE", 30*24*time.Hour),
		MemorySnapshotPath:    getEnv("MEMORY_SNAPSHOT_PATH", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
