package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/internal/session"
	"github.com/wolfman30/supportchat/pkg/logging"
)

const tracerName = "github.com/wolfman30/supportchat/internal/session"

// NeedsAWS reports whether any configured backend talks to AWS.
func NeedsAWS(cfg *appconfig.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.SessionBackend == "dynamodb" ||
		cfg.LLMProvider == "bedrock" || cfg.LLMFallbackProvider == "bedrock" ||
		cfg.EmbeddingProvider == "bedrock" ||
		cfg.LeadEmailProvider == "ses" ||
		strings.TrimSpace(cfg.LeadQueueURL) != "" ||
		strings.TrimSpace(cfg.KnowledgeS3Bucket) != ""
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL, or returns nil when unset.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildSessionStore selects the session backend. redisClient is required for
// the redis backend; awsCfg for dynamodb.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, awsCfg *aws.Config, logger *logging.Logger) (session.Store, error) {
	switch cfg.SessionBackend {
	case "", "memory":
		return session.NewMemoryStore(cfg.SessionTTL), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: redis session backend requires REDIS_ADDR")
		}
		return session.NewRedisStore(redisClient, cfg.SessionTTL, otel.Tracer(tracerName)), nil
	case "dynamodb":
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: dynamodb session backend requires aws config")
		}
		return session.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.SessionTable, cfg.SessionTTL, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown session backend %q", cfg.SessionBackend)
	}
}
