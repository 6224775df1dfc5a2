package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/internal/knowledge"
	"github.com/wolfman30/supportchat/pkg/logging"
)

// KnowledgeIndex is a vector store that can be both searched and filled.
type KnowledgeIndex interface {
	knowledge.Searcher
	knowledge.Indexer
}

// BuildEmbedder selects the embedding provider.
func BuildEmbedder(cfg *appconfig.Config, awsCfg *aws.Config) (knowledge.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "", "openai":
		client := knowledge.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
		return knowledge.NewOpenAIEmbedder(client, cfg.EmbeddingModel), nil
	case "bedrock":
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: bedrock embeddings require aws config")
		}
		return knowledge.NewBedrockEmbedder(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockEmbeddingID), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// BuildKnowledgeIndex opens the configured vector store. The closer is nil
// for the in-process store.
func BuildKnowledgeIndex(cfg *appconfig.Config, embedder knowledge.Embedder, logger *logging.Logger) (KnowledgeIndex, io.Closer, error) {
	switch cfg.KnowledgeBackend {
	case "memory":
		return knowledge.NewMemoryStore(embedder), nil, nil
	case "", "qdrant":
		store, err := knowledge.DialQdrant(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection, embedder, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown knowledge backend %q", cfg.KnowledgeBackend)
	}
}

// KnowledgeSources lists the seed sources named in config.
func KnowledgeSources(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) []knowledge.Source {
	var sources []knowledge.Source
	if dir := strings.TrimSpace(cfg.KnowledgeSeedDir); dir != "" {
		sources = append(sources, knowledge.DirSource{Dir: dir, Logger: logger})
	}
	if bucket := strings.TrimSpace(cfg.KnowledgeS3Bucket); bucket != "" && awsCfg != nil {
		sources = append(sources, knowledge.S3Source{
			Client: s3.NewFromConfig(*awsCfg),
			Bucket: bucket,
			Prefix: cfg.KnowledgeS3Prefix,
			Logger: logger,
		})
	}
	return sources
}

// SeedKnowledge ingests the configured sources into index. It is a no-op
// when no sources are configured.
func SeedKnowledge(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, index knowledge.Indexer, logger *logging.Logger) (int, error) {
	sources := KnowledgeSources(cfg, awsCfg, logger)
	if len(sources) == 0 {
		return 0, nil
	}
	ingestor := knowledge.NewIngestor(index, knowledge.NewSplitter(knowledge.DefaultChunkSize, knowledge.DefaultChunkOverlap), logger)
	n, err := ingestor.IngestSources(ctx, sources...)
	if err != nil {
		return n, fmt.Errorf("bootstrap: seed knowledge: %w", err)
	}
	return n, nil
}
