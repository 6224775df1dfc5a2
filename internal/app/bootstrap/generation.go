package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/supportchat/internal/config"
	"github.com/wolfman30/supportchat/internal/llm"
	"github.com/wolfman30/supportchat/pkg/logging"
)

// BuildLLMClient wires the configured completion provider, wrapped with the
// fallback provider when one is set. Returned closers must be closed on
// shutdown.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (llm.Client, []io.Closer, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var closers []io.Closer
	primary, closer, err := buildProvider(ctx, cfg.LLMProvider, cfg, awsCfg)
	if err != nil {
		return nil, nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	fallbackName := strings.TrimSpace(cfg.LLMFallbackProvider)
	if fallbackName == "" || fallbackName == cfg.LLMProvider {
		logger.Info("llm provider configured", "provider", cfg.LLMProvider, "model", modelFor(cfg.LLMProvider, cfg))
		return primary, closers, nil
	}
	fallback, closer, err := buildProvider(ctx, fallbackName, cfg, awsCfg)
	if err != nil {
		closeAll(closers)
		return nil, nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	logger.Info("llm provider configured", "provider", cfg.LLMProvider, "fallback", fallbackName)
	return llm.NewFallbackClient(primary, fallback, logger), closers, nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg *aws.Config) (llm.Client, io.Closer, error) {
	switch name {
	case "", "openai":
		api := llm.NewOpenAIAPI(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
		return llm.NewOpenAIClient(api, cfg.LLMModel), nil, nil
	case "bedrock":
		if awsCfg == nil {
			return nil, nil, fmt.Errorf("bootstrap: bedrock provider requires aws config")
		}
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, nil, fmt.Errorf("bootstrap: bedrock provider requires BEDROCK_MODEL_ID")
		}
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID), nil, nil
	case "gemini":
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}

func modelFor(provider string, cfg *appconfig.Config) string {
	switch provider {
	case "bedrock":
		return cfg.BedrockModelID
	case "gemini":
		return cfg.GeminiModel
	default:
		return cfg.LLMModel
	}
}

// BuildGenerator wraps client with the assistant persona and limits.
func BuildGenerator(cfg *appconfig.Config, client llm.Client, observer llm.Observer, logger *logging.Logger) *llm.Generator {
	return llm.NewGenerator(client,
		llm.WithModel(modelFor(cfg.LLMProvider, cfg)),
		llm.WithPersona(cfg.AssistantPersona),
		llm.WithMaxTokens(int32(cfg.LLMMaxTokens)),
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithObserver(observer),
		llm.WithLogger(logger),
	)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
