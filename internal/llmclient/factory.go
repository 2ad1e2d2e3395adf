// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/config"
)

// NewClient is a factory function that creates an LLMClient based on the configuration.
// The API key is resolved here, so a missing key fails with config.ErrConfigMissing
// only for commands that actually talk to the model. When a distinct fast model is
// configured the result is an LLMRouter over both tiers.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	key, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	cfg.APIKey = key

	powerful, err := newProviderClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.FastModel == "" || cfg.FastModel == cfg.Model {
		return powerful, nil
	}

	fastCfg := cfg
	fastCfg.Model = cfg.FastModel
	fast, err := newProviderClient(ctx, fastCfg, logger)
	if err != nil {
		_ = powerful.Close()
		return nil, err
	}
	return NewLLMRouter(logger, fast, powerful)
}

func newProviderClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	case config.ProviderGenAI:
		return NewGenAIClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderGenAI)
	}
}
