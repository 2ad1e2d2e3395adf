// File: internal/service/initializers.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/llmclient"
	"github.com/xkilldash9x/codevolver/internal/tts"
)

// InitializeLLMClient creates a new LLM client based on the configuration.
// This helper centralizes LLM initialization for every command that talks to the model.
func InitializeLLMClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	llmClient, err := llmclient.NewClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize LLM client. Features requiring the model will fail.", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return llmClient, nil
}

// InitializeTTSClient creates the text-to-speech client. It shares the
// Gemini API key resolution with the LLM client.
func InitializeTTSClient(cfg config.Interface, logger *zap.Logger) (*tts.Client, error) {
	key, err := cfg.LLM().ResolveAPIKey()
	if err != nil {
		logger.Error("Failed to resolve API key for text-to-speech.", zap.Error(err))
		return nil, err
	}
	client, err := tts.NewClient(cfg.TTS(), key, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TTS client: %w", err)
	}
	return client, nil
}
