package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/config"
)

// MockLLMClient is a mock implementation of the LLMClient interface for testing.
type MockLLMClient struct {
	mock.Mock
	Name string
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*schemas.GenerationResponse)
	return resp, args.Error(1)
}

func (m *MockLLMClient) ListModels(ctx context.Context) ([]schemas.ModelInfo, error) {
	args := m.Called(ctx)
	models, _ := args.Get(0).([]schemas.ModelInfo)
	return models, args.Error(1)
}

func (m *MockLLMClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// setupTestLogger is a helper to create a zap logger for testing with an observer.
func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	core, _ := observer.New(zap.DebugLevel)
	return zap.New(core)
}

// getValidLLMConfig returns a valid LLMConfig for testing purposes.
func getValidLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:      config.ProviderGemini,
		APIKey:        "test-api-key",
		Model:         "test-model",
		APITimeout:    5 * time.Second,
		SafetyFilters: map[string]string{"harm_category_harassment": "block_low_and_above"},
	}
}

func textResponse(text string) *schemas.GenerationResponse {
	return &schemas.GenerationResponse{
		Candidates: []schemas.Candidate{{Content: schemas.NewTextContent(schemas.RoleModel, text)}},
	}
}
