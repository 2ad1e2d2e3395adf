// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/assets"
	"github.com/xkilldash9x/codevolver/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) LLM() config.LLMConfig {
	args := m.Called()
	return args.Get(0).(config.LLMConfig)
}

func (m *MockConfig) Evolver() config.EvolverConfig {
	args := m.Called()
	return args.Get(0).(config.EvolverConfig)
}

func (m *MockConfig) TTS() config.TTSConfig {
	args := m.Called()
	return args.Get(0).(config.TTSConfig)
}

// --- Setters ---

func (m *MockConfig) SetEvolvePrompt(p string) {
	m.Called(p)
}

func (m *MockConfig) SetSystemInstruction(s string) {
	m.Called(s)
}

func (m *MockConfig) SetSelectedVariant(i int) {
	m.Called(i)
}

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

// GenerateContent provides a mock function for LLM calls.
func (m *MockLLMClient) GenerateContent(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.GenerationResponse), args.Error(1)
}

func (m *MockLLMClient) ListModels(ctx context.Context) ([]schemas.ModelInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.ModelInfo), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Asset Database Mock --

// MockAssetDatabase mocks the assets.Database interface.
type MockAssetDatabase struct {
	mock.Mock
}

func (m *MockAssetDatabase) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAssetDatabase) LoadArtifactByPath(path string) (*assets.Artifact, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assets.Artifact), args.Error(1)
}

func (m *MockAssetDatabase) FindArtifactByName(name string) (*assets.Artifact, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assets.Artifact), args.Error(1)
}

func (m *MockAssetDatabase) HasCompileError(a *assets.Artifact) bool {
	return m.Called(a).Bool(0)
}

func (m *MockAssetDatabase) ForceReimport(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockAssetDatabase) CreateMaterial(path string, a *assets.Artifact) (*assets.Material, error) {
	args := m.Called(path, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assets.Material), args.Error(1)
}

func (m *MockAssetDatabase) LoadMaterial(path string) (*assets.Material, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assets.Material), args.Error(1)
}

func (m *MockAssetDatabase) DeleteAsset(path string) error {
	return m.Called(path).Error(0)
}

// -- Scene Mock --

// MockScene mocks the scene graph the evolver mutates.
type MockScene struct {
	mock.Mock
}

func (m *MockScene) EnsureContainer(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *MockScene) Instantiate(template, parent, name string) (string, error) {
	args := m.Called(template, parent, name)
	return args.String(0), args.Error(1)
}

func (m *MockScene) Destroy(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockScene) AssignMaterial(id, materialPath string) error {
	return m.Called(id, materialPath).Error(0)
}

func (m *MockScene) Save() error {
	return m.Called().Error(0)
}
