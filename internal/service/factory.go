// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/assets"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/evolver"
	"github.com/xkilldash9x/codevolver/internal/scene"
)

// ComponentFactory defines the interface for creating the set of components needed for an evolution run.
// This abstraction is the key to making the evolve, clear and status commands testable.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, llm schemas.LLMClient, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// newCompiler picks the structural compiler, chained with the external
// validator when one is configured.
func newCompiler(cfg config.EvolverConfig) (assets.Compiler, error) {
	argv, err := cfg.CompilerArgv()
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return assets.ShaderLabCompiler{}, nil
	}
	return assets.CommandCompiler{Base: assets.ShaderLabCompiler{}, Command: argv}, nil
}

// Create wires the asset database, scene, state store and evolver. The
// asset database is started and scanned once before the evolver is built.
// llm may be nil for commands that never reach the model.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, llm schemas.LLMClient, logger *zap.Logger) (*Components, error) {
	evCfg := cfg.Evolver()
	components := &Components{LLM: llm}

	compiler, err := newCompiler(evCfg)
	if err != nil {
		return nil, err
	}
	db, err := assets.NewFileDatabase(assets.Options{
		Root:     evCfg.ProjectRoot,
		Compiler: compiler,
		Watch:    evCfg.Watch,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset database: %w", err)
	}
	if err := db.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start asset database: %w", err)
	}
	components.Assets = db

	if err := db.Refresh(ctx); err != nil {
		components.Shutdown()
		return nil, fmt.Errorf("initial asset refresh failed: %w", err)
	}

	sc, err := scene.Open(evCfg.ScenePath(), logger)
	if err != nil {
		components.Shutdown()
		return nil, err
	}
	components.Scene = sc
	components.State = evolver.NewFileStateStore(evCfg.StatePath())

	client := llm
	if client == nil {
		client = offlineClient{}
	}
	ev, err := evolver.New(evolver.OptionsFromConfig(cfg), client, db, sc, logger, evolver.WithStateStore(components.State))
	if err != nil {
		components.Shutdown()
		return nil, err
	}
	components.Evolver = ev

	logger.Debug("Evolution components created",
		zap.String("project_root", db.Root()),
		zap.String("scene", sc.Path()),
		zap.String("state", components.State.Path()))
	return components, nil
}

// offlineClient backs commands such as clear and status that build the
// evolver without needing the model.
type offlineClient struct{}

func (offlineClient) GenerateContent(context.Context, schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	return nil, fmt.Errorf("%w: no LLM client was initialized for this command", config.ErrConfigMissing)
}

func (offlineClient) ListModels(context.Context) ([]schemas.ModelInfo, error) {
	return nil, fmt.Errorf("%w: no LLM client was initialized for this command", config.ErrConfigMissing)
}

func (offlineClient) Close() error { return nil }
