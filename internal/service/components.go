// File: internal/service/components.go
package service

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/assets"
	"github.com/xkilldash9x/codevolver/internal/evolver"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/scene"
)

// Components holds all the initialized services required for an evolution run.
// This struct centralizes the lifecycle management of workflow dependencies.
type Components struct {
	LLM     schemas.LLMClient
	Assets  *assets.FileDatabase
	Scene   *scene.Scene
	State   *evolver.FileStateStore
	Evolver *evolver.Evolver
}

// Shutdown stops the importer and releases the model client.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	if c.Assets != nil {
		if err := c.Assets.Close(); err != nil {
			logger.Warn("Error during asset database shutdown.", zap.Error(err))
		} else {
			logger.Debug("Asset database stopped.")
		}
	}

	if c.LLM != nil {
		if err := c.LLM.Close(); err != nil {
			logger.Warn("Error closing LLM client.", zap.Error(err))
		}
	}

	logger.Debug("All components shut down.")
}
