package evolver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/internal/assets"
)

// lookup finds the artifact by path first and by shader name second.
func (e *Evolver) lookup(path, name string) (*assets.Artifact, error) {
	a, err := e.db.LoadArtifactByPath(path)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, assets.ErrNotFound) {
		return nil, err
	}
	return e.db.FindArtifactByName(name)
}

// awaitArtifact polls until the artifact exists without compile errors.
// Every ReimportEvery consecutive misses a forced re-import is requested;
// after MaxAttempts it gives up with ErrCompileTimeout.
func (e *Evolver) awaitArtifact(ctx context.Context, logger *zap.Logger, path, name string) (*assets.Artifact, error) {
	var last *assets.Artifact
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		a, err := e.lookup(path, name)
		switch {
		case err == nil && !e.db.HasCompileError(a):
			logger.Info("Shader compiled without errors", zap.Int("attempt", attempt))
			return a, nil
		case err == nil:
			last = a
			logger.Debug("Shader has compilation errors, retrying",
				zap.Int("attempt", attempt), zap.Int("max_attempts", e.opts.MaxAttempts), zap.Strings("errors", a.Errors))
		case errors.Is(err, assets.ErrNotFound):
			logger.Debug("Shader not imported yet, waiting",
				zap.Int("attempt", attempt), zap.Int("max_attempts", e.opts.MaxAttempts))
		default:
			logger.Error("Shader lookup failed", zap.Int("attempt", attempt), zap.Error(err))
		}

		if attempt == e.opts.MaxAttempts {
			break
		}
		if err := e.sleep(ctx, e.opts.PollInterval); err != nil {
			return nil, err
		}
		if attempt%e.opts.ReimportEvery == 0 {
			logger.Warn("Shader still not compiled, forcing re-import", zap.Int("attempt", attempt))
			if err := e.db.ForceReimport(ctx, path); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Warn("Forced re-import failed", zap.Error(err))
			}
		}
	}

	err := fmt.Errorf("%w: %q at %s after %d attempts", ErrCompileTimeout, name, path, e.opts.MaxAttempts)
	if last != nil {
		err = fmt.Errorf("%w (last errors: %v)", err, last.Errors)
	}
	return nil, err
}
