// File: cmd/clear.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
)

func newClearCmd(factory service.ComponentFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Destroys every spawned variant and deletes its generated assets.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runClear(ctx, cfg, observability.GetLogger(), factory)
		},
	}
}

// runClear never needs the model, so the components are built without one.
func runClear(ctx context.Context, cfg config.Interface, logger *zap.Logger, factory service.ComponentFactory) error {
	components, err := factory.Create(ctx, cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize evolution components: %w", err)
	}
	defer components.Shutdown()

	if err := components.Evolver.Clear(); err != nil {
		return fmt.Errorf("clear finished with errors: %w", err)
	}
	return nil
}
