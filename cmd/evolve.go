// File: cmd/evolve.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
)

// newEvolveCmd creates the 'evolve' command. It parses flags, builds the LLM
// client and hands everything to runEvolve.
func newEvolveCmd(factory service.ComponentFactory) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Generates a new shader variant for every slot.",
		Long: `The evolve command asks the model for one shader per variant slot, writes each
into the output directory, waits for it to compile and binds it to a freshly
spawned object. Failed slots are logged and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			applyEvolveFlags(cmd, cfg)

			llmClient, err := service.InitializeLLMClient(ctx, cfg.LLM(), logger)
			if err != nil {
				return err
			}
			return runEvolve(ctx, cfg, logger, cmd.OutOrStdout(), debug, llmClient, factory)
		},
	}

	cmd.Flags().StringP("prompt", "p", "", "Evolution instruction (overrides evolver.evolve_prompt).")
	cmd.Flags().StringP("system", "s", "", "System instruction (overrides evolver.system_instruction).")
	cmd.Flags().Int("variant", 0, "Index of the variant whose source seeds the pass.")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print the conversation transcript after the pass.")
	return cmd
}

// applyEvolveFlags copies explicitly set flags onto the loaded configuration.
func applyEvolveFlags(cmd *cobra.Command, cfg config.Interface) {
	flags := cmd.Flags()
	if flags.Changed("prompt") {
		p, _ := flags.GetString("prompt")
		cfg.SetEvolvePrompt(p)
	}
	if flags.Changed("system") {
		s, _ := flags.GetString("system")
		cfg.SetSystemInstruction(s)
	}
	if flags.Changed("variant") {
		i, _ := flags.GetInt("variant")
		cfg.SetSelectedVariant(i)
	}
}

// runEvolve runs one evolution pass. It is decoupled from cobra and accepts
// all dependencies as arguments.
func runEvolve(
	ctx context.Context,
	cfg config.Interface,
	logger *zap.Logger,
	out io.Writer,
	debug bool,
	llmClient schemas.LLMClient,
	factory service.ComponentFactory,
) error {
	components, err := factory.Create(ctx, cfg, llmClient, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize evolution components: %w", err)
	}
	defer components.Shutdown()

	runErr := components.Evolver.Evolve(ctx)
	if debug {
		fmt.Fprintln(out, components.Evolver.Transcript())
	}
	if runErr != nil {
		logger.Error("Evolution pass aborted.", zap.Error(runErr))
		return fmt.Errorf("evolution pass aborted: %w", runErr)
	}
	return printSlots(out, components.Evolver.Slots())
}
