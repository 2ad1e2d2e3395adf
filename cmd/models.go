// File: cmd/models.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Lists the models available to the configured API key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			llmClient, err := service.InitializeLLMClient(ctx, cfg.LLM(), logger)
			if err != nil {
				return err
			}
			defer llmClient.Close()
			return runModels(ctx, cmd.OutOrStdout(), llmClient)
		},
	}
}

func runModels(ctx context.Context, out io.Writer, llmClient schemas.LLMClient) error {
	models, err := llmClient.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tINPUT\tOUTPUT")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", m.Name, m.DisplayName, m.InputTokenLimit, m.OutputTokenLimit)
	}
	return tw.Flush()
}
