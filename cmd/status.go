// File: cmd/status.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/evolver"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
)

func newStatusCmd(factory service.ComponentFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Shows what each variant slot currently holds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runStatus(ctx, cfg, observability.GetLogger(), cmd.OutOrStdout(), factory)
		},
	}
}

func runStatus(ctx context.Context, cfg config.Interface, logger *zap.Logger, out io.Writer, factory service.ComponentFactory) error {
	components, err := factory.Create(ctx, cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize evolution components: %w", err)
	}
	defer components.Shutdown()
	return printSlots(out, components.Evolver.Slots())
}

// printSlots renders one row per slot.
func printSlots(out io.Writer, slots []evolver.SlotState) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tPARENT\tPHASE\tSHADER\tOBJECT")
	for _, s := range slots {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.Index, dash(s.Parent), s.Phase, dash(s.Name), dash(s.ObjectID))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
