// File: cmd/chat.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
)

// chatOptions shape a single-turn request to the fast model.
type chatOptions struct {
	system string
	search bool
}

func newChatCmd() *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Sends one prompt to the fast model and prints the reply.",
		Args:  cobra.MinimumNArgs(1),
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
			return runChat(ctx, cfg, logger, cmd.OutOrStdout(), strings.Join(args, " "), opts, llmClient)
		},
	}

	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "System instruction for the request.")
	cmd.Flags().BoolVar(&opts.search, "search", false, "Enable Google Search grounding.")
	return cmd
}

func runChat(ctx context.Context, cfg config.Interface, logger *zap.Logger, out io.Writer, prompt string, opts chatOptions, llmClient schemas.LLMClient) error {
	req := schemas.GenerationRequest{
		Contents:          []schemas.Content{schemas.NewTextContent(schemas.RoleUser, prompt)},
		SystemInstruction: opts.system,
		SafetySettings:    cfg.LLM().SafetySettings(),
		Tier:              schemas.TierFast,
	}
	if opts.search {
		req.Tools = []schemas.Tool{schemas.ToolGoogleSearch}
	}

	reply, err := firstReply(ctx, llmClient, req)
	if err != nil {
		logger.Error("Chat request failed.", zap.Error(err))
		return err
	}
	fmt.Fprint(out, reply)
	return nil
}

// errNoReply is returned when the model answers with zero candidates.
var errNoReply = errors.New("model returned no candidates")

// firstReply sends req and returns the text of the first candidate.
func firstReply(ctx context.Context, llmClient schemas.LLMClient, req schemas.GenerationRequest) (string, error) {
	resp, err := llmClient.GenerateContent(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		if reason := resp.BlockReason(); reason != "" {
			return "", fmt.Errorf("%w (block reason: %s)", errNoReply, reason)
		}
		return "", errNoReply
	}
	return resp.Candidates[0].Content.Text(), nil
}
