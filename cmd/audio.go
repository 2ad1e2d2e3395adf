// File: cmd/audio.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/audio"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
)

const defaultAudioPrompt = "Describe this audio clip."

func newAudioCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "audio <file>",
		Short: "Sends an audio file with a prompt and prints the model reply.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read audio file: %w", err)
			}
			llmClient, err := service.InitializeLLMClient(ctx, cfg.LLM(), logger)
			if err != nil {
				return err
			}
			defer llmClient.Close()
			return runAudio(ctx, logger, cmd.OutOrStdout(), prompt, data, llmClient)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", defaultAudioPrompt, "Text sent alongside the audio.")
	return cmd
}

func runAudio(ctx context.Context, logger *zap.Logger, out io.Writer, prompt string, data []byte, llmClient schemas.LLMClient) error {
	blob, err := audio.Blob(data)
	if err != nil {
		return fmt.Errorf("unusable audio input: %w", err)
	}
	logger.Debug("Audio attached", zap.String("mime", blob.MIMEType), zap.Int("bytes", len(blob.Data)))

	req := schemas.GenerationRequest{
		Contents: []schemas.Content{schemas.NewContent(schemas.RoleUser, prompt, blob)},
		Tier:     schemas.TierFast,
	}
	reply, err := firstReply(ctx, llmClient, req)
	if err != nil {
		logger.Error("Audio request failed.", zap.Error(err))
		return err
	}
	fmt.Fprint(out, reply)
	return nil
}
