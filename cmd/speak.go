// File: cmd/speak.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/internal/audio"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
	"github.com/xkilldash9x/codevolver/internal/tts"
)

// speaker is the part of the TTS client the speak command uses.
type speaker interface {
	ListVoices(ctx context.Context, languageCode string) ([]tts.Voice, error)
	Speak(ctx context.Context, text string) (*tts.SynthesizeResponse, error)
}

type speakOptions struct {
	voices bool
	wav    bool
	out    string
}

func newSpeakCmd() *cobra.Command {
	var opts speakOptions

	cmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "Synthesizes text to an audio file, or lists voices.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			client, err := service.InitializeTTSClient(cfg, logger)
			if err != nil {
				return err
			}
			return runSpeak(ctx, cfg, logger, cmd.OutOrStdout(), strings.Join(args, " "), opts, client)
		},
	}
	cmd.Flags().BoolVar(&opts.voices, "voices", false, "List the voices for tts.language_code instead of synthesizing.")
	cmd.Flags().BoolVar(&opts.wav, "wav", false, "Convert the synthesized audio to WAV.")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default speech.mp3, or speech.wav with --wav).")
	return cmd
}

func runSpeak(ctx context.Context, cfg config.Interface, logger *zap.Logger, out io.Writer, text string, opts speakOptions, client speaker) error {
	if opts.voices {
		voices, err := client.ListVoices(ctx, cfg.TTS().LanguageCode)
		if err != nil {
			return fmt.Errorf("failed to list voices: %w", err)
		}
		for _, v := range voices {
			fmt.Fprintf(out, "%s\t%s\t%s\t%d\n", v.Name, strings.Join(v.LanguageCodes, ","), v.SsmlGender, v.NaturalSampleRateHertz)
		}
		return nil
	}

	resp, err := client.Speak(ctx, text)
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}

	data, path := resp.AudioContent, opts.out
	if opts.wav {
		if data, err = audio.ToWAV(data); err != nil {
			return fmt.Errorf("failed to convert speech to WAV: %w", err)
		}
		if path == "" {
			path = "speech.wav"
		}
	}
	if path == "" {
		path = "speech.mp3"
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Info("Speech written", zap.String("path", path), zap.Int("bytes", len(data)))
	fmt.Fprintln(out, path)
	return nil
}
