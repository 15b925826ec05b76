package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/internal/log"
	"github.com/teslashibe/go-spotter/pkg/audio"
	"github.com/teslashibe/go-spotter/pkg/spotter"
)

// say checks the speech setup without a camera.
func newSayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "say <text>",
		Short:   "Speak text through the configured speech provider",
		Example: "  spotter say person found",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			provider, err := spotter.SpeechProvider(cfg, log.L())
			if err != nil {
				return fmt.Errorf("speech: %w", err)
			}
			defer provider.Close()

			player, err := audio.NewPlayer(cfg.Alerters.Speech.Player, log.L())
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			clip, err := provider.Synthesize(cmd.Context(), text)
			if err != nil {
				return err
			}
			log.Info("synthesized",
				zap.String("provider", provider.Name()),
				zap.Int("bytes", len(clip.Audio)),
				zap.Duration("duration", clip.Duration),
			)
			return player.Play(cmd.Context(), clip)
		},
	}
}
