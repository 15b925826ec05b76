package alert

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-spotter/pkg/tts"
)

// Player plays a synthesized clip. *audio.Player satisfies it.
type Player interface {
	Play(ctx context.Context, clip *tts.AudioResult) error
}

// Speech says "<label> found" out loud.
type Speech struct {
	provider tts.Provider
	player   Player
}

// NewSpeech speaks through provider. A nil player synthesizes only,
// which still warms a tts.Cache for later alerts.
func NewSpeech(provider tts.Provider, player Player) *Speech {
	return &Speech{provider: provider, player: player}
}

// Name implements Alerter.
func (s *Speech) Name() string { return "speech" }

// Alert implements Alerter.
func (s *Speech) Alert(ctx context.Context, ev Event) error {
	clip, err := s.provider.Synthesize(ctx, ev.Phrase())
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if s.player == nil {
		return nil
	}
	return s.player.Play(ctx, clip)
}
