// Package audio plays synthesized speech on the local machine.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/pkg/tts"
)

// ErrNoPlayer is returned when neither ffplay nor aplay is installed.
var ErrNoPlayer = errors.New("audio: no player found (install ffmpeg or alsa-utils)")

// Player pipes audio into a local command-line player.
// Playback is serialized: a second Play waits for the first to finish.
type Player struct {
	bin    string
	logger *zap.Logger

	playMu sync.Mutex // held for the duration of a playback

	mu      sync.Mutex
	current *exec.Cmd

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()
}

// NewPlayer finds a player binary. An explicit bin wins over the
// ffplay, then aplay, lookup.
func NewPlayer(bin string, logger *zap.Logger) (*Player, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	candidates := []string{"ffplay", "aplay"}
	if bin != "" {
		candidates = []string{bin}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return &Player{bin: path, logger: logger.Named("audio")}, nil
		}
	}
	return nil, ErrNoPlayer
}

// Play blocks until the clip has played or ctx is cancelled.
func (p *Player) Play(ctx context.Context, clip *tts.AudioResult) error {
	if clip == nil || len(clip.Audio) == 0 {
		return nil
	}
	args, err := playerArgs(filepath.Base(p.bin), clip.Format)
	if err != nil {
		return err
	}

	p.playMu.Lock()
	defer p.playMu.Unlock()

	cmd := exec.CommandContext(ctx, p.bin, args...)
	cmd.Stdin = bytes.NewReader(clip.Audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.bin, err)
	}
	p.setCurrent(cmd)
	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}

	err = cmd.Wait()
	p.setCurrent(nil)
	if p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd()
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		p.logger.Warn("playback failed", zap.Error(err), zap.String("stderr", stderr.String()))
		return fmt.Errorf("play: %w", err)
	}
	p.logger.Debug("played clip",
		zap.Int("bytes", len(clip.Audio)),
		zap.String("encoding", string(clip.Format.Encoding)),
	)
	return nil
}

// Cancel stops any current playback immediately.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.Process != nil {
		p.current.Process.Kill()
	}
}

// IsPlaying returns whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

func (p *Player) setCurrent(cmd *exec.Cmd) {
	p.mu.Lock()
	p.current = cmd
	p.mu.Unlock()
}

// playerArgs builds the command line that reads one clip from stdin.
func playerArgs(bin string, f tts.AudioFormat) ([]string, error) {
	rate := strconv.Itoa(f.SampleRate)
	channels := f.Channels
	if channels <= 0 {
		channels = 1
	}
	ch := strconv.Itoa(channels)

	switch bin {
	case "ffplay":
		args := []string{"-nodisp", "-autoexit", "-loglevel", "error"}
		if f.Encoding.IsPCM() {
			args = append(args, "-f", "s16le", "-ar", rate, "-ch_layout", channelLayout(channels))
		}
		return append(args, "-i", "pipe:0"), nil
	case "aplay":
		switch {
		case f.Encoding.IsPCM():
			return []string{"-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", ch, "-"}, nil
		case f.Encoding == tts.EncodingWAV:
			return []string{"-q", "-t", "wav", "-"}, nil
		}
		return nil, fmt.Errorf("aplay cannot decode %s", f.Encoding)
	}
	return nil, fmt.Errorf("unsupported player %q", bin)
}

func channelLayout(n int) string {
	if n == 2 {
		return "stereo"
	}
	return "mono"
}
