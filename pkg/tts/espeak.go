package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const providerEspeak = "espeak"

// Espeak synthesizes speech with a local espeak-ng (or espeak) binary.
// It needs no network access, which makes it the usual last link of a Chain.
type Espeak struct {
	bin    string
	voice  string
	speed  int // words per minute
	logger *zap.Logger
}

// NewEspeak locates espeak-ng or espeak on PATH.
func NewEspeak(voice string, speed int, logger *zap.Logger) (*Espeak, error) {
	bin, err := exec.LookPath("espeak-ng")
	if err != nil {
		if bin, err = exec.LookPath("espeak"); err != nil {
			return nil, WrapError(providerEspeak, ErrProviderUnavailable)
		}
	}
	if voice == "" {
		voice = "en"
	}
	if speed <= 0 {
		speed = 160
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Espeak{bin: bin, voice: voice, speed: speed, logger: logger.Named("tts.espeak")}, nil
}

// Name implements Provider.
func (e *Espeak) Name() string { return providerEspeak }

// Synthesize runs espeak and returns the WAV it writes to stdout.
func (e *Espeak) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerEspeak, ErrEmptyText)
	}
	start := time.Now()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.bin, e.args(text)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, WrapError(providerEspeak, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio",
		zap.Int("chars", len(text)),
		zap.Int("bytes", stdout.Len()),
		zap.Int64("latency_ms", latency),
	)

	return &AudioResult{
		Audio:     stdout.Bytes(),
		Format:    AudioFormat{Encoding: EncodingWAV, SampleRate: 22050, Channels: 1, BitDepth: 16},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

func (e *Espeak) args(text string) []string {
	return []string{"--stdout", "-v", e.voice, "-s", strconv.Itoa(e.speed), "--", text}
}

// Close implements Provider.
func (e *Espeak) Close() error { return nil }

var _ Provider = (*Espeak)(nil)
