package spotter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/pkg/alert"
	"github.com/teslashibe/go-spotter/pkg/audio"
	"github.com/teslashibe/go-spotter/pkg/tts"
)

// phraseCacheSize covers "<label> found" for every COCO class.
const phraseCacheSize = 96

// SpeechProvider builds the TTS provider selected by cfg. In auto mode
// every cloud provider with a key is tried first and espeak last.
func SpeechProvider(cfg Config, logger *zap.Logger) (tts.Provider, error) {
	speech := cfg.Alerters.Speech

	var p tts.Provider
	var err error
	switch speech.Provider {
	case SpeechOpenAI:
		p, err = tts.NewOpenAI(speechOptions(cfg, cfg.OpenAIKey, logger)...)
	case SpeechElevenLabs:
		p, err = tts.NewElevenLabs(speechOptions(cfg, cfg.ElevenLabsKey, logger)...)
	case SpeechEspeak:
		p, err = tts.NewEspeak(speech.Voice, 0, logger)
	case SpeechAuto, "":
		p, err = autoProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown speech provider %q", speech.Provider)
	}
	if err != nil {
		return nil, err
	}
	return tts.NewCache(p, phraseCacheSize), nil
}

// speechOptions carries the configured voice to a cloud provider.
func speechOptions(cfg Config, key string, logger *zap.Logger) []tts.Option {
	o := []tts.Option{tts.WithAPIKey(key), tts.WithLogger(logger)}
	if v := cfg.Alerters.Speech.Voice; v != "" {
		o = append(o, tts.WithVoice(v))
	}
	return o
}

func autoProvider(cfg Config, logger *zap.Logger) (tts.Provider, error) {
	var providers []tts.Provider
	if cfg.OpenAIKey != "" {
		if p, err := tts.NewOpenAI(speechOptions(cfg, cfg.OpenAIKey, logger)...); err == nil {
			providers = append(providers, p)
		}
	}
	if cfg.ElevenLabsKey != "" {
		if p, err := tts.NewElevenLabs(speechOptions(cfg, cfg.ElevenLabsKey, logger)...); err == nil {
			providers = append(providers, p)
		}
	}
	if p, err := tts.NewEspeak(cfg.Alerters.Speech.Voice, 0, logger); err == nil {
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, tts.ErrProviderUnavailable
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return tts.NewChain(logger, providers...)
}

// BuildAlerters assembles the enabled alerters. Optional alerters that
// cannot start (no speech engine, no audio player) are logged and skipped.
func BuildAlerters(cfg Config, events alert.Broadcaster, logger *zap.Logger) ([]alert.Alerter, error) {
	ac := cfg.Alerters
	var out []alert.Alerter

	if ac.Speech.Enabled {
		provider, err := SpeechProvider(cfg, logger)
		switch {
		case errors.Is(err, tts.ErrProviderUnavailable):
			logger.Warn("speech disabled: no TTS provider available")
		case err != nil:
			return nil, fmt.Errorf("speech: %w", err)
		default:
			var player alert.Player
			if p, err := audio.NewPlayer(ac.Speech.Player, logger); err == nil {
				player = p
			} else {
				logger.Warn("no audio player, speech is synthesized only", zap.Error(err))
			}
			out = append(out, alert.NewSpeech(provider, player))
			logger.Info("speech alerts enabled", zap.String("provider", provider.Name()))
		}
	}

	if ac.Haptic.Enabled && events != nil {
		out = append(out, alert.NewHaptic(events, ac.Haptic.Duration))
	}

	if ac.Webhook.URL != "" {
		w, err := alert.NewWebhook(ac.Webhook)
		if err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
		out = append(out, w)
	}

	if ac.Snapshot.Dir != "" {
		s, err := alert.NewSnapshot(ac.Snapshot.Dir)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
