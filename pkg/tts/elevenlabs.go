package tts

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	ModelTurboV2_5      = "eleven_turbo_v2_5"      // Fastest English model
	ModelFlashV2_5      = "eleven_flash_v2_5"      // Fastest multilingual model
	ModelMultilingualV2 = "eleven_multilingual_v2" // Highest quality
)

// ElevenLabs implements Provider for ElevenLabs TTS.
type ElevenLabs struct {
	config  *Config
	client  *resty.Client
	logger  *zap.Logger
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs TTS provider. The voice may be
// a preset name from ElevenLabsVoices or a raw voice ID.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.VoiceID = DefaultElevenLabsVoice
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}
	cfg.VoiceID = ResolveElevenLabsVoice(cfg.VoiceID)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		config:  cfg,
		client:  newRestClient(cfg).SetHeader("xi-api-key", cfg.APIKey),
		logger:  cfg.Logger.Named("tts.elevenlabs"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Name implements Provider.
func (e *ElevenLabs) Name() string { return providerElevenLabs }

// Synthesize converts text to audio in the configured output format.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerElevenLabs, ErrEmptyText)
	}
	start := time.Now()

	resp, err := e.client.R().
		SetContext(ctx).
		SetPathParam("voice", e.config.VoiceID).
		SetQueryParam("output_format", string(e.config.OutputFormat)).
		SetHeader("Accept", e.mime()).
		SetBody(map[string]any{
			"text":           text,
			"model_id":       e.config.ModelID,
			"voice_settings": e.config.VoiceSettings,
		}).
		Post(e.baseURL + "/text-to-speech/{voice}")
	if err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}
	if resp.IsError() {
		return nil, apiError(providerElevenLabs, resp)
	}

	latency := time.Since(start).Milliseconds()
	audio := resp.Body()
	format := e.outputFormat()

	e.logger.Debug("synthesized audio",
		zap.Int("chars", len(text)),
		zap.Int("bytes", len(audio)),
		zap.Int64("latency_ms", latency),
		zap.String("model", e.config.ModelID),
	)

	result := &AudioResult{
		Audio:     audio,
		Format:    format,
		CharCount: len(text),
		LatencyMs: latency,
	}
	if format.Encoding.IsPCM() {
		result.Duration = pcmDuration(len(audio), format.SampleRate)
	}
	return result, nil
}

// Close releases resources.
func (e *ElevenLabs) Close() error {
	e.client.GetClient().CloseIdleConnections()
	return nil
}

func (e *ElevenLabs) mime() string {
	if e.config.OutputFormat.IsPCM() {
		return "audio/pcm"
	}
	return "audio/mpeg"
}

func (e *ElevenLabs) outputFormat() AudioFormat {
	f := AudioFormat{
		Encoding:   e.config.OutputFormat,
		SampleRate: SampleRateFromEncoding(e.config.OutputFormat),
		Channels:   1,
	}
	if f.Encoding.IsPCM() {
		f.BitDepth = 16
	}
	return f
}

var _ Provider = (*ElevenLabs)(nil)
