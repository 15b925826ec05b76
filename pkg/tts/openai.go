package tts

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	openAITTSURL   = "https://api.openai.com/v1/audio/speech"
	providerOpenAI = "openai"
)

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"   // Neutral voice
	VoiceEcho    = "echo"    // Male voice
	VoiceFable   = "fable"   // British accent
	VoiceOnyx    = "onyx"    // Deep male voice
	VoiceNova    = "nova"    // Female voice
	VoiceShimmer = "shimmer" // Soft female voice
)

// OpenAI model options
const (
	ModelTTS1   = "tts-1"    // Standard quality, faster
	ModelTTS1HD = "tts-1-hd" // Higher quality, slower
)

// OpenAI implements Provider for OpenAI TTS.
type OpenAI struct {
	config  *Config
	client  *resty.Client
	logger  *zap.Logger
	baseURL string
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceShimmer
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = VoiceShimmer
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAITTSURL
	}

	return &OpenAI{
		config:  cfg,
		client:  newRestClient(cfg).SetAuthToken(cfg.APIKey),
		logger:  cfg.Logger.Named("tts.openai"),
		baseURL: baseURL,
	}, nil
}

// Name implements Provider.
func (o *OpenAI) Name() string { return providerOpenAI }

// Synthesize converts text to MP3 audio.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}
	start := time.Now()

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"model":           o.config.ModelID,
			"voice":           o.config.VoiceID,
			"input":           text,
			"response_format": "mp3",
		}).
		Post(o.baseURL)
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}
	if resp.IsError() {
		return nil, apiError(providerOpenAI, resp)
	}

	latency := time.Since(start).Milliseconds()
	audio := resp.Body()

	o.logger.Debug("synthesized audio",
		zap.Int("chars", len(text)),
		zap.Int("bytes", len(audio)),
		zap.Int64("latency_ms", latency),
		zap.String("voice", o.config.VoiceID),
	)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 44100, Channels: 1},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	o.client.GetClient().CloseIdleConnections()
	return nil
}

// VoiceID returns the configured voice.
func (o *OpenAI) VoiceID() string {
	return o.config.VoiceID
}

var _ Provider = (*OpenAI)(nil)
