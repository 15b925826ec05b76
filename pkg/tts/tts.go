// Package tts turns alert phrases into audio.
//
// Cloud providers (OpenAI, ElevenLabs) and the local espeak binary all
// implement Provider, so the speech alerter can fall back between them
// with a Chain and skip repeat round-trips with a Cache.
//
//	provider, _ := tts.NewOpenAI(tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "person found")
//	// result.Audio holds MP3 bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	Duration  time.Duration // Estimated playback duration, zero if unknown
	CharCount int
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int // PCM only
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000"     // 16kHz mono PCM16
	EncodingPCM22 Encoding = "pcm_22050"     // 22.05kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000"     // 24kHz mono PCM16
	EncodingPCM44 Encoding = "pcm_44100"     // 44.1kHz mono PCM16
	EncodingMP3   Encoding = "mp3_44100_128" // MP3 128kbps
	EncodingWAV   Encoding = "wav"           // RIFF container, as written by espeak
)

// IsPCM reports whether enc is headerless PCM16.
func (e Encoding) IsPCM() bool {
	switch e {
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
		return true
	}
	return false
}

// VoiceSettings controls ElevenLabs voice characteristics.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`        // 0-1, higher is more consistent
	SimilarityBoost float64 `json:"similarity_boost"` // 0-1
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings returns sensible defaults for voice synthesis.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		SpeakerBoost:    true,
	}
}

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22, EncodingWAV:
		return 22050
	case EncodingPCM24:
		return 24000
	case EncodingPCM44, EncodingMP3:
		return 44100
	default:
		return 24000
	}
}

// pcmDuration estimates playback time of mono PCM16 audio.
func pcmDuration(n int, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := n / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
