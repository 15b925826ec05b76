package tts

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns an error.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	mu    sync.Mutex
	calls []string
}

// NewMock returns a mock producing silent PCM, ~20ms per character.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			const bytesPerChar = 960 // 20ms at 24kHz PCM16
			return &AudioResult{
				Audio: make([]byte, len(text)*bytesPerChar),
				Format: AudioFormat{
					Encoding:   EncodingPCM24,
					SampleRate: 24000,
					Channels:   1,
					BitDepth:   16,
				},
				CharCount: len(text),
				Duration:  time.Duration(len(text)) * 20 * time.Millisecond,
			}, nil
		},
	}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) {
			return nil, err
		},
	}
}

// Name implements Provider.
func (m *Mock) Name() string { return "mock" }

// Synthesize records the call and delegates to SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Calls returns the texts passed to Synthesize, in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Close implements Provider.
func (m *Mock) Close() error { return nil }

var _ Provider = (*Mock)(nil)
