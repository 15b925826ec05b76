package alert

import (
	"context"
	"time"
)

// Broadcaster pushes JSON to dashboard clients. *hub.Hub satisfies it.
type Broadcaster interface {
	BroadcastJSON(v any) error
}

// VibrateMessage asks dashboard clients to vibrate and announce the event.
type VibrateMessage struct {
	Type     string `json:"type"` // always "vibrate"
	Duration int64  `json:"duration_ms"`
	Event    Event  `json:"event"`
}

// Haptic sends a vibrate command to connected phones and browsers.
type Haptic struct {
	out      Broadcaster
	duration time.Duration
}

// NewHaptic vibrates for d (500ms when zero).
func NewHaptic(out Broadcaster, d time.Duration) *Haptic {
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	return &Haptic{out: out, duration: d}
}

// Name implements Alerter.
func (h *Haptic) Name() string { return "haptic" }

// Alert implements Alerter.
func (h *Haptic) Alert(_ context.Context, ev Event) error {
	return h.out.BroadcastJSON(VibrateMessage{
		Type:     "vibrate",
		Duration: h.duration.Milliseconds(),
		Event:    ev,
	})
}
