// Package camera acquires webcam frames and holds the runtime-configurable
// capture settings.
package camera

import "fmt"

// Facing modes, named after the MediaTrackConstraints values.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Config holds all camera configuration parameters.
// These can be modified via the dashboard API at runtime.
type Config struct {
	// Device is a capture index ("0"), a device path or a stream URL.
	Device string `json:"device" yaml:"device"`

	// === Resolution ===
	Width     int `json:"width" yaml:"width"`         // Frame width in pixels
	Height    int `json:"height" yaml:"height"`       // Frame height in pixels
	Framerate int `json:"framerate" yaml:"framerate"` // Target FPS, also paces the frame loop
	Quality   int `json:"quality" yaml:"quality"`     // JPEG quality 1-100 for the stream

	// FacingMode is "environment" or "user". A user-facing camera is
	// mirrored so the preview behaves like a mirror.
	FacingMode string `json:"facing_mode" yaml:"facing_mode"`

	// Mirror overrides the FacingMode default when set. Nil derives it.
	Mirror *bool `json:"mirror,omitempty" yaml:"mirror,omitempty"`
}

// Capture limits accepted by Validate.
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns VGA at 30 FPS on the first capture device.
// VGA keeps per-frame inference cheap on a laptop CPU.
func DefaultConfig() Config {
	return Config{
		Device:     "0",
		Width:      640,
		Height:     480,
		Framerate:  30,
		Quality:    80,
		FacingMode: FacingEnvironment,
	}
}

// Mirrored reports whether frames should be flipped horizontally.
func (c Config) Mirrored() bool {
	if c.Mirror != nil {
		return *c.Mirror
	}
	return c.FacingMode == FacingUser
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device must not be empty")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.FacingMode != "" && c.FacingMode != FacingEnvironment && c.FacingMode != FacingUser {
		errors = append(errors, "facing_mode must be environment or user")
	}

	return errors
}
