// Package alert confirms sustained detections and notifies alerters.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

// State is the debouncer phase.
type State int

const (
	Idle     State = iota // target not being tracked
	Tracking              // target seen, hold pending
	Fired                 // alert raised
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Fired:
		return "fired"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Idle, Tracking, Fired} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Indicator is the traffic-light shown next to the video.
type Indicator string

const (
	IndicatorError   Indicator = "error"   // target not in frame
	IndicatorWarning Indicator = "warning" // target in frame, hold pending
	IndicatorSuccess Indicator = "success" // confirmed
)

// Config controls the debouncer timing.
type Config struct {
	Target        string        `yaml:"target" json:"target"`
	MinConfidence float64       `yaml:"min_confidence" json:"min_confidence"`
	Hold          time.Duration `yaml:"hold" json:"hold"`   // continuous presence before firing
	Grace         time.Duration `yaml:"grace" json:"grace"` // tolerated gap while tracking
	Rearm         time.Duration `yaml:"rearm" json:"rearm"` // absence before re-arming; 0 fires once
}

// DefaultConfig fires once, after a person has been in frame for 2s.
func DefaultConfig() Config {
	return Config{
		Target: "person",
		Hold:   2 * time.Second,
		Grace:  500 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target class is required")
	}
	if !detection.IsKnownClass(c.Target) {
		return fmt.Errorf("unknown target class %q", c.Target)
	}
	if c.Hold < 0 || c.Grace < 0 || c.Rearm < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1]")
	}
	return nil
}

// Status is a snapshot of the debouncer.
type Status struct {
	Target    string    `json:"target"`
	State     State     `json:"state"`
	Indicator Indicator `json:"indicator"`
	InFrame   bool      `json:"in_frame"`
	Since     time.Time `json:"since,omitzero"`
	FiredAt   time.Time `json:"fired_at,omitzero"`
	Fires     int       `json:"fires"`
}

// Debouncer turns per-frame detections into at most one alert per
// sustained appearance of the target.
type Debouncer struct {
	clock clock.Clock

	mu       sync.Mutex
	cfg      Config
	state    State
	inFrame  bool
	since    time.Time // tracking start
	lastSeen time.Time
	firedAt  time.Time
	fires    int
}

// NewDebouncer creates a debouncer. A nil clock uses wall time.
func NewDebouncer(cfg Config, clk clock.Clock) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	return &Debouncer{cfg: cfg, clock: clk}
}

// Observe feeds one frame's detections. It returns the detection that
// triggered the alert on the frame the hold completes, and nil otherwise.
func (d *Debouncer) Observe(dets []detection.ObjectDetection) *detection.ObjectDetection {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	match := d.match(dets)
	d.inFrame = match != nil
	if d.inFrame {
		d.lastSeen = now
	}

	switch d.state {
	case Idle:
		if match == nil {
			return nil
		}
		d.state = Tracking
		d.since = now
		return d.checkHold(now, match)

	case Tracking:
		if match == nil {
			if now.Sub(d.lastSeen) > d.cfg.Grace {
				d.state = Idle
				d.since = time.Time{}
			}
			return nil
		}
		return d.checkHold(now, match)

	case Fired:
		if d.cfg.Rearm > 0 && match == nil && now.Sub(d.lastSeen) >= d.cfg.Rearm {
			d.state = Idle
			d.since = time.Time{}
		}
	}
	return nil
}

func (d *Debouncer) checkHold(now time.Time, match *detection.ObjectDetection) *detection.ObjectDetection {
	if now.Sub(d.since) < d.cfg.Hold {
		return nil
	}
	d.state = Fired
	d.firedAt = now
	d.fires++
	return match
}

// match returns the best detection of the target class, if any.
func (d *Debouncer) match(dets []detection.ObjectDetection) *detection.ObjectDetection {
	var candidates []detection.ObjectDetection
	for _, det := range detection.FilterClass(dets, d.cfg.Target) {
		if det.Confidence >= d.cfg.MinConfidence {
			candidates = append(candidates, det)
		}
	}
	best := detection.SelectBest(candidates)
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// Reset re-arms the debouncer.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Idle
	d.since = time.Time{}
}

// SetTarget switches the tracked class and re-arms.
func (d *Debouncer) SetTarget(target string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Target = target
	d.state = Idle
	d.inFrame = false
	d.since = time.Time{}
}

// Config returns the current configuration.
func (d *Debouncer) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Status returns a snapshot for the dashboard.
func (d *Debouncer) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Target:    d.cfg.Target,
		State:     d.state,
		Indicator: d.indicator(),
		InFrame:   d.inFrame,
		Since:     d.since,
		FiredAt:   d.firedAt,
		Fires:     d.fires,
	}
}

func (d *Debouncer) indicator() Indicator {
	if !d.inFrame {
		return IndicatorError
	}
	switch d.state {
	case Fired:
		return IndicatorSuccess
	case Tracking:
		return IndicatorWarning
	}
	return IndicatorError
}
