package alert

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

var (
	person = []detection.ObjectDetection{{
		Detection: detection.Detection{X: 0.1, Y: 0.1, W: 0.3, H: 0.6, Confidence: 0.9},
		ClassName: "person",
	}}
	dog     = []detection.ObjectDetection{{Detection: detection.Detection{Confidence: 0.9}, ClassName: "dog"}}
	nothing []detection.ObjectDetection
)

// step advances the clock then observes one frame.
type step struct {
	advance time.Duration
	dets    []detection.ObjectDetection
	fire    bool
	state   State
}

func run(t *testing.T, cfg Config, steps []step) *Debouncer {
	t.Helper()
	mock := clock.NewMock()
	d := NewDebouncer(cfg, mock)
	for i, s := range steps {
		mock.Add(s.advance)
		fired := d.Observe(s.dets) != nil
		if fired != s.fire {
			t.Fatalf("step %d: fired=%v, want %v", i, fired, s.fire)
		}
		if got := d.Status().State; got != s.state {
			t.Fatalf("step %d: state=%s, want %s", i, got, s.state)
		}
	}
	return d
}

func TestDebouncer_FiresAfterHold(t *testing.T) {
	d := run(t, DefaultConfig(), []step{
		{0, person, false, Tracking},
		{time.Second, person, false, Tracking},
		{999 * time.Millisecond, person, false, Tracking},
		{time.Millisecond, person, true, Fired},
		{time.Second, person, false, Fired},
	})
	if d.Status().Fires != 1 {
		t.Errorf("Fires: got %d, want 1", d.Status().Fires)
	}
}

func TestDebouncer_OneShotWithoutRearm(t *testing.T) {
	d := run(t, DefaultConfig(), []step{
		{0, person, false, Tracking},
		{2 * time.Second, person, true, Fired},
		{time.Minute, nothing, false, Fired},
		{time.Second, person, false, Fired},
		{10 * time.Second, person, false, Fired},
	})
	if d.Status().Fires != 1 {
		t.Errorf("Fires: got %d, want 1", d.Status().Fires)
	}
}

func TestDebouncer_GraceToleratesBriefMiss(t *testing.T) {
	run(t, DefaultConfig(), []step{
		{0, person, false, Tracking},
		{500 * time.Millisecond, person, false, Tracking},
		{300 * time.Millisecond, nothing, false, Tracking}, // 300ms gap, inside grace
		{300 * time.Millisecond, person, false, Tracking},
		{900 * time.Millisecond, person, true, Fired}, // 2s since first sighting
	})
}

func TestDebouncer_LongMissRestartsHold(t *testing.T) {
	run(t, DefaultConfig(), []step{
		{0, person, false, Tracking},
		{time.Second, person, false, Tracking},
		{600 * time.Millisecond, nothing, false, Idle}, // gap exceeds grace
		{100 * time.Millisecond, person, false, Tracking},
		{1900 * time.Millisecond, person, false, Tracking},
		{100 * time.Millisecond, person, true, Fired},
	})
}

func TestDebouncer_IgnoresOtherClasses(t *testing.T) {
	run(t, DefaultConfig(), []step{
		{0, dog, false, Idle},
		{3 * time.Second, dog, false, Idle},
	})
}

func TestDebouncer_MinConfidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinConfidence = 0.95
	run(t, cfg, []step{
		{0, person, false, Idle},
	})
}

func TestDebouncer_Rearm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rearm = 5 * time.Second

	d := run(t, cfg, []step{
		{0, person, false, Tracking},
		{2 * time.Second, person, true, Fired},
		{4 * time.Second, nothing, false, Fired},
		{time.Second, person, false, Fired}, // back before rearm elapsed
		{4 * time.Second, nothing, false, Fired},
		{time.Second, nothing, false, Idle},
		{0, person, false, Tracking},
		{2 * time.Second, person, true, Fired},
	})
	if d.Status().Fires != 2 {
		t.Errorf("Fires: got %d, want 2", d.Status().Fires)
	}
}

func TestDebouncer_ZeroHoldFiresImmediately(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hold = 0
	run(t, cfg, []step{
		{0, person, true, Fired},
	})
}

func TestDebouncer_Reset(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(DefaultConfig(), mock)

	d.Observe(person)
	mock.Add(2 * time.Second)
	if d.Observe(person) == nil {
		t.Fatal("expected fire")
	}

	d.Reset()
	if d.Status().State != Idle {
		t.Fatalf("state after Reset: %s", d.Status().State)
	}
	d.Observe(person)
	mock.Add(2 * time.Second)
	if d.Observe(person) == nil {
		t.Error("expected fire after Reset")
	}
}

func TestDebouncer_Indicator(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(DefaultConfig(), mock)

	if got := d.Status().Indicator; got != IndicatorError {
		t.Errorf("idle: got %s", got)
	}
	d.Observe(person)
	if got := d.Status().Indicator; got != IndicatorWarning {
		t.Errorf("tracking: got %s", got)
	}
	mock.Add(2 * time.Second)
	d.Observe(person)
	if got := d.Status().Indicator; got != IndicatorSuccess {
		t.Errorf("fired: got %s", got)
	}

	mock.Add(time.Minute)
	d.Observe(nil)
	st := d.Status()
	if st.State != Fired {
		t.Fatalf("one-shot debouncer should stay fired: %s", st.State)
	}
	if st.Indicator != IndicatorError {
		t.Errorf("fired, target gone: got %s", st.Indicator)
	}
	d.Observe(person)
	if got := d.Status().Indicator; got != IndicatorSuccess {
		t.Errorf("fired, target back: got %s", got)
	}
}

func TestDebouncer_SetTarget(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(DefaultConfig(), mock)
	d.Observe(person)

	d.SetTarget("dog")
	st := d.Status()
	if st.Target != "dog" || st.State != Idle {
		t.Fatalf("after SetTarget: %+v", st)
	}
	d.Observe(dog)
	mock.Add(2 * time.Second)
	if d.Observe(dog) == nil {
		t.Error("expected dog to fire")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"empty target", func(c *Config) { c.Target = "" }, true},
		{"unknown target", func(c *Config) { c.Target = "dragon" }, true},
		{"negative hold", func(c *Config) { c.Hold = -time.Second }, true},
		{"confidence above one", func(c *Config) { c.MinConfidence = 2 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate: got %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestState_TextRoundTrip(t *testing.T) {
	for _, st := range []State{Idle, Tracking, Fired} {
		text, err := st.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got State
		if err := got.UnmarshalText(text); err != nil || got != st {
			t.Errorf("UnmarshalText(%q) = %v, %v", text, got, err)
		}
	}
	var s State
	if err := s.UnmarshalText([]byte("armed")); err == nil {
		t.Error("expected error for unknown state")
	}
}
