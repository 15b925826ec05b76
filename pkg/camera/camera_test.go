package camera

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("DefaultConfig should be valid, got %v", errs)
	}
	if cfg.FacingMode != FacingEnvironment {
		t.Errorf("default facing mode: got %q", cfg.FacingMode)
	}
}

func TestPresetsValid(t *testing.T) {
	for _, name := range PresetNames() {
		p := GetPreset(name)
		if p == nil {
			t.Fatalf("preset %q missing", name)
		}
		if errs := p.Validate(); len(errs) != 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errs   int
	}{
		{"valid", func(c *Config) {}, 0},
		{"empty device", func(c *Config) { c.Device = "" }, 1},
		{"tiny width", func(c *Config) { c.Width = 10 }, 1},
		{"huge height", func(c *Config) { c.Height = 10000 }, 1},
		{"zero fps", func(c *Config) { c.Framerate = 0 }, 1},
		{"bad quality", func(c *Config) { c.Quality = 101 }, 1},
		{"bad facing", func(c *Config) { c.FacingMode = "left" }, 1},
		{"several", func(c *Config) { c.Width = 1; c.Quality = 0 }, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if got := len(cfg.Validate()); got != tc.errs {
				t.Errorf("got %d errors, want %d (%v)", got, tc.errs, cfg.Validate())
			}
		})
	}
}

func TestMirrored(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Mirrored() {
		t.Error("environment camera should not mirror")
	}
	cfg.FacingMode = FacingUser
	if !cfg.Mirrored() {
		t.Error("user camera should mirror")
	}
	off := false
	cfg.Mirror = &off
	if cfg.Mirrored() {
		t.Error("explicit mirror=false should disable the selfie flip")
	}
	on := true
	cfg.FacingMode = FacingEnvironment
	cfg.Mirror = &on
	if !cfg.Mirrored() {
		t.Error("explicit mirror should win")
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())
	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	t.Run("field overrides", func(t *testing.T) {
		err := m.UpdateConfig(map[string]any{"width": float64(1280), "height": 720, "mirror": true})
		if err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}
		cfg := m.GetConfig()
		if cfg.Width != 1280 || cfg.Height != 720 || cfg.Mirror == nil || !*cfg.Mirror {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if len(applied) != 1 {
			t.Errorf("callback calls: got %d", len(applied))
		}
	})

	t.Run("mirror override and reset", func(t *testing.T) {
		if err := m.UpdateConfig(map[string]any{"facing_mode": FacingUser, "mirror": false}); err != nil {
			t.Fatal(err)
		}
		if m.GetConfig().Mirrored() {
			t.Error("mirror=false should keep a user camera unflipped")
		}
		if err := m.UpdateConfig(map[string]any{"mirror": nil}); err != nil {
			t.Fatal(err)
		}
		if !m.GetConfig().Mirrored() {
			t.Error("clearing mirror should fall back to facing mode")
		}
		if err := m.UpdateConfig(map[string]any{"facing_mode": FacingEnvironment}); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("preset keeps device", func(t *testing.T) {
		if err := m.UpdateConfig(map[string]any{"device": "/dev/video2"}); err != nil {
			t.Fatal(err)
		}
		if err := m.UpdateConfig(map[string]any{"preset": PresetLow, "quality": 50}); err != nil {
			t.Fatal(err)
		}
		cfg := m.GetConfig()
		if cfg.Device != "/dev/video2" {
			t.Errorf("device: got %q", cfg.Device)
		}
		if cfg.Width != 320 || cfg.Quality != 50 {
			t.Errorf("preset/override not applied: %+v", cfg)
		}
	})

	t.Run("unknown preset", func(t *testing.T) {
		if err := m.UpdateConfig(map[string]any{"preset": "potato"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		before := m.GetConfig()
		if err := m.UpdateConfig(map[string]any{"framerate": 0}); err == nil {
			t.Error("expected validation error")
		}
		if m.GetConfig() != before {
			t.Error("config changed despite validation failure")
		}
	})

	t.Run("callback error surfaces", func(t *testing.T) {
		m.OnConfigChange = func(Config) error { return errors.New("busy") }
		if err := m.UpdateConfig(map[string]any{"quality": 70}); err == nil {
			t.Error("expected callback error")
		}
	})
}

func TestManager_ConfigMap(t *testing.T) {
	m := NewManager(DefaultConfig())
	got := m.ConfigMap()
	if got["width"] != float64(640) {
		t.Errorf("width: got %v", got["width"])
	}
	if got["facing_mode"] != FacingEnvironment {
		t.Errorf("facing_mode: got %v", got["facing_mode"])
	}
}

type fakeReopener struct {
	mu    sync.Mutex
	calls []Config
	err   error
}

func (f *fakeReopener) Reopen(cfg Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cfg)
	return f.err
}

func (f *fakeReopener) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestReconfigurer_CoalescesBursts(t *testing.T) {
	target := &fakeReopener{}
	r := NewReconfigurer(target, 30*time.Millisecond, nil)

	cfg := DefaultConfig()
	for q := 60; q <= 70; q++ {
		cfg.Quality = q
		if err := r.Apply(cfg); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for r.Applied() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if target.count() != 1 {
		t.Fatalf("expected 1 reopen, got %d", target.count())
	}
	if target.calls[0].Quality != 70 {
		t.Errorf("expected last config to win, got quality %d", target.calls[0].Quality)
	}
}
