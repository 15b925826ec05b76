package camera

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"go.uber.org/zap"
)

// Reopener is implemented by capture devices that can be reconfigured live.
type Reopener interface {
	Reopen(cfg Config) error
}

// Reconfigurer coalesces bursts of config changes (dashboard sliders fire
// one PUT per step) into a single device reopen after the burst settles.
type Reconfigurer struct {
	target   Reopener
	debounce func(f func())
	logger   *zap.Logger

	mu      sync.Mutex
	pending Config
	applied int
}

// NewReconfigurer returns a Reconfigurer that waits for delay of quiet
// before reopening target.
func NewReconfigurer(target Reopener, delay time.Duration, logger *zap.Logger) *Reconfigurer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconfigurer{
		target:   target,
		debounce: debounce.New(delay),
		logger:   logger.Named("camera.reconfigure"),
	}
}

// Apply schedules cfg. It satisfies Manager.OnConfigChange; failures to
// reopen are logged since they happen after the request has returned.
func (r *Reconfigurer) Apply(cfg Config) error {
	r.mu.Lock()
	r.pending = cfg
	r.mu.Unlock()

	r.debounce(r.flush)
	return nil
}

func (r *Reconfigurer) flush() {
	r.mu.Lock()
	cfg := r.pending
	r.mu.Unlock()

	if err := r.target.Reopen(cfg); err != nil {
		r.logger.Error("reopen camera", zap.String("device", cfg.Device), zap.Error(err))
		return
	}

	r.mu.Lock()
	r.applied++
	r.mu.Unlock()
	r.logger.Info("camera reconfigured",
		zap.String("device", cfg.Device),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("framerate", cfg.Framerate),
	)
}

// Applied returns how many reopens have completed.
func (r *Reconfigurer) Applied() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied
}
