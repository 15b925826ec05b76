package detection

import (
	"context"
	"fmt"
)

// New opens the detector for the configured family.
func New(cfg ModelConfig) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}
	switch cfg.Family {
	case FamilyYOLOv8:
		return NewYOLO(cfg)
	case FamilySSD:
		return NewSSD(cfg)
	}
	return nil, fmt.Errorf("unknown model family %q", cfg.Family)
}

// Pending is a detector that is still loading.
type Pending struct {
	done chan struct{}
	det  Detector
	err  error
}

// LoadAsync starts loading the model in the background. If ctx is
// cancelled before loading finishes the detector is closed on arrival.
func LoadAsync(ctx context.Context, cfg ModelConfig) *Pending {
	return loadAsync(ctx, func() (Detector, error) { return New(cfg) })
}

func loadAsync(ctx context.Context, open func() (Detector, error)) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		det, err := open()
		if err == nil && ctx.Err() != nil {
			det.Close()
			det, err = nil, ctx.Err()
		}
		p.det, p.err = det, err
	}()
	return p
}

// Ready reports whether loading has finished, successfully or not.
func (p *Pending) Ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done is closed once loading finishes.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the model is loaded or ctx is done. A finished load
// wins over a cancelled ctx so the caller always owns a loaded detector.
func (p *Pending) Wait(ctx context.Context) (Detector, error) {
	select {
	case <-p.done:
		return p.det, p.err
	case <-ctx.Done():
	}
	select {
	case <-p.done:
		return p.det, p.err
	default:
		return nil, ctx.Err()
	}
}
